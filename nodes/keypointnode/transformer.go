package keypointnode

import (
	"context"
	"fmt"

	"github.com/gogpu/cvpipeline"
	"github.com/gogpu/cvpipeline/geom"
	"github.com/gogpu/cvpipeline/keypoint"
	"github.com/gogpu/cvpipeline/matrixvm"
)

// Transformer applies a 2x3 affine matrix to every keypoint's position,
// leaving score, LOD, orientation, and descriptor untouched.
type Transformer struct{}

// NewTransformer creates a keypoint position transformer.
func NewTransformer() *Transformer { return &Transformer{} }

func (t *Transformer) Name() string { return "keypoint.Transformer" }

func (t *Transformer) Inputs() []pipeline.PortSpec {
	return []pipeline.PortSpec{
		{Name: "keypoints", Kind: pipeline.KindKeypoint},
		{Name: "matrix", Kind: pipeline.KindMatrix2D},
	}
}

func (t *Transformer) Outputs() []pipeline.PortSpec {
	return []pipeline.PortSpec{{Name: "keypoints", Kind: pipeline.KindKeypoint}}
}

func (t *Transformer) Process(ctx context.Context, dev *pipeline.Device, in map[string]pipeline.Message) (map[string]pipeline.Message, error) {
	msg, ok := in["keypoints"].(pipeline.KeypointMessage)
	if !ok {
		return nil, fmt.Errorf("keypoint.Transformer: expected KeypointMessage on input %q", "keypoints")
	}
	matMsg, ok := in["matrix"].(pipeline.Matrix2DMessage)
	if !ok {
		return nil, fmt.Errorf("keypoint.Transformer: expected Matrix2DMessage on input %q", "matrix")
	}
	m := matMsg.Matrix
	if m.Rows != 2 || m.Columns != 3 {
		return nil, fmt.Errorf("keypoint.Transformer: matrix must be 2x3, got %dx%d", m.Rows, m.Columns)
	}

	kps, err := readKeypoints(dev, msg)
	if err != nil {
		return nil, err
	}
	for i, kp := range kps {
		kps[i] = transformKeypoint(kp, m)
	}

	out, err := writeKeypoints(dev, kps, msg.Options)
	if err != nil {
		return nil, err
	}
	return map[string]pipeline.Message{"keypoints": out}, nil
}

// transformKeypoint applies [x', y'] = M * [x, y, 1]^T, where M is 2x3.
func transformKeypoint(kp keypoint.Keypoint, m *matrixvm.Matrix) keypoint.Keypoint {
	x := m.At(0, 0)*kp.Position.X + m.At(0, 1)*kp.Position.Y + m.At(0, 2)
	y := m.At(1, 0)*kp.Position.X + m.At(1, 1)*kp.Position.Y + m.At(1, 2)
	kp.Position = geom.Pt(x, y)
	return kp
}
