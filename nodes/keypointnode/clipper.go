package keypointnode

import (
	"context"
	"fmt"
	"sort"

	"github.com/gogpu/cvpipeline"
)

// Clipper retains at most Size keypoints from its input, dropping the
// lowest-scoring ones first.
type Clipper struct {
	size int
}

// NewClipper builds a Clipper that keeps the size highest-scoring keypoints.
func NewClipper(size int) *Clipper { return &Clipper{size: size} }

func (c *Clipper) Name() string { return "keypoint.Clipper" }

func (c *Clipper) Inputs() []pipeline.PortSpec {
	return []pipeline.PortSpec{{Name: "keypoints", Kind: pipeline.KindKeypoint}}
}

func (c *Clipper) Outputs() []pipeline.PortSpec {
	return []pipeline.PortSpec{{Name: "keypoints", Kind: pipeline.KindKeypoint}}
}

func (c *Clipper) Process(ctx context.Context, dev *pipeline.Device, in map[string]pipeline.Message) (map[string]pipeline.Message, error) {
	msg, ok := in["keypoints"].(pipeline.KeypointMessage)
	if !ok {
		return nil, fmt.Errorf("keypoint.Clipper: expected KeypointMessage on input %q", "keypoints")
	}
	kps, err := readKeypoints(dev, msg)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(kps, func(i, j int) bool { return kps[i].Score > kps[j].Score })
	if len(kps) > c.size {
		kps = kps[:c.size]
	}

	out, err := writeKeypoints(dev, kps, msg.Options)
	if err != nil {
		return nil, err
	}
	return map[string]pipeline.Message{"keypoints": out}, nil
}
