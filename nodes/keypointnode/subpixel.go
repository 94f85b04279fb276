package keypointnode

import (
	"context"
	"fmt"

	"github.com/gogpu/cvpipeline"
	"github.com/gogpu/cvpipeline/geom"
	"github.com/gogpu/cvpipeline/keypoint"
)

// SubpixelRefiner nudges each keypoint's integer-pixel position toward the
// local intensity extremum using a 1D parabolic fit along each axis.
type SubpixelRefiner struct{}

// NewSubpixelRefiner creates a subpixel position refiner.
func NewSubpixelRefiner() *SubpixelRefiner { return &SubpixelRefiner{} }

func (r *SubpixelRefiner) Name() string { return "keypoint.SubpixelRefiner" }

func (r *SubpixelRefiner) Inputs() []pipeline.PortSpec {
	return []pipeline.PortSpec{
		{Name: "image", Kind: pipeline.KindImage},
		{Name: "keypoints", Kind: pipeline.KindKeypoint},
	}
}

func (r *SubpixelRefiner) Outputs() []pipeline.PortSpec {
	return []pipeline.PortSpec{{Name: "keypoints", Kind: pipeline.KindKeypoint}}
}

func (r *SubpixelRefiner) Process(ctx context.Context, dev *pipeline.Device, in map[string]pipeline.Message) (map[string]pipeline.Message, error) {
	img, ok := in["image"].(pipeline.ImageMessage)
	if !ok {
		return nil, fmt.Errorf("keypoint.SubpixelRefiner: expected ImageMessage on input %q", "image")
	}
	kpMsg, ok := in["keypoints"].(pipeline.KeypointMessage)
	if !ok {
		return nil, fmt.Errorf("keypoint.SubpixelRefiner: expected KeypointMessage on input %q", "keypoints")
	}

	rgba, err := dev.Adapter().ReadTexture(img.Texture)
	if err != nil {
		return nil, fmt.Errorf("keypoint.SubpixelRefiner: %w", err)
	}
	gray := toGray(rgba, img.Width, img.Height)

	kps, err := readKeypoints(dev, kpMsg)
	if err != nil {
		return nil, err
	}
	for i, kp := range kps {
		kps[i] = refineKeypoint(kp, gray, img.Width, img.Height)
	}

	out, err := writeKeypoints(dev, kps, kpMsg.Options)
	if err != nil {
		return nil, err
	}
	return map[string]pipeline.Message{"keypoints": out}, nil
}

func refineKeypoint(kp keypoint.Keypoint, gray []uint8, width, height int) keypoint.Keypoint {
	x, y := int(kp.Position.X), int(kp.Position.Y)
	if x < 1 || y < 1 || x >= width-1 || y >= height-1 {
		return kp
	}
	dx := parabolicOffset(
		float64(gray[y*width+x-1]),
		float64(gray[y*width+x]),
		float64(gray[y*width+x+1]),
	)
	dy := parabolicOffset(
		float64(gray[(y-1)*width+x]),
		float64(gray[y*width+x]),
		float64(gray[(y+1)*width+x]),
	)
	kp.Position = geom.Pt(kp.Position.X+dx, kp.Position.Y+dy)
	return kp
}

// parabolicOffset fits a parabola through three equally spaced samples and
// returns the offset (in samples) of its peak from the center sample.
func parabolicOffset(left, center, right float64) float64 {
	denom := left - 2*center + right
	if denom == 0 {
		return 0
	}
	off := 0.5 * (left - right) / denom
	if off < -1 || off > 1 {
		return 0
	}
	return off
}
