package keypointnode

import (
	"context"
	"fmt"

	"github.com/gogpu/cvpipeline"
	"github.com/gogpu/cvpipeline/keypoint"
)

// orbPattern is a small, fixed set of pixel-pair offsets sampled around each
// keypoint to build a binary intensity-comparison descriptor, in the style
// of ORB/BRIEF. It is deterministic rather than the randomly trained
// pattern real ORB uses, so results are reproducible across runs.
var orbPattern = [][4]int{
	{-3, -3, 3, 3}, {-3, 3, 3, -3}, {-4, 0, 4, 0}, {0, -4, 0, 4},
	{-2, -4, 2, 4}, {-4, -2, 4, 2}, {-2, 4, 2, -4}, {-4, 2, 4, -2},
}

// DescriptorORB computes a fixed-length binary descriptor for every
// keypoint from its local image neighborhood and attaches it, re-encoding
// the list under a larger cell size to fit the descriptor bytes.
type DescriptorORB struct {
	descriptorSize int
	encoderLength  int
}

// NewDescriptorORB builds an ORB-style descriptor node. descriptorSize must
// be at least ceil(len(orbPattern)/8) bytes; encoderLength sizes the output
// texture for the enlarged per-keypoint cell.
func NewDescriptorORB(descriptorSize, encoderLength int) *DescriptorORB {
	return &DescriptorORB{descriptorSize: descriptorSize, encoderLength: encoderLength}
}

func (d *DescriptorORB) Name() string { return "keypoint.DescriptorORB" }

func (d *DescriptorORB) Inputs() []pipeline.PortSpec {
	return []pipeline.PortSpec{
		{Name: "image", Kind: pipeline.KindImage},
		{Name: "keypoints", Kind: pipeline.KindKeypoint},
	}
}

func (d *DescriptorORB) Outputs() []pipeline.PortSpec {
	return []pipeline.PortSpec{{Name: "keypoints", Kind: pipeline.KindKeypoint}}
}

func (d *DescriptorORB) Process(ctx context.Context, dev *pipeline.Device, in map[string]pipeline.Message) (map[string]pipeline.Message, error) {
	img, ok := in["image"].(pipeline.ImageMessage)
	if !ok {
		return nil, fmt.Errorf("keypoint.DescriptorORB: expected ImageMessage on input %q", "image")
	}
	kpMsg, ok := in["keypoints"].(pipeline.KeypointMessage)
	if !ok {
		return nil, fmt.Errorf("keypoint.DescriptorORB: expected KeypointMessage on input %q", "keypoints")
	}

	rgba, err := dev.Adapter().ReadTexture(img.Texture)
	if err != nil {
		return nil, fmt.Errorf("keypoint.DescriptorORB: %w", err)
	}
	gray := toGray(rgba, img.Width, img.Height)

	kps, err := readKeypoints(dev, kpMsg)
	if err != nil {
		return nil, err
	}

	opts, err := keypoint.NewEncoderOptions(d.descriptorSize, kpMsg.Options.ExtraSize, d.encoderLength, keypoint.EncoderOptions{
		FixResolution:       kpMsg.Options.FixResolution,
		Log2PyramidMaxScale: kpMsg.Options.Log2PyramidMaxScale,
		PyramidMaxLevels:    kpMsg.Options.PyramidMaxLevels,
	})
	if err != nil {
		return nil, fmt.Errorf("keypoint.DescriptorORB: %w", err)
	}

	for i, kp := range kps {
		kp.Descriptor = describe(kp, gray, img.Width, img.Height, d.descriptorSize)
		kp.Extra = resize(kp.Extra, opts.ExtraSize)
		kps[i] = kp
	}

	out, err := writeKeypoints(dev, kps, opts)
	if err != nil {
		return nil, err
	}
	return map[string]pipeline.Message{"keypoints": out}, nil
}

func describe(kp keypoint.Keypoint, gray []uint8, width, height, descriptorSize int) []byte {
	out := make([]byte, descriptorSize)
	x, y := int(kp.Position.X), int(kp.Position.Y)
	for bit, o := range orbPattern {
		byteIdx, bitIdx := bit/8, bit%8
		if byteIdx >= descriptorSize {
			break
		}
		a := samplePixel(gray, x+o[0], y+o[1], width, height)
		b := samplePixel(gray, x+o[2], y+o[3], width, height)
		if a < b {
			out[byteIdx] |= 1 << bitIdx
		}
	}
	return out
}

func samplePixel(gray []uint8, x, y, width, height int) uint8 {
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	if x >= width {
		x = width - 1
	}
	if y >= height {
		y = height - 1
	}
	return gray[y*width+x]
}
