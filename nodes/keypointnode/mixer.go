package keypointnode

import (
	"context"
	"fmt"

	"github.com/gogpu/cvpipeline"
)

// Mixer concatenates two keypoint lists into one, re-encoded under the "a"
// input's codec options. Overflow beyond the target texture's capacity is
// truncated the same way a single detector's output would be.
type Mixer struct{}

// NewMixer creates a keypoint list mixer.
func NewMixer() *Mixer { return &Mixer{} }

func (m *Mixer) Name() string { return "keypoint.Mixer" }

func (m *Mixer) Inputs() []pipeline.PortSpec {
	return []pipeline.PortSpec{
		{Name: "a", Kind: pipeline.KindKeypoint},
		{Name: "b", Kind: pipeline.KindKeypoint},
	}
}

func (m *Mixer) Outputs() []pipeline.PortSpec {
	return []pipeline.PortSpec{{Name: "keypoints", Kind: pipeline.KindKeypoint}}
}

func (m *Mixer) Process(ctx context.Context, dev *pipeline.Device, in map[string]pipeline.Message) (map[string]pipeline.Message, error) {
	a, ok := in["a"].(pipeline.KeypointMessage)
	if !ok {
		return nil, fmt.Errorf("keypoint.Mixer: expected KeypointMessage on input %q", "a")
	}
	b, ok := in["b"].(pipeline.KeypointMessage)
	if !ok {
		return nil, fmt.Errorf("keypoint.Mixer: expected KeypointMessage on input %q", "b")
	}

	kpsA, err := readKeypoints(dev, a)
	if err != nil {
		return nil, err
	}
	kpsB, err := readKeypoints(dev, b)
	if err != nil {
		return nil, err
	}
	kpsB = normalizeDescriptors(kpsB, a.Options)
	combined := append(kpsA, kpsB...)

	out, err := writeKeypoints(dev, combined, a.Options)
	if err != nil {
		return nil, err
	}
	return map[string]pipeline.Message{"keypoints": out}, nil
}
