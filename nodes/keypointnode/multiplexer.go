package keypointnode

import (
	"context"
	"fmt"

	"github.com/gogpu/cvpipeline"
)

// Multiplexer forwards one of two keypoint inputs, chosen at construction
// time. Only the selected input is read back; the other is ignored.
type Multiplexer struct {
	selectB bool
}

// NewMultiplexer creates a Multiplexer that forwards input "a" unless
// selectB is true, in which case it forwards "b".
func NewMultiplexer(selectB bool) *Multiplexer { return &Multiplexer{selectB: selectB} }

func (m *Multiplexer) Name() string { return "keypoint.Multiplexer" }

func (m *Multiplexer) Inputs() []pipeline.PortSpec {
	return []pipeline.PortSpec{
		{Name: "a", Kind: pipeline.KindKeypoint},
		{Name: "b", Kind: pipeline.KindKeypoint},
	}
}

func (m *Multiplexer) Outputs() []pipeline.PortSpec {
	return []pipeline.PortSpec{{Name: "keypoints", Kind: pipeline.KindKeypoint}}
}

func (m *Multiplexer) Process(ctx context.Context, dev *pipeline.Device, in map[string]pipeline.Message) (map[string]pipeline.Message, error) {
	port := "a"
	if m.selectB {
		port = "b"
	}
	msg, ok := in[port].(pipeline.KeypointMessage)
	if !ok {
		return nil, fmt.Errorf("keypoint.Multiplexer: expected KeypointMessage on input %q", port)
	}
	return map[string]pipeline.Message{"keypoints": msg}, nil
}
