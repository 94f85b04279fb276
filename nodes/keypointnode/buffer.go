package keypointnode

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/cvpipeline"
)

// Buffer delays its keypoint stream by one frame, giving a tracker node
// access to the previous frame's detections alongside the current image.
// The first frame it processes has no predecessor, so it passes its input
// straight through.
type Buffer struct {
	mu      sync.Mutex
	pending pipeline.KeypointMessage
	primed  bool
}

// NewBuffer creates an empty one-frame delay buffer.
func NewBuffer() *Buffer { return &Buffer{} }

func (b *Buffer) Name() string { return "keypoint.Buffer" }

func (b *Buffer) Inputs() []pipeline.PortSpec {
	return []pipeline.PortSpec{{Name: "keypoints", Kind: pipeline.KindKeypoint}}
}

func (b *Buffer) Outputs() []pipeline.PortSpec {
	return []pipeline.PortSpec{{Name: "keypoints", Kind: pipeline.KindKeypoint}}
}

func (b *Buffer) Process(ctx context.Context, dev *pipeline.Device, in map[string]pipeline.Message) (map[string]pipeline.Message, error) {
	msg, ok := in["keypoints"].(pipeline.KeypointMessage)
	if !ok {
		return nil, fmt.Errorf("keypoint.Buffer: expected KeypointMessage on input %q", "keypoints")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	out := msg
	if b.primed {
		out = b.pending
	}
	b.pending = msg
	b.primed = true
	return map[string]pipeline.Message{"keypoints": out}, nil
}
