package imagenode

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/cvpipeline"
	"github.com/gogpu/cvpipeline/pixel"
)

// Sink reads back its input texture into a pixel.Buffer every frame and
// keeps the most recent result available via Last. It has no outputs.
type Sink struct {
	mu   sync.Mutex
	last *pixel.Buffer
}

// NewSink creates an empty sink; call Last after at least one Run to
// retrieve a frame.
func NewSink() *Sink { return &Sink{} }

func (s *Sink) Name() string { return "image.Sink" }

func (s *Sink) Inputs() []pipeline.PortSpec {
	return []pipeline.PortSpec{{Name: "image", Kind: pipeline.KindImage}}
}

func (s *Sink) Outputs() []pipeline.PortSpec { return nil }

func (s *Sink) Process(ctx context.Context, dev *pipeline.Device, in map[string]pipeline.Message) (map[string]pipeline.Message, error) {
	img, ok := in["image"].(pipeline.ImageMessage)
	if !ok {
		return nil, fmt.Errorf("image.Sink: expected ImageMessage on input %q", "image")
	}
	data, err := dev.Adapter().ReadTexture(img.Texture)
	if err != nil {
		return nil, fmt.Errorf("image.Sink: %w", err)
	}
	buf := pixel.FromBytes(img.Width, img.Height, data)

	s.mu.Lock()
	s.last = buf
	s.mu.Unlock()
	return map[string]pipeline.Message{}, nil
}

// Last returns the most recently sunk frame, or nil if no frame has run yet.
func (s *Sink) Last() *pixel.Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
