// Package imagenode implements the image.* pipeline node factories: the
// source/sink boundary nodes and the alpha-blend mixer.
package imagenode

import (
	"context"
	"fmt"

	"github.com/gogpu/cvpipeline"
)

// Source uploads one frame of pipeline.Media per Process call. It has no
// inputs and a single "image" output.
type Source struct {
	media pipeline.Media
}

// NewSource wraps media as a graph source node.
func NewSource(media pipeline.Media) *Source {
	return &Source{media: media}
}

func (s *Source) Name() string { return "image.Source" }

func (s *Source) Inputs() []pipeline.PortSpec { return nil }

func (s *Source) Outputs() []pipeline.PortSpec {
	return []pipeline.PortSpec{{Name: "image", Kind: pipeline.KindImage}}
}

func (s *Source) Process(ctx context.Context, dev *pipeline.Device, in map[string]pipeline.Message) (map[string]pipeline.Message, error) {
	id, err := s.media.Upload(dev)
	if err != nil {
		return nil, fmt.Errorf("image.Source: %w", err)
	}
	size := s.media.Size()
	return map[string]pipeline.Message{
		"image": pipeline.ImageMessage{Texture: id, Width: size.Width, Height: size.Height},
	}, nil
}
