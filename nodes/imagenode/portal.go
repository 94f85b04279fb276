package imagenode

import (
	"context"

	"github.com/gogpu/cvpipeline"
)

// PortalSink publishes its input image under name for a PortalSource in a
// different pipeline to read. It has no outputs.
type PortalSink struct {
	name string
}

// NewPortalSink names the cross-pipeline reference sunk images are
// published under.
func NewPortalSink(name string) *PortalSink { return &PortalSink{name: name} }

func (s *PortalSink) Name() string { return "image.PortalSink" }

func (s *PortalSink) Inputs() []pipeline.PortSpec {
	return []pipeline.PortSpec{{Name: "image", Kind: pipeline.KindImage}}
}

func (s *PortalSink) Outputs() []pipeline.PortSpec { return nil }

func (s *PortalSink) Process(ctx context.Context, dev *pipeline.Device, in map[string]pipeline.Message) (map[string]pipeline.Message, error) {
	pipeline.PublishPortal(s.name, in["image"])
	return map[string]pipeline.Message{}, nil
}

// PortalSource reads the image most recently published to a PortalSink of
// the same name. It has no inputs.
type PortalSource struct {
	name string
}

// NewPortalSource names the cross-pipeline reference to read from.
func NewPortalSource(name string) *PortalSource { return &PortalSource{name: name} }

func (s *PortalSource) Name() string { return "image.PortalSource" }

func (s *PortalSource) Inputs() []pipeline.PortSpec { return nil }

func (s *PortalSource) Outputs() []pipeline.PortSpec {
	return []pipeline.PortSpec{{Name: "image", Kind: pipeline.KindImage}}
}

func (s *PortalSource) Process(ctx context.Context, dev *pipeline.Device, in map[string]pipeline.Message) (map[string]pipeline.Message, error) {
	msg, ok := pipeline.LookupPortal(s.name)
	if !ok {
		return nil, &pipeline.IllegalOperationError{Reason: pipeline.ReasonPortalNotReady, Detail: s.name}
	}
	return map[string]pipeline.Message{"image": msg}, nil
}
