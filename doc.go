// Package pipeline implements a GPU-accelerated computer-vision runtime: a
// node graph executor that moves images, packed keypoint lists, and small
// matrices between GPU-resident stages on every frame.
//
// # Overview
//
// A [Pipeline] is a directed acyclic graph of [Node] values connected by
// typed [Port]s. Building a graph, validating it, and running frames is
// this package's job; the actual detector/descriptor/mixer behavior lives
// in the node packages under nodes/.
//
// # Quick Start
//
//	dev, err := pipeline.NewDevice(pipeline.DefaultRuntimeConfig())
//	if err != nil { ... }
//	defer dev.Close()
//
//	g := pipeline.NewGraph()
//	src, err := g.AddNode(imagenode.NewSource(...))
//	if err != nil { ... }
//	sink, err := g.AddNode(imagenode.NewSink(...))
//	if err != nil { ... }
//	g.Connect(src.Output("image"), sink.Input("image"))
//
//	pl, err := g.Build(dev)
//	if err != nil { ... }
//	result, err := pl.Run(context.Background())
//	if err != nil { ... }
//
// # Architecture
//
// The package is organized into:
//   - Graph construction and validation: node.go, port.go, graph.go
//   - Frame execution: scheduler.go
//   - GPU resource lifecycle: device.go, asyncreader.go (backed by
//     internal/gpu's adapter and texture pool)
//   - Wire messages between nodes: message.go
//   - Media adapters at the pipeline boundary: media.go
//
// # Error Handling
//
// Failures are reported as one of the sentinel error types in errors.go:
// [ValidationError] for graph construction problems, [ResourceError] for
// GPU resource exhaustion, [IllegalOperationError] for misuse of a running
// pipeline, [CancelledError] for context cancellation, and
// [NotSupportedError] for unimplemented adapter capabilities. Use
// errors.As/errors.Is against these rather than string matching.
package pipeline

// Version information.
const (
	Version           = "0.1.0-alpha.1"
	VersionMajor      = 0
	VersionMinor      = 1
	VersionPatch      = 0
	VersionPrerelease = "alpha.1"
)
