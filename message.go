package pipeline

import (
	"github.com/gogpu/cvpipeline/geom"
	"github.com/gogpu/cvpipeline/gpucore"
	"github.com/gogpu/cvpipeline/keypoint"
	"github.com/gogpu/cvpipeline/matrixvm"
)

// MessageKind discriminates the concrete type behind a Message.
type MessageKind int

const (
	KindImage MessageKind = iota
	KindKeypoint
	KindMatrix2D
	KindVector2D
)

func (k MessageKind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindKeypoint:
		return "keypoint"
	case KindMatrix2D:
		return "matrix2d"
	case KindVector2D:
		return "vector2d"
	default:
		return "unknown"
	}
}

// Message is the value carried across one port connection during a frame.
// It is a closed set: node.go's type checker switches over Kind() and the
// four concrete variants below, so adding a fifth requires changing this
// package, not implementing an interface externally.
type Message interface {
	Kind() MessageKind
	message()
}

// ImageMessage carries a GPU-resident image between nodes.
type ImageMessage struct {
	Texture gpucore.TextureID
	Width   int
	Height  int
	Format  gpucore.TextureFormat
}

func (ImageMessage) Kind() MessageKind { return KindImage }
func (ImageMessage) message()          {}

// KeypointMessage carries a packed keypoint list, GPU-resident as a square
// texture, plus the codec parameters needed to decode it.
type KeypointMessage struct {
	Texture       gpucore.TextureID
	EncoderLength int
	Options       keypoint.EncoderOptions
}

func (KeypointMessage) Kind() MessageKind { return KindKeypoint }
func (KeypointMessage) message()          {}

// Matrix2DMessage carries a small host-computed matrix, e.g. a homography
// or affine transform produced by a tracker or refiner node.
type Matrix2DMessage struct {
	Matrix *matrixvm.Matrix
}

func (Matrix2DMessage) Kind() MessageKind { return KindMatrix2D }
func (Matrix2DMessage) message()          {}

// Vector2DMessage carries a single 2D displacement, e.g. optical-flow
// output for one tracked point.
type Vector2DMessage struct {
	Vector geom.Vector2D
}

func (Vector2DMessage) Kind() MessageKind { return KindVector2D }
func (Vector2DMessage) message()          {}

// textureIDOf extracts the backing GPU texture from a Message, if it has
// one.
func textureIDOf(msg Message) (gpucore.TextureID, bool) {
	switch m := msg.(type) {
	case ImageMessage:
		return m.Texture, true
	case KeypointMessage:
		return m.Texture, true
	default:
		return 0, false
	}
}
