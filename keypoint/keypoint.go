// Package keypoint implements the pixel-packed wire format that carries a
// variable-length list of detected feature points through a fixed-size GPU
// texture, plus the host-side value type the rest of the runtime works with.
package keypoint

import "github.com/gogpu/cvpipeline/geom"

// Wire format constants (§4.5/§6 of the packed keypoint texture protocol).
const (
	// MinKeypointSize is the number of bytes the position/lod/score header
	// occupies in every cell: two RGBA8 pixels (8 bytes).
	MinKeypointSize = 8

	// DefaultFixResolution is the default sub-pixel fixed-point denominator.
	// Coordinates are packed as a 16-bit unsigned value equal to
	// round(coordinate * FixResolution); callers with source images larger
	// than 65535/FixResolution pixels on a side must choose a smaller value.
	DefaultFixResolution = 256

	// DefaultLog2PyramidMaxScale is the default log2 of the largest pyramid
	// scale factor representable by the lod byte quantization.
	DefaultLog2PyramidMaxScale = 3

	// DefaultPyramidMaxLevels is the default number of pyramid octaves above
	// the base level representable by the lod byte quantization.
	DefaultPyramidMaxLevels = 8

	// DefaultTileSize is the default number of keypoints processed by one
	// encoder dispatch tile.
	DefaultTileSize = 64

	// endOfList is the raw 16-bit sentinel value both position words take at
	// the end of the packed list.
	endOfList = 0xFFFF

	// neutralOrientationByte encodes angle 0 in the packed orientation byte,
	// used when a stage has not computed an orientation for a keypoint.
	neutralOrientationByte = 128
)

// Keypoint is the host-side, decoded representation of one feature point.
type Keypoint struct {
	Position    geom.Point
	LOD         float64 // continuous pyramid level
	Orientation float64 // radians
	Score       uint16
	Descriptor  []byte // length fixed per pipeline; may be zero-length, never nil
	Extra       []byte // length fixed per pipeline; may be zero-length, never nil
}
