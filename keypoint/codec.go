package keypoint

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidOptions is returned by NewEncoderOptions when the requested
// layout cannot be packed into the target texture.
var ErrInvalidOptions = errors.New("keypoint: invalid encoder options")

// EncoderOptions describes the fixed layout of one pipeline's packed
// keypoint texture. All decode/encode calls for a given texture must use
// the same options the texture was produced with.
type EncoderOptions struct {
	// DescriptorSize and ExtraSize are the fixed per-keypoint payload
	// lengths, in bytes, carried alongside the position/lod/score header.
	DescriptorSize int
	ExtraSize      int

	// TileSize is the number of keypoint slots one encoder dispatch tile
	// covers. Defaults to DefaultTileSize when zero.
	TileSize int

	// FixResolution is the sub-pixel fixed-point denominator applied to
	// packed coordinates. Defaults to DefaultFixResolution when zero.
	FixResolution int

	// Log2PyramidMaxScale and PyramidMaxLevels parameterize the LOD byte
	// quantization formula. Default to DefaultLog2PyramidMaxScale and
	// DefaultPyramidMaxLevels when zero.
	Log2PyramidMaxScale int
	PyramidMaxLevels    int

	// EncoderLength is the side length, in pixels, of the square packed
	// keypoint texture.
	EncoderLength int

	// cellPixels and totalCells are derived at construction time.
	cellPixels int
	totalCells int
}

// NewEncoderOptions validates and normalizes an EncoderOptions value.
// TileSize must evenly divide the texture's total addressable keypoint
// slots (encoderLength^2 / cellPixels); this lets the encoder kernel
// partition work into independent per-tile scans.
func NewEncoderOptions(descriptorSize, extraSize, encoderLength int, opts EncoderOptions) (EncoderOptions, error) {
	if descriptorSize < 0 || extraSize < 0 {
		return EncoderOptions{}, fmt.Errorf("%w: negative descriptor or extra size", ErrInvalidOptions)
	}
	if encoderLength <= 0 {
		return EncoderOptions{}, fmt.Errorf("%w: non-positive encoder length %d", ErrInvalidOptions, encoderLength)
	}

	opts.DescriptorSize = descriptorSize
	opts.ExtraSize = extraSize
	opts.EncoderLength = encoderLength
	if opts.TileSize == 0 {
		opts.TileSize = DefaultTileSize
	}
	if opts.FixResolution == 0 {
		opts.FixResolution = DefaultFixResolution
	}
	if opts.Log2PyramidMaxScale == 0 {
		opts.Log2PyramidMaxScale = DefaultLog2PyramidMaxScale
	}
	if opts.PyramidMaxLevels == 0 {
		opts.PyramidMaxLevels = DefaultPyramidMaxLevels
	}

	payload := MinKeypointSize + descriptorSize + extraSize
	opts.cellPixels = (payload + 3) / 4 // ceil(payload / 4 bytes-per-pixel)

	totalPixels := encoderLength * encoderLength
	if totalPixels%opts.cellPixels != 0 {
		return EncoderOptions{}, fmt.Errorf("%w: %d-pixel texture does not divide evenly into %d-pixel cells",
			ErrInvalidOptions, totalPixels, opts.cellPixels)
	}
	opts.totalCells = totalPixels / opts.cellPixels
	if opts.totalCells%opts.TileSize != 0 {
		return EncoderOptions{}, fmt.Errorf("%w: tile size %d does not evenly divide %d addressable slots",
			ErrInvalidOptions, opts.TileSize, opts.totalCells)
	}
	return opts, nil
}

// CellPixels returns the number of RGBA8 pixels one packed keypoint occupies.
func (o EncoderOptions) CellPixels() int { return o.cellPixels }

// TotalCells returns the number of addressable keypoint slots in the texture.
func (o EncoderOptions) TotalCells() int { return o.totalCells }

// lodToByte and byteToLOD implement the pyramid-level quantization formula
// shared by the encoder and decoder. m = Log2PyramidMaxScale, h = PyramidMaxLevels.
func lodToByte(lod float64, m, h int) uint8 {
	mf, hf := float64(m), float64(h)
	if mf+hf == 0 {
		return 0
	}
	v := (lod + mf) * 255 / (mf + hf)
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return uint8(math.Round(v))
}

func byteToLOD(b uint8, m, h int) float64 {
	if b == 255 {
		return 0
	}
	mf, hf := float64(m), float64(h)
	return -mf + (mf+hf)*float64(b)/255
}

func orientationToByte(rad float64) uint8 {
	v := rad*255/math.Pi/2 + 127.5
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return uint8(math.Round(v))
}

func byteToOrientation(b uint8) float64 {
	return (2*float64(b) - 255) * math.Pi / 255
}

// packCell writes one keypoint's cell content (o.cellPixels pixels, 4 bytes
// each) into dst, which must already be sized o.cellPixels*4.
func packCell(dst []byte, kp Keypoint, o EncoderOptions) {
	fx := uint16(math.Round(kp.Position.X * float64(o.FixResolution)))
	fy := uint16(math.Round(kp.Position.Y * float64(o.FixResolution)))

	dst[0] = byte(fx)
	dst[1] = byte(fx >> 8)
	dst[2] = byte(fy)
	dst[3] = byte(fy >> 8)

	dst[4] = lodToByte(kp.LOD, o.Log2PyramidMaxScale, o.PyramidMaxLevels)
	dst[5] = orientationToByte(kp.Orientation)
	dst[6] = byte(kp.Score)
	dst[7] = byte(kp.Score >> 8)

	copy(dst[8:8+len(kp.Descriptor)], kp.Descriptor)
	copy(dst[8+o.DescriptorSize:8+o.DescriptorSize+len(kp.Extra)], kp.Extra)
}

// unpackCell decodes one keypoint's cell content. ok is false for the
// end-of-list sentinel or an empty (skipped) cell.
func unpackCell(src []byte, o EncoderOptions) (kp Keypoint, ok bool) {
	xLo, xHi, yLo, yHi := src[0], src[1], src[2], src[3]
	rawX := uint16(xLo) | uint16(xHi)<<8
	rawY := uint16(yLo) | uint16(yHi)<<8

	if rawX == endOfList && rawY == endOfList {
		return Keypoint{}, false
	}
	scoreLo := src[6]
	if rawX == 0 && rawY == 0 && scoreLo == 0 {
		return Keypoint{}, false
	}

	kp.Position.X = float64(rawX) / float64(o.FixResolution)
	kp.Position.Y = float64(rawY) / float64(o.FixResolution)
	kp.LOD = byteToLOD(src[4], o.Log2PyramidMaxScale, o.PyramidMaxLevels)
	kp.Orientation = byteToOrientation(src[5])
	kp.Score = uint16(src[6]) | uint16(src[7])<<8

	kp.Descriptor = make([]byte, o.DescriptorSize)
	copy(kp.Descriptor, src[8:8+o.DescriptorSize])
	kp.Extra = make([]byte, o.ExtraSize)
	copy(kp.Extra, src[8+o.DescriptorSize:8+o.DescriptorSize+o.ExtraSize])
	return kp, true
}
