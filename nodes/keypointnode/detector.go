package keypointnode

import (
	"context"
	"fmt"

	"github.com/gogpu/cvpipeline"
	"github.com/gogpu/cvpipeline/gpucore"
	"github.com/gogpu/cvpipeline/keypoint"
	"github.com/gogpu/cvpipeline/matrixvm"
)

// DetectorKind selects the corner-response formula a Detector runs.
type DetectorKind int

const (
	// DetectorKindFAST runs a fixed 8-point ring brightness test.
	DetectorKindFAST DetectorKind = iota
	// DetectorKindHarris runs the Harris/Shi-Tomasi structure-tensor response.
	DetectorKindHarris
)

// fastRing is a Bresenham-ish 8-point circle of radius 3, sufficient to
// catch corners without the full 16-point FAST ring.
var fastRing = [8][2]int{{0, -3}, {2, -2}, {3, 0}, {2, 2}, {0, 3}, {-2, 2}, {-3, 0}, {-2, -2}}

const harrisK = 0.04

// Detector finds candidate corners in an image and emits them as a packed
// keypoint list, in raster scan order and untrimmed: capacity is enforced
// downstream by Clipper.
type Detector struct {
	kind          DetectorKind
	threshold     float32
	encoderLength int
	opts          keypoint.EncoderOptions
}

// NewDetectorFAST builds a Detector using the ring-brightness corner test.
// threshold is a raw intensity-difference cutoff in [0,255]. encoderLength
// bounds how many candidates one frame's output texture can hold.
func NewDetectorFAST(threshold float32, encoderLength int) (*Detector, error) {
	return newDetector(DetectorKindFAST, threshold, encoderLength)
}

// NewDetectorHarris builds a Detector using the Harris corner response.
func NewDetectorHarris(threshold float32, encoderLength int) (*Detector, error) {
	return newDetector(DetectorKindHarris, threshold, encoderLength)
}

func newDetector(kind DetectorKind, threshold float32, encoderLength int) (*Detector, error) {
	opts, err := keypoint.NewEncoderOptions(0, 0, encoderLength, keypoint.EncoderOptions{})
	if err != nil {
		return nil, err
	}
	return &Detector{kind: kind, threshold: threshold, encoderLength: encoderLength, opts: opts}, nil
}

func (d *Detector) Name() string {
	if d.kind == DetectorKindHarris {
		return "keypoint.DetectorHarris"
	}
	return "keypoint.DetectorFAST"
}

func (d *Detector) Inputs() []pipeline.PortSpec {
	return []pipeline.PortSpec{{Name: "image", Kind: pipeline.KindImage}}
}

func (d *Detector) Outputs() []pipeline.PortSpec {
	return []pipeline.PortSpec{{Name: "keypoints", Kind: pipeline.KindKeypoint}}
}

func (d *Detector) Process(ctx context.Context, dev *pipeline.Device, in map[string]pipeline.Message) (map[string]pipeline.Message, error) {
	img, ok := in["image"].(pipeline.ImageMessage)
	if !ok {
		return nil, fmt.Errorf("%s: expected ImageMessage on input %q", d.Name(), "image")
	}
	data, err := dev.Adapter().ReadTexture(img.Texture)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Name(), err)
	}

	gray := toGray(data, img.Width, img.Height)
	var scores []uint8
	switch d.kind {
	case DetectorKindHarris:
		scores, err = scoreHarris(gray, img.Width, img.Height, d.threshold)
	default:
		scores = scoreFAST(gray, img.Width, img.Height, d.threshold)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Name(), err)
	}

	sparse := buildSparseFromScores(scores, img.Width, img.Height)
	packed, err := keypoint.EncodeCPU(sparse, img.Width, img.Height, d.opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Name(), err)
	}
	id, err := dev.Pool().Acquire(d.encoderLength, d.encoderLength, gpucore.TextureFormatRGBA8Unorm)
	if err != nil {
		return nil, err
	}
	dev.Adapter().WriteTexture(id, packed)

	return map[string]pipeline.Message{
		"keypoints": pipeline.KeypointMessage{Texture: id, EncoderLength: d.encoderLength, Options: d.opts},
	}, nil
}

// toGray averages RGBA8 channels into a single-byte-per-pixel intensity plane.
func toGray(rgba []byte, width, height int) []uint8 {
	gray := make([]uint8, width*height)
	for i := range gray {
		off := i * 4
		gray[i] = uint8((int(rgba[off]) + int(rgba[off+1]) + int(rgba[off+2])) / 3)
	}
	return gray
}

// scoreFAST runs the 8-point ring test at every interior pixel; score 0
// means "not a corner", matching the sparse-format R-channel convention.
func scoreFAST(gray []uint8, width, height int, threshold float32) []uint8 {
	scores := make([]uint8, width*height)
	margin := 3
	th := int(threshold)
	for y := margin; y < height-margin; y++ {
		for x := margin; x < width-margin; x++ {
			center := int(gray[y*width+x])
			brighter, darker := 0, 0
			sum := 0
			for _, o := range fastRing {
				v := int(gray[(y+o[1])*width+(x+o[0])])
				diff := v - center
				if diff > th {
					brighter++
					sum += diff
				} else if -diff > th {
					darker++
					sum += -diff
				}
			}
			if brighter >= 6 || darker >= 6 {
				scores[y*width+x] = clampScoreByte(sum / len(fastRing))
			}
		}
	}
	return scores
}

// scoreHarris computes the Harris corner response over a 3x3 Sobel window,
// solving the structure tensor's determinant and trace through the matrix
// VM rather than hand-rolled 2x2 arithmetic.
func scoreHarris(gray []uint8, width, height int, threshold float32) ([]uint8, error) {
	scores := make([]uint8, width*height)
	for y := 2; y < height-2; y++ {
		for x := 2; x < width-2; x++ {
			var sxx, syy, sxy float64
			for wy := -1; wy <= 1; wy++ {
				for wx := -1; wx <= 1; wx++ {
					px, py := x+wx, y+wy
					ix := float64(gray[py*width+px+1]) - float64(gray[py*width+px-1])
					iy := float64(gray[(py+1)*width+px]) - float64(gray[(py-1)*width+px])
					sxx += ix * ix
					syy += iy * iy
					sxy += ix * iy
				}
			}
			m, err := matrixvm.New(2, 2, 2, matrixvm.Float64)
			if err != nil {
				return nil, err
			}
			m.Set(0, 0, sxx)
			m.Set(0, 1, sxy)
			m.Set(1, 0, sxy)
			m.Set(1, 1, syy)

			det, err := matrixvm.Dispatch(matrixvm.Instruction{Op: matrixvm.DETERMINANT2X2, A: m})
			if err != nil {
				return nil, err
			}
			trace, err := matrixvm.Dispatch(matrixvm.Instruction{Op: matrixvm.TRACE, A: m})
			if err != nil {
				return nil, err
			}
			response := det - harrisK*trace*trace
			if response > float64(threshold) {
				scores[y*width+x] = clampScoreByte(int(response / 256))
			}
		}
	}
	return scores, nil
}

func clampScoreByte(v int) uint8 {
	if v <= 0 {
		return 1
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// buildSparseFromScores turns a per-pixel score plane into the RGBA8 sparse
// detector format keypoint.ScanSparse understands: R carries the score, B
// carries a raster-order skip hint computed by a single backward pass so
// the forward scan can jump straight to the next candidate.
func buildSparseFromScores(scores []uint8, width, height int) []byte {
	total := width * height
	out := make([]byte, total*4)
	nextHit := total
	for i := total - 1; i >= 0; i-- {
		off := i * 4
		if scores[i] != 0 {
			out[off] = scores[i]
			nextHit = i
			continue
		}
		gap := nextHit - i - 1
		if gap > 255 {
			gap = 255
		}
		out[off+2] = uint8(gap)
	}
	return out
}
