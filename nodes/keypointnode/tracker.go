package keypointnode

import (
	"context"
	"fmt"

	"github.com/gogpu/cvpipeline"
	"github.com/gogpu/cvpipeline/geom"
	"github.com/gogpu/cvpipeline/keypoint"
	"github.com/gogpu/cvpipeline/matrixvm"
)

// TrackerLK tracks a keypoint list from a previous frame into the current
// frame using single-level, iterative Lucas-Kanade optical flow.
type TrackerLK struct {
	windowSize     int
	iterations     int
	pyramidDepth   int
	minDeterminant float64
}

// NewTrackerLK builds a Lucas-Kanade tracker. pyramidDepth is accepted for
// API parity with a multi-scale tracker but this implementation only
// searches at the base resolution.
func NewTrackerLK(windowSize, iterations, pyramidDepth int) *TrackerLK {
	return &TrackerLK{windowSize: windowSize, iterations: iterations, pyramidDepth: pyramidDepth, minDeterminant: 1e-6}
}

func (t *TrackerLK) Name() string { return "keypoint.TrackerLK" }

func (t *TrackerLK) Inputs() []pipeline.PortSpec {
	return []pipeline.PortSpec{
		{Name: "previousImage", Kind: pipeline.KindImage},
		{Name: "currentImage", Kind: pipeline.KindImage},
		{Name: "keypoints", Kind: pipeline.KindKeypoint},
	}
}

func (t *TrackerLK) Outputs() []pipeline.PortSpec {
	return []pipeline.PortSpec{{Name: "keypoints", Kind: pipeline.KindKeypoint}}
}

func (t *TrackerLK) Process(ctx context.Context, dev *pipeline.Device, in map[string]pipeline.Message) (map[string]pipeline.Message, error) {
	prevImg, ok := in["previousImage"].(pipeline.ImageMessage)
	if !ok {
		return nil, fmt.Errorf("keypoint.TrackerLK: expected ImageMessage on input %q", "previousImage")
	}
	curImg, ok := in["currentImage"].(pipeline.ImageMessage)
	if !ok {
		return nil, fmt.Errorf("keypoint.TrackerLK: expected ImageMessage on input %q", "currentImage")
	}
	kpMsg, ok := in["keypoints"].(pipeline.KeypointMessage)
	if !ok {
		return nil, fmt.Errorf("keypoint.TrackerLK: expected KeypointMessage on input %q", "keypoints")
	}
	if prevImg.Width != curImg.Width || prevImg.Height != curImg.Height {
		return nil, fmt.Errorf("keypoint.TrackerLK: mismatched frame sizes %dx%d vs %dx%d", prevImg.Width, prevImg.Height, curImg.Width, curImg.Height)
	}

	prevRGBA, err := dev.Adapter().ReadTexture(prevImg.Texture)
	if err != nil {
		return nil, fmt.Errorf("keypoint.TrackerLK: %w", err)
	}
	curRGBA, err := dev.Adapter().ReadTexture(curImg.Texture)
	if err != nil {
		return nil, fmt.Errorf("keypoint.TrackerLK: %w", err)
	}
	prevGray := toGray(prevRGBA, prevImg.Width, prevImg.Height)
	curGray := toGray(curRGBA, curImg.Width, curImg.Height)

	kps, err := readKeypoints(dev, kpMsg)
	if err != nil {
		return nil, err
	}
	for i, kp := range kps {
		tracked, ok := t.trackOne(kp, prevGray, curGray, prevImg.Width, prevImg.Height)
		if ok {
			kps[i] = tracked
		}
	}

	out, err := writeKeypoints(dev, kps, kpMsg.Options)
	if err != nil {
		return nil, err
	}
	return map[string]pipeline.Message{"keypoints": out}, nil
}

// trackOne runs iterative Lucas-Kanade for one keypoint, solving the 2x2
// normal equations G*d = b through the matrix VM at each iteration.
func (t *TrackerLK) trackOne(kp keypoint.Keypoint, prev, cur []uint8, width, height int) (keypoint.Keypoint, bool) {
	half := t.windowSize / 2
	x0, y0 := kp.Position.X, kp.Position.Y
	dx, dy := 0.0, 0.0

	for iter := 0; iter < t.iterations; iter++ {
		var gxx, gxy, gyy, bx, by float64
		samples := 0
		for wy := -half; wy <= half; wy++ {
			for wx := -half; wx <= half; wx++ {
				px, py := int(x0)+wx, int(y0)+wy
				qx, qy := int(x0+dx)+wx, int(y0+dy)+wy
				if !inBounds(px, py, width, height) || !inBounds(qx, qy, width, height) {
					continue
				}
				ix := gradX(prev, px, py, width, height)
				iy := gradY(prev, px, py, width, height)
				it := float64(cur[qy*width+qx]) - float64(prev[py*width+px])
				gxx += ix * ix
				gxy += ix * iy
				gyy += iy * iy
				bx += -ix * it
				by += -iy * it
				samples++
			}
		}
		if samples == 0 {
			return kp, false
		}

		g, err := matrixvm.New(2, 2, 2, matrixvm.Float64)
		if err != nil {
			return kp, false
		}
		g.Set(0, 0, gxx)
		g.Set(0, 1, gxy)
		g.Set(1, 0, gxy)
		g.Set(1, 1, gyy)

		det, err := matrixvm.Dispatch(matrixvm.Instruction{Op: matrixvm.DETERMINANT2X2, A: g})
		if err != nil || (det < t.minDeterminant && det > -t.minDeterminant) {
			return kp, false
		}

		inv, err := matrixvm.New(2, 2, 2, matrixvm.Float64)
		if err != nil {
			return kp, false
		}
		if _, err := matrixvm.Dispatch(matrixvm.Instruction{Op: matrixvm.INVERT2X2, Dst: inv, A: g}); err != nil {
			return kp, false
		}

		ddx := inv.At(0, 0)*bx + inv.At(0, 1)*by
		ddy := inv.At(1, 0)*bx + inv.At(1, 1)*by
		dx += ddx
		dy += ddy
		if ddx*ddx+ddy*ddy < 1e-4 {
			break
		}
	}

	kp.Position = geom.Pt(x0+dx, y0+dy)
	return kp, true
}

func inBounds(x, y, width, height int) bool {
	return x >= 1 && y >= 1 && x < width-1 && y < height-1
}

func gradX(gray []uint8, x, y, width, height int) float64 {
	return (float64(gray[y*width+x+1]) - float64(gray[y*width+x-1])) / 2
}

func gradY(gray []uint8, x, y, width, height int) float64 {
	return (float64(gray[(y+1)*width+x]) - float64(gray[(y-1)*width+x])) / 2
}
