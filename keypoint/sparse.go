package keypoint

import "github.com/gogpu/cvpipeline/geom"

// Sparse raw detector output: one RGBA8 pixel per source pixel.
//
//	R = score (0 means "not a keypoint")
//	G = intensity, carried through for downstream tie-breaking, not decoded
//	B = skip hint: the next keypoint is at least 1 + round(B/255*255) = 1+B
//	    pixels ahead in raster order; a non-keypoint pixel sets this to the
//	    largest distance it can still guarantee is safe to skip
//	A = scale, used directly as the packed LOD byte
const sparseBytesPerPixel = 4

// ScanSparse walks a raw sparse detector image in raster order, following
// skip hints to jump over runs of non-keypoint pixels, and returns the
// keypoints it finds in scan order. This is the CPU-side equivalent of the
// GPU encoder kernel's per-thread "find the q-th keypoint" walk: run once
// here, indexed by position, rather than once per q.
func ScanSparse(sparse []byte, width, height int) []Keypoint {
	if width <= 0 || height <= 0 {
		return nil
	}
	var out []Keypoint
	total := width * height
	for i := 0; i < total; {
		off := i * sparseBytesPerPixel
		r, _, b, a := sparse[off], sparse[off+1], sparse[off+2], sparse[off+3]
		if r == 0 {
			skip := 1 + int(b)
			i += skip
			continue
		}
		x, y := i%width, i/width
		out = append(out, Keypoint{
			Position: geom.Pt(float64(x), float64(y)),
			LOD:      byteToLOD(a, DefaultLog2PyramidMaxScale, DefaultPyramidMaxLevels),
			Score:    uint16(r),
		})
		i++
	}
	return out
}
