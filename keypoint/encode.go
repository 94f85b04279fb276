package keypoint

import "fmt"

// EncodeKeypointsCPU packs kps into a dense keypoint texture, in scan order,
// truncating silently if len(kps) exceeds opts.TotalCells() (the encoder
// kernel has no way to grow its output texture mid-run; callers that need
// to detect truncation should compare len(kps) against opts.TotalCells()
// themselves). The returned buffer is exactly
// opts.EncoderLength*opts.EncoderLength*4 bytes.
func EncodeKeypointsCPU(kps []Keypoint, opts EncoderOptions) ([]byte, error) {
	for _, kp := range kps {
		if len(kp.Descriptor) != opts.DescriptorSize {
			return nil, fmt.Errorf("keypoint: descriptor length %d does not match encoder options %d", len(kp.Descriptor), opts.DescriptorSize)
		}
		if len(kp.Extra) != opts.ExtraSize {
			return nil, fmt.Errorf("keypoint: extra length %d does not match encoder options %d", len(kp.Extra), opts.ExtraSize)
		}
	}

	out := make([]byte, opts.EncoderLength*opts.EncoderLength*4)
	cellBytes := opts.cellPixels * 4

	n := len(kps)
	if n > opts.totalCells {
		n = opts.totalCells
	}
	for q := 0; q < n; q++ {
		start := q * cellBytes
		packCell(out[start:start+cellBytes], kps[q], opts)
	}
	if n < opts.totalCells {
		writeEndOfList(out[n*cellBytes:(n+1)*cellBytes])
	}
	return out, nil
}

// writeEndOfList marks the given cell as the sentinel that terminates the
// keypoint list; any cells beyond it are considered unreachable and left
// zeroed, which the decoder treats as empty/skippable cells anyway.
func writeEndOfList(cell []byte) {
	cell[0], cell[1] = 0xFF, 0xFF
	cell[2], cell[3] = 0xFF, 0xFF
}

// EncodeCPU is the reference detector-output encoder: it scans a raw sparse
// image for keypoints and packs them into a dense texture, matching the
// contract the GPU encoder kernel implements against the same sparse format.
func EncodeCPU(sparse []byte, sourceWidth, sourceHeight int, opts EncoderOptions) ([]byte, error) {
	kps := ScanSparse(sparse, sourceWidth, sourceHeight)
	return EncodeKeypointsCPU(kps, opts)
}
