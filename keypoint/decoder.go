package keypoint

// Decoder walks a packed keypoint texture cell by cell, in the same scan
// order the encoder wrote it in. It holds no reference to the source
// texture's GPU resource; callers read the texture back into a plain byte
// slice first and hand it to NewDecoder.
type Decoder struct {
	data []byte
	opts EncoderOptions
	pos  int // next cell index to read
	done bool
}

// NewDecoder creates a Decoder over a fully read-back packed keypoint
// texture. data must be opts.EncoderLength*opts.EncoderLength*4 bytes.
func NewDecoder(data []byte, opts EncoderOptions) *Decoder {
	return &Decoder{data: data, opts: opts}
}

// Next returns the next keypoint in scan order. ok is false once the
// end-of-list sentinel has been reached or every cell has been consumed;
// once Next returns ok == false it will keep doing so on every subsequent
// call.
func (d *Decoder) Next() (kp Keypoint, ok bool) {
	cellBytes := d.opts.cellPixels * 4
	for !d.done && d.pos < d.opts.totalCells {
		start := d.pos * cellBytes
		d.pos++
		cell := d.data[start : start+cellBytes]
		kp, present := unpackCell(cell, d.opts)
		if !present {
			// An empty cell mid-list is skipped; the sentinel ends the scan.
			if isEndOfListCell(cell) {
				d.done = true
				return Keypoint{}, false
			}
			continue
		}
		return kp, true
	}
	d.done = true
	return Keypoint{}, false
}

func isEndOfListCell(cell []byte) bool {
	rawX := uint16(cell[0]) | uint16(cell[1])<<8
	rawY := uint16(cell[2]) | uint16(cell[3])<<8
	return rawX == endOfList && rawY == endOfList
}

// DecodeAll drains the decoder and returns every keypoint it yields.
func DecodeAll(data []byte, opts EncoderOptions) []Keypoint {
	d := NewDecoder(data, opts)
	var out []Keypoint
	for {
		kp, ok := d.Next()
		if !ok {
			break
		}
		out = append(out, kp)
	}
	return out
}
