package keypoint

import (
	"errors"
	"math"
	"testing"

	"github.com/gogpu/cvpipeline/geom"
)

func testOptions(t *testing.T, descriptorSize, extraSize, encoderLength int) EncoderOptions {
	t.Helper()
	opts, err := NewEncoderOptions(descriptorSize, extraSize, encoderLength, EncoderOptions{TileSize: 4})
	if err != nil {
		t.Fatalf("NewEncoderOptions: %v", err)
	}
	return opts
}

func TestNewEncoderOptionsRejectsUnevenTiling(t *testing.T) {
	// 8x8 texture, cellPixels = ceil(8/4) = 2, totalCells = 32; tile size 5
	// does not divide 32.
	_, err := NewEncoderOptions(0, 0, 8, EncoderOptions{TileSize: 5})
	if !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("NewEncoderOptions() error = %v, want ErrInvalidOptions", err)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	opts := testOptions(t, 4, 2, 16)

	kps := []Keypoint{
		{Position: geom.Pt(1.5, 2.25), LOD: 1, Orientation: 0.5, Score: 300, Descriptor: []byte{1, 2, 3, 4}, Extra: []byte{9, 9}},
		{Position: geom.Pt(0, 0), LOD: -2, Orientation: -1.2, Score: 1, Descriptor: []byte{0, 0, 0, 0}, Extra: []byte{0, 0}},
	}

	packed, err := EncodeKeypointsCPU(kps, opts)
	if err != nil {
		t.Fatalf("EncodeKeypointsCPU: %v", err)
	}
	if len(packed) != opts.EncoderLength*opts.EncoderLength*4 {
		t.Fatalf("packed length = %d, want %d", len(packed), opts.EncoderLength*opts.EncoderLength*4)
	}

	got := DecodeAll(packed, opts)
	if len(got) != len(kps) {
		t.Fatalf("DecodeAll returned %d keypoints, want %d", len(got), len(kps))
	}
	lodTolerance := (float64(opts.Log2PyramidMaxScale) + float64(opts.PyramidMaxLevels)) / 255
	for i, want := range kps {
		if math.Abs(got[i].Position.X-want.Position.X) > 1.0/float64(opts.FixResolution) {
			t.Errorf("kp[%d].Position.X = %v, want ~%v", i, got[i].Position.X, want.Position.X)
		}
		if math.Abs(got[i].Position.Y-want.Position.Y) > 1.0/float64(opts.FixResolution) {
			t.Errorf("kp[%d].Position.Y = %v, want ~%v", i, got[i].Position.Y, want.Position.Y)
		}
		if math.Abs(got[i].LOD-want.LOD) > lodTolerance {
			t.Errorf("kp[%d].LOD = %v, want ~%v", i, got[i].LOD, want.LOD)
		}
		if got[i].Score != want.Score {
			t.Errorf("kp[%d].Score = %d, want %d", i, got[i].Score, want.Score)
		}
		if string(got[i].Descriptor) != string(want.Descriptor) {
			t.Errorf("kp[%d].Descriptor = %v, want %v", i, got[i].Descriptor, want.Descriptor)
		}
	}
}

func TestDecodeEmptyListYieldsNoKeypoints(t *testing.T) {
	opts := testOptions(t, 0, 0, 16)
	packed, err := EncodeKeypointsCPU(nil, opts)
	if err != nil {
		t.Fatalf("EncodeKeypointsCPU: %v", err)
	}
	got := DecodeAll(packed, opts)
	if len(got) != 0 {
		t.Fatalf("DecodeAll returned %d keypoints, want 0", len(got))
	}
}

func TestEncodeTruncatesAtCapacity(t *testing.T) {
	opts := testOptions(t, 0, 0, 8) // small texture, few cells
	full := make([]Keypoint, opts.TotalCells()+5)
	for i := range full {
		full[i] = Keypoint{Position: geom.Pt(float64(i), 0)}
	}

	packed, err := EncodeKeypointsCPU(full, opts)
	if err != nil {
		t.Fatalf("EncodeKeypointsCPU: %v", err)
	}
	got := DecodeAll(packed, opts)
	if len(got) != opts.TotalCells() {
		t.Fatalf("DecodeAll returned %d keypoints, want exactly %d (full capacity, no room for sentinel)", len(got), opts.TotalCells())
	}
}

func TestDescriptorLengthMismatchRejected(t *testing.T) {
	opts := testOptions(t, 4, 0, 16)
	_, err := EncodeKeypointsCPU([]Keypoint{{Descriptor: []byte{1, 2}}}, opts)
	if err == nil {
		t.Fatal("expected error for mismatched descriptor length")
	}
}
