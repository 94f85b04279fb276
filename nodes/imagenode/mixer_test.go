package imagenode

import (
	"context"
	"testing"

	"github.com/gogpu/cvpipeline"
	"github.com/gogpu/cvpipeline/gpucore"
	"github.com/gogpu/cvpipeline/internal/gpu"
)

func uploadSolidImage(t *testing.T, dev *pipeline.Device, w, h int, r, g, b, a byte) pipeline.ImageMessage {
	t.Helper()
	id, err := dev.Pool().Acquire(w, h, gpucore.TextureFormatRGBA8Unorm)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	px := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		px[i*4], px[i*4+1], px[i*4+2], px[i*4+3] = r, g, b, a
	}
	dev.Adapter().WriteTexture(id, px)
	return pipeline.ImageMessage{Texture: id, Width: w, Height: h}
}

func TestMixerAlphaBlend(t *testing.T) {
	dev, err := pipeline.NewDevice(pipeline.WithAdapter(gpu.NewStubAdapter()))
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	defer dev.Close()

	a := uploadSolidImage(t, dev, 4, 4, 128, 128, 128, 255)
	b := uploadSolidImage(t, dev, 4, 4, 64, 64, 64, 255)

	mixer := NewMixer(0.5, 0.5, 0)
	out, err := mixer.Process(context.Background(), dev, map[string]pipeline.Message{"a": a, "b": b})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	img, ok := out["image"].(pipeline.ImageMessage)
	if !ok {
		t.Fatalf("output %+v is not an ImageMessage", out["image"])
	}
	if img.Width != 4 || img.Height != 4 {
		t.Fatalf("output size = %dx%d, want 4x4", img.Width, img.Height)
	}

	data, err := dev.Adapter().ReadTexture(img.Texture)
	if err != nil {
		t.Fatalf("ReadTexture: %v", err)
	}
	for i := 0; i < 4*4; i++ {
		px := data[i*4 : i*4+4]
		if px[0] != 96 || px[1] != 96 || px[2] != 96 || px[3] != 255 {
			t.Fatalf("pixel %d = %v, want (96,96,96,255)", i, px)
		}
	}
}

func TestMixerAppliesGammaUnscaled(t *testing.T) {
	dev, err := pipeline.NewDevice(pipeline.WithAdapter(gpu.NewStubAdapter()))
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	defer dev.Close()

	a := uploadSolidImage(t, dev, 4, 4, 100, 100, 100, 255)
	b := uploadSolidImage(t, dev, 4, 4, 100, 100, 100, 255)

	// alpha+beta already sum to 100; gamma is a small additive offset on
	// the raw byte value, not a fraction of 255.
	mixer := NewMixer(0.5, 0.5, 10)
	out, err := mixer.Process(context.Background(), dev, map[string]pipeline.Message{"a": a, "b": b})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	img := out["image"].(pipeline.ImageMessage)

	data, err := dev.Adapter().ReadTexture(img.Texture)
	if err != nil {
		t.Fatalf("ReadTexture: %v", err)
	}
	for i := 0; i < 4*4; i++ {
		px := data[i*4 : i*4+4]
		if px[0] != 110 || px[1] != 110 || px[2] != 110 {
			t.Fatalf("pixel %d = %v, want (110,110,110,_) (gamma=10 added as a raw offset, not *255)", i, px)
		}
	}
}

func TestMixerRejectsMismatchedSizes(t *testing.T) {
	dev, err := pipeline.NewDevice(pipeline.WithAdapter(gpu.NewStubAdapter()))
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	defer dev.Close()

	a := uploadSolidImage(t, dev, 4, 4, 0, 0, 0, 255)
	b := uploadSolidImage(t, dev, 2, 2, 0, 0, 0, 255)

	mixer := NewMixer(0.5, 0.5, 0)
	if _, err := mixer.Process(context.Background(), dev, map[string]pipeline.Message{"a": a, "b": b}); err == nil {
		t.Fatal("Process with mismatched sizes: got nil error, want one")
	}
}
