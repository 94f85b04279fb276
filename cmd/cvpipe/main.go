// Command cvpipe demonstrates the cvpipeline runtime: it mixes a source
// image with a darkened copy of itself, runs a corner detector on the
// original, and reports both results.
package main

import (
	"context"
	"flag"
	stdimage "image"
	"image/color"
	"image/png"
	"log"
	"os"

	"github.com/gogpu/cvpipeline"
	"github.com/gogpu/cvpipeline/keypoint"
	"github.com/gogpu/cvpipeline/nodes/imagenode"
	"github.com/gogpu/cvpipeline/nodes/keypointnode"
)

func main() {
	var (
		input     = flag.String("input", "", "input PNG image (a synthetic test pattern is generated if empty)")
		output    = flag.String("output", "cvpipe.png", "output PNG for the mixed frame")
		width     = flag.Int("width", 256, "synthetic pattern width, ignored when -input is set")
		height    = flag.Int("height", 256, "synthetic pattern height, ignored when -input is set")
		alpha     = flag.Float64("alpha", 0.7, "mixer weight for the source image")
		beta      = flag.Float64("beta", 0.3, "mixer weight for the darkened copy")
		threshold = flag.Float64("threshold", 20, "FAST detector corner threshold")
		clip      = flag.Int("clip", 100, "maximum keypoints retained")
	)
	flag.Parse()

	src, err := loadOrGenerate(*input, *width, *height)
	if err != nil {
		log.Fatalf("failed to load input: %v", err)
	}

	dev, err := pipeline.NewDevice()
	if err != nil {
		log.Fatalf("failed to open GPU device: %v", err)
	}
	defer dev.Close()

	if err := runMixDemo(dev, src, *output, float32(*alpha), float32(*beta)); err != nil {
		log.Fatalf("mix demo failed: %v", err)
	}
	if err := runDetectDemo(dev, src, float32(*threshold), *clip); err != nil {
		log.Fatalf("detect demo failed: %v", err)
	}
}

func runMixDemo(dev *pipeline.Device, src stdimage.Image, output string, alpha, beta float32) error {
	bright := pipeline.NewStaticImageMedia(src)
	dark := pipeline.NewStaticImageMedia(darken(src, 0.4))

	sinkNode := imagenode.NewSink()

	g := pipeline.NewGraph()
	a, err := g.AddNode(imagenode.NewSource(bright))
	if err != nil {
		return err
	}
	b, err := g.AddNode(imagenode.NewSource(dark))
	if err != nil {
		return err
	}
	mixer, err := g.AddNode(imagenode.NewMixer(alpha, beta, 0))
	if err != nil {
		return err
	}
	sink, err := g.AddNode(sinkNode)
	if err != nil {
		return err
	}

	if err := g.Connect(a.Output("image"), mixer.Input("a")); err != nil {
		return err
	}
	if err := g.Connect(b.Output("image"), mixer.Input("b")); err != nil {
		return err
	}
	if err := g.Connect(mixer.Output("image"), sink.Input("image")); err != nil {
		return err
	}

	pl, err := g.Build(dev)
	if err != nil {
		return err
	}
	// The sink has no output ports of its own, so Run's Result carries
	// nothing here; the mixed frame is read back via Last instead.
	if _, err := pl.Run(context.Background()); err != nil {
		return err
	}

	frame := sinkNode.Last()
	f, err := os.Create(output)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, frame.ToImage()); err != nil {
		return err
	}
	log.Printf("mixed frame saved to %s", output)
	return nil
}

func runDetectDemo(dev *pipeline.Device, src stdimage.Image, threshold float32, clip int) error {
	media := pipeline.NewStaticImageMedia(src)
	id, err := media.Upload(dev)
	if err != nil {
		return err
	}
	size := media.Size()
	img := pipeline.ImageMessage{Texture: id, Width: size.Width, Height: size.Height}

	det, err := keypointnode.NewDetectorFAST(threshold, 64)
	if err != nil {
		return err
	}
	out, err := det.Process(context.Background(), dev, map[string]pipeline.Message{"image": img})
	if err != nil {
		return err
	}
	clipper := keypointnode.NewClipper(clip)
	clipped, err := clipper.Process(context.Background(), dev, out)
	if err != nil {
		return err
	}

	kpMsg := clipped["keypoints"].(pipeline.KeypointMessage)
	data, err := dev.Adapter().ReadTexture(kpMsg.Texture)
	if err != nil {
		return err
	}
	kps := keypoint.DecodeAll(data, kpMsg.Options)
	log.Printf("detected %d keypoints (threshold=%.1f, clip=%d)", len(kps), threshold, clip)
	return nil
}

func darken(img stdimage.Image, factor float64) stdimage.Image {
	b := img.Bounds()
	out := stdimage.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			out.Set(x, y, color.RGBA{
				R: uint8(float64(r>>8) * factor),
				G: uint8(float64(g>>8) * factor),
				B: uint8(float64(bl>>8) * factor),
				A: uint8(a >> 8),
			})
		}
	}
	return out
}

func loadOrGenerate(path string, width, height int) (stdimage.Image, error) {
	if path == "" {
		return generatePattern(width, height), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func generatePattern(width, height int) stdimage.Image {
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			checker := ((x/16)+(y/16))%2 == 0
			var c color.RGBA
			if checker {
				c = color.RGBA{R: 220, G: 220, B: 220, A: 255}
			} else {
				c = color.RGBA{R: 40, G: 40, B: 40, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}
