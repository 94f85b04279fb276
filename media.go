package pipeline

import (
	stdimage "image"

	"golang.org/x/image/draw"

	"github.com/gogpu/cvpipeline/geom"
	"github.com/gogpu/cvpipeline/gpucore"
	"github.com/gogpu/cvpipeline/pixel"
)

// Media is the boundary between the outside world (files, cameras,
// framebuffers) and a pipeline's image.Source nodes.
type Media interface {
	// Size returns the media's pixel dimensions.
	Size() geom.Size

	// Upload writes the media's current frame into a fresh texture
	// acquired from dev's pool and returns it. The caller (the node that
	// owns this Media) is responsible for releasing the texture through
	// the normal scheduler fan-out accounting once it has been consumed.
	Upload(dev *Device) (gpucore.TextureID, error)
}

// StaticImageMedia adapts a decoded standard library image into Media,
// for pipelines whose source is a single still frame rather than a live
// feed.
type StaticImageMedia struct {
	buf *pixel.Buffer
}

// NewStaticImageMedia decodes img into a row-major RGBA8 buffer once, at
// construction time, so repeated Upload calls do not re-walk img.At.
func NewStaticImageMedia(img stdimage.Image) *StaticImageMedia {
	return &StaticImageMedia{buf: pixel.FromImage(img)}
}

// NewResizedImageMedia scales img to width x height using a high-quality
// bilinear filter before wrapping it, for pipelines whose node graph
// expects a fixed input resolution.
func NewResizedImageMedia(img stdimage.Image, width, height int) *StaticImageMedia {
	dst := stdimage.NewRGBA(stdimage.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return NewStaticImageMedia(dst)
}

func (m *StaticImageMedia) Size() geom.Size {
	return geom.Size{Width: m.buf.Width(), Height: m.buf.Height()}
}

func (m *StaticImageMedia) Upload(dev *Device) (gpucore.TextureID, error) {
	id, err := dev.pool.Acquire(m.buf.Width(), m.buf.Height(), gpucore.TextureFormatRGBA8Unorm)
	if err != nil {
		return 0, err
	}
	dev.adapter.WriteTexture(id, m.buf.Bytes())
	return id, nil
}
