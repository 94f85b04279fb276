package imagenode

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/cvpipeline"
	"github.com/gogpu/cvpipeline/gpucore"
	"github.com/gogpu/cvpipeline/internal/gpu"
)

const mixerKernelName = "image.mixer"

func init() {
	gpu.RegisterKernel(mixerKernelName, mixerKernel)
}

// Mixer composites two same-sized images with a linear blend:
// dst = a*Alpha + b*Beta + Gamma.
type Mixer struct {
	alpha float32
	beta  float32
	gamma float32
}

// NewMixer creates a Mixer computing alpha*A + beta*B + gamma per channel.
func NewMixer(alpha, beta, gamma float32) *Mixer {
	return &Mixer{alpha: alpha, beta: beta, gamma: gamma}
}

func (m *Mixer) Name() string { return "image.Mixer" }

func (m *Mixer) Inputs() []pipeline.PortSpec {
	return []pipeline.PortSpec{
		{Name: "a", Kind: pipeline.KindImage},
		{Name: "b", Kind: pipeline.KindImage},
	}
}

func (m *Mixer) Outputs() []pipeline.PortSpec {
	return []pipeline.PortSpec{{Name: "image", Kind: pipeline.KindImage}}
}

func (m *Mixer) Process(ctx context.Context, dev *pipeline.Device, in map[string]pipeline.Message) (map[string]pipeline.Message, error) {
	a, ok := in["a"].(pipeline.ImageMessage)
	if !ok {
		return nil, fmt.Errorf("image.Mixer: expected ImageMessage on input %q", "a")
	}
	b, ok := in["b"].(pipeline.ImageMessage)
	if !ok {
		return nil, fmt.Errorf("image.Mixer: expected ImageMessage on input %q", "b")
	}
	if a.Width != b.Width || a.Height != b.Height {
		return nil, fmt.Errorf("image.Mixer: mismatched input sizes %dx%d vs %dx%d", a.Width, a.Height, b.Width, b.Height)
	}

	dstID, err := dev.Pool().Acquire(a.Width, a.Height, gpucore.TextureFormatRGBA8Unorm)
	if err != nil {
		return nil, err
	}

	uniformBytes := encodeMixerUniforms(gpucore.MixerUniforms{
		Width: uint32(a.Width), Height: uint32(a.Height),
		Alpha: m.alpha, Beta: m.beta, Gamma: m.gamma,
	})
	uniformBuf, err := dev.Adapter().CreateBuffer(len(uniformBytes), gpucore.BufferUsageUniform)
	if err != nil {
		return nil, err
	}
	defer dev.Adapter().DestroyBuffer(uniformBuf)
	dev.Adapter().WriteBuffer(uniformBuf, 0, uniformBytes)

	layout, err := dev.Adapter().CreateBindGroupLayout(&gpucore.BindGroupLayoutDesc{
		Entries: []gpucore.BindGroupLayoutEntry{
			{Binding: 0, Type: gpucore.BindingTypeUniformBuffer},
			{Binding: 1, Type: gpucore.BindingTypeSampledTexture},
			{Binding: 2, Type: gpucore.BindingTypeSampledTexture},
			{Binding: 3, Type: gpucore.BindingTypeStorageTexture},
		},
	})
	if err != nil {
		return nil, err
	}
	defer dev.Adapter().DestroyBindGroupLayout(layout)

	pipelineLayout, err := dev.Adapter().CreatePipelineLayout([]gpucore.BindGroupLayoutID{layout})
	if err != nil {
		return nil, err
	}
	defer dev.Adapter().DestroyPipelineLayout(pipelineLayout)

	pipe, err := dev.Adapter().CreateComputePipeline(&gpucore.ComputePipelineDesc{
		Label: "image.mixer", Layout: pipelineLayout, EntryPoint: mixerKernelName,
	})
	if err != nil {
		return nil, err
	}
	defer dev.Adapter().DestroyComputePipeline(pipe)

	bindGroup, err := dev.Adapter().CreateBindGroup(layout, []gpucore.BindGroupEntry{
		{Binding: 0, Buffer: uniformBuf},
		{Binding: 1, Texture: a.Texture},
		{Binding: 2, Texture: b.Texture},
		{Binding: 3, Texture: dstID},
	})
	if err != nil {
		return nil, err
	}
	defer dev.Adapter().DestroyBindGroup(bindGroup)

	pass := dev.Adapter().BeginComputePass()
	pass.SetPipeline(pipe)
	pass.SetBindGroup(0, bindGroup)
	pass.Dispatch(uint32(a.Width), uint32(a.Height), 1)
	pass.End()
	dev.Adapter().Submit()

	if _, err := dev.Adapter().ReadTexture(dstID); err != nil {
		return nil, fmt.Errorf("image.Mixer: %w", err)
	}

	return map[string]pipeline.Message{
		"image": pipeline.ImageMessage{Texture: dstID, Width: a.Width, Height: a.Height},
	}, nil
}

func encodeMixerUniforms(u gpucore.MixerUniforms) []byte {
	buf := make([]byte, 32)
	binary.LittleEndian.PutUint32(buf[0:4], u.Width)
	binary.LittleEndian.PutUint32(buf[4:8], u.Height)
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(u.Alpha))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(u.Beta))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(u.Gamma))
	binary.LittleEndian.PutUint32(buf[20:24], u.Padding1)
	binary.LittleEndian.PutUint32(buf[24:28], u.Padding2)
	binary.LittleEndian.PutUint32(buf[28:32], u.Padding3)
	return buf
}

// mixerKernel is the CPU-simulated stand-in for the alpha-blend WGSL
// compute shader, resolved by name through gpu.RegisterKernel.
func mixerKernel(a *gpu.StubAdapter, binds []gpucore.BindGroupEntry, x, y, z uint32) error {
	var uniformBuf gpucore.BufferID
	var texA, texB, texDst gpucore.TextureID
	for _, e := range binds {
		switch e.Binding {
		case 0:
			uniformBuf = e.Buffer
		case 1:
			texA = e.Texture
		case 2:
			texB = e.Texture
		case 3:
			texDst = e.Texture
		}
	}

	uniformBytes, err := a.ReadBuffer(uniformBuf, 0, 32)
	if err != nil {
		return err
	}
	width := binary.LittleEndian.Uint32(uniformBytes[0:4])
	height := binary.LittleEndian.Uint32(uniformBytes[4:8])
	alpha := math.Float32frombits(binary.LittleEndian.Uint32(uniformBytes[8:12]))
	beta := math.Float32frombits(binary.LittleEndian.Uint32(uniformBytes[12:16]))
	gamma := math.Float32frombits(binary.LittleEndian.Uint32(uniformBytes[16:20]))

	dataA, err := a.ReadTexture(texA)
	if err != nil {
		return err
	}
	dataB, err := a.ReadTexture(texB)
	if err != nil {
		return err
	}

	out := make([]byte, width*height*4)
	for i := range out {
		v := float32(dataA[i])*alpha + float32(dataB[i])*beta + gamma
		out[i] = clampByte(v)
	}
	a.WriteTexture(texDst, out)
	return nil
}

func clampByte(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}
