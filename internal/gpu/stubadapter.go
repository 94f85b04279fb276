package gpu

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/cvpipeline/gpucore"
)

// bytesPerPixel returns the pixel stride for a gpucore.TextureFormat.
func bytesPerPixel(f gpucore.TextureFormat) int {
	switch f {
	case gpucore.TextureFormatRGBA8Unorm, gpucore.TextureFormatRGBA8UnormSRGB,
		gpucore.TextureFormatBGRA8Unorm, gpucore.TextureFormatBGRA8UnormSRGB:
		return 4
	case gpucore.TextureFormatR8Unorm:
		return 1
	case gpucore.TextureFormatR32Float:
		return 4
	case gpucore.TextureFormatRG32Float:
		return 8
	case gpucore.TextureFormatRGBA32Float:
		return 16
	default:
		return 4
	}
}

type stubTexture struct {
	width, height int
	format        gpucore.TextureFormat
	data          []byte
}

type pendingDispatch struct {
	kernel string
	binds  []gpucore.BindGroupEntry
	x, y, z uint32
}

// StubAdapter is a [gpucore.GPUAdapter] implementation that runs entirely
// on the CPU. It never touches a real GPU: buffers and textures are plain
// byte slices, and "shader modules" are names looked up in the [KernelFunc]
// registry via RegisterKernel.
//
// StubAdapter is the adapter used by tests and by any pipeline built with
// [gpucore.AdapterCapabilities.SupportsCompute] == false upstream, or
// explicitly selected through RuntimeConfig.
type StubAdapter struct {
	mu sync.Mutex

	nextID uint64

	buffers  map[gpucore.BufferID][]byte
	textures map[gpucore.TextureID]*stubTexture
	shaders  map[gpucore.ShaderModuleID]struct{}
	bgLayout map[gpucore.BindGroupLayoutID]*gpucore.BindGroupLayoutDesc
	pLayout  map[gpucore.PipelineLayoutID][]gpucore.BindGroupLayoutID
	pipes    map[gpucore.ComputePipelineID]string // entry point / kernel name
	bindGrps map[gpucore.BindGroupID][]gpucore.BindGroupEntry

	pending []pendingDispatch
	lastErr error

	closed atomic.Bool
}

// NewStubAdapter creates a ready-to-use CPU simulation adapter.
func NewStubAdapter() *StubAdapter {
	return &StubAdapter{
		buffers:  make(map[gpucore.BufferID][]byte),
		textures: make(map[gpucore.TextureID]*stubTexture),
		shaders:  make(map[gpucore.ShaderModuleID]struct{}),
		bgLayout: make(map[gpucore.BindGroupLayoutID]*gpucore.BindGroupLayoutDesc),
		pLayout:  make(map[gpucore.PipelineLayoutID][]gpucore.BindGroupLayoutID),
		pipes:    make(map[gpucore.ComputePipelineID]string),
		bindGrps: make(map[gpucore.BindGroupID][]gpucore.BindGroupEntry),
	}
}

func (a *StubAdapter) allocID() uint64 {
	a.nextID++
	return a.nextID
}

// SupportsCompute always returns true: every stub operation runs on CPU.
func (a *StubAdapter) SupportsCompute() bool { return true }

// MaxWorkgroupSize returns a generous CPU-only limit.
func (a *StubAdapter) MaxWorkgroupSize() [3]uint32 { return [3]uint32{1024, 1024, 64} }

// MaxBufferSize returns a generous CPU-only limit.
func (a *StubAdapter) MaxBufferSize() uint64 { return 1 << 30 }

// CreateShaderModule records a shader "module" without compiling anything.
// The label is not otherwise used; kernel dispatch resolves by the compute
// pipeline's EntryPoint instead, so callers should give descriptive labels.
func (a *StubAdapter) CreateShaderModule(_ []uint32, _ string) (gpucore.ShaderModuleID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := gpucore.ShaderModuleID(a.allocID())
	a.shaders[id] = struct{}{}
	return id, nil
}

func (a *StubAdapter) DestroyShaderModule(id gpucore.ShaderModuleID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.shaders, id)
}

func (a *StubAdapter) CreateBuffer(size int, _ gpucore.BufferUsage) (gpucore.BufferID, error) {
	if size < 0 {
		return 0, ErrInvalidDimensions
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	id := gpucore.BufferID(a.allocID())
	a.buffers[id] = make([]byte, size)
	return id, nil
}

func (a *StubAdapter) DestroyBuffer(id gpucore.BufferID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.buffers, id)
}

func (a *StubAdapter) WriteBuffer(id gpucore.BufferID, offset uint64, data []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	buf, ok := a.buffers[id]
	if !ok {
		a.lastErr = fmt.Errorf("%w: buffer %d", ErrUnknownResource, id)
		return
	}
	end := offset + uint64(len(data))
	if end > uint64(len(buf)) {
		grown := make([]byte, end)
		copy(grown, buf)
		buf = grown
		a.buffers[id] = buf
	}
	copy(buf[offset:end], data)
}

func (a *StubAdapter) ReadBuffer(id gpucore.BufferID, offset, size uint64) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lastErr != nil {
		err := a.lastErr
		a.lastErr = nil
		return nil, err
	}
	buf, ok := a.buffers[id]
	if !ok {
		return nil, fmt.Errorf("%w: buffer %d", ErrUnknownResource, id)
	}
	end := offset + size
	if end > uint64(len(buf)) {
		return nil, fmt.Errorf("%w: read [%d:%d] exceeds buffer of size %d", ErrInvalidDimensions, offset, end, len(buf))
	}
	out := make([]byte, size)
	copy(out, buf[offset:end])
	return out, nil
}

func (a *StubAdapter) CreateTexture(width, height int, format gpucore.TextureFormat) (gpucore.TextureID, error) {
	if width <= 0 || height <= 0 {
		return 0, ErrInvalidDimensions
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	id := gpucore.TextureID(a.allocID())
	a.textures[id] = &stubTexture{
		width:  width,
		height: height,
		format: format,
		data:   make([]byte, width*height*bytesPerPixel(format)),
	}
	return id, nil
}

func (a *StubAdapter) DestroyTexture(id gpucore.TextureID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.textures, id)
}

func (a *StubAdapter) WriteTexture(id gpucore.TextureID, data []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	tex, ok := a.textures[id]
	if !ok {
		a.lastErr = fmt.Errorf("%w: texture %d", ErrUnknownResource, id)
		return
	}
	n := copy(tex.data, data)
	if n < len(tex.data) {
		a.lastErr = fmt.Errorf("%w: texture %d expects %d bytes, got %d", ErrInvalidDimensions, id, len(tex.data), len(data))
	}
}

func (a *StubAdapter) ReadTexture(id gpucore.TextureID) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lastErr != nil {
		err := a.lastErr
		a.lastErr = nil
		return nil, err
	}
	tex, ok := a.textures[id]
	if !ok {
		return nil, fmt.Errorf("%w: texture %d", ErrUnknownResource, id)
	}
	out := make([]byte, len(tex.data))
	copy(out, tex.data)
	return out, nil
}

func (a *StubAdapter) CreateBindGroupLayout(desc *gpucore.BindGroupLayoutDesc) (gpucore.BindGroupLayoutID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := gpucore.BindGroupLayoutID(a.allocID())
	a.bgLayout[id] = desc
	return id, nil
}

func (a *StubAdapter) DestroyBindGroupLayout(id gpucore.BindGroupLayoutID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.bgLayout, id)
}

func (a *StubAdapter) CreatePipelineLayout(layouts []gpucore.BindGroupLayoutID) (gpucore.PipelineLayoutID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := gpucore.PipelineLayoutID(a.allocID())
	a.pLayout[id] = append([]gpucore.BindGroupLayoutID(nil), layouts...)
	return id, nil
}

func (a *StubAdapter) DestroyPipelineLayout(id gpucore.PipelineLayoutID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.pLayout, id)
}

func (a *StubAdapter) CreateComputePipeline(desc *gpucore.ComputePipelineDesc) (gpucore.ComputePipelineID, error) {
	if desc == nil || desc.EntryPoint == "" {
		return 0, fmt.Errorf("%w: compute pipeline requires a non-empty entry point", ErrInvalidDimensions)
	}
	if _, err := lookupKernel(desc.EntryPoint); err != nil {
		return 0, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	id := gpucore.ComputePipelineID(a.allocID())
	a.pipes[id] = desc.EntryPoint
	return id, nil
}

func (a *StubAdapter) DestroyComputePipeline(id gpucore.ComputePipelineID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.pipes, id)
}

func (a *StubAdapter) CreateBindGroup(_ gpucore.BindGroupLayoutID, entries []gpucore.BindGroupEntry) (gpucore.BindGroupID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := gpucore.BindGroupID(a.allocID())
	a.bindGrps[id] = append([]gpucore.BindGroupEntry(nil), entries...)
	return id, nil
}

func (a *StubAdapter) DestroyBindGroup(id gpucore.BindGroupID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.bindGrps, id)
}

// BeginComputePass returns a fresh recording encoder bound to this adapter.
func (a *StubAdapter) BeginComputePass() gpucore.ComputePassEncoder {
	return &stubComputePass{adapter: a}
}

// Submit runs every dispatch recorded since the last Submit, in order.
// Kernel errors are recorded and surfaced by the next ReadBuffer/ReadTexture
// call, matching how a real GPU only reports errors at synchronization
// points.
func (a *StubAdapter) Submit() {
	a.mu.Lock()
	batch := a.pending
	a.pending = nil
	a.mu.Unlock()

	for _, d := range batch {
		fn, err := lookupKernel(d.kernel)
		if err != nil {
			a.mu.Lock()
			a.lastErr = err
			a.mu.Unlock()
			continue
		}
		if err := fn(a, d.binds, d.x, d.y, d.z); err != nil {
			a.mu.Lock()
			a.lastErr = err
			a.mu.Unlock()
		}
	}
}

// WaitIdle is a no-op: StubAdapter executes dispatches synchronously in Submit.
func (a *StubAdapter) WaitIdle() {}

// stubComputePass records SetPipeline/SetBindGroup/Dispatch calls and
// appends resolved dispatches to the owning adapter's pending queue.
type stubComputePass struct {
	adapter *StubAdapter
	ended   bool
	kernel  string
	binds   map[uint32]gpucore.BindGroupID
}

func (p *stubComputePass) SetPipeline(pipeline gpucore.ComputePipelineID) {
	if p.ended {
		return
	}
	p.adapter.mu.Lock()
	p.kernel = p.adapter.pipes[pipeline]
	p.adapter.mu.Unlock()
}

func (p *stubComputePass) SetBindGroup(index uint32, group gpucore.BindGroupID) {
	if p.ended {
		return
	}
	if p.binds == nil {
		p.binds = make(map[uint32]gpucore.BindGroupID)
	}
	p.binds[index] = group
}

func (p *stubComputePass) Dispatch(x, y, z uint32) {
	if p.ended || p.kernel == "" {
		return
	}
	p.adapter.mu.Lock()
	var entries []gpucore.BindGroupEntry
	for i := uint32(0); i < uint32(len(p.binds)); i++ {
		if grp, ok := p.binds[i]; ok {
			entries = append(entries, p.adapter.bindGrps[grp]...)
		}
	}
	p.adapter.pending = append(p.adapter.pending, pendingDispatch{
		kernel: p.kernel,
		binds:  entries,
		x:      x, y: y, z: z,
	})
	p.adapter.mu.Unlock()
}

func (p *stubComputePass) End() {
	p.ended = true
}
