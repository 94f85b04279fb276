package pipeline

import (
	"fmt"
	"sync"

	"github.com/gogpu/cvpipeline/gpucore"
	"github.com/gogpu/cvpipeline/internal/gpu"
)

// Device owns the GPU adapter and texture pool a built Pipeline runs
// against. Create one with NewDevice and Close it once every Pipeline
// using it has finished running.
type Device struct {
	adapter gpucore.GPUAdapter
	pool    *gpu.TexturePool
	cfg     RuntimeConfig

	readsMu sync.Mutex
	reads   map[*ReadFuture]struct{}
}

// closer is implemented by adapters that hold real OS/GPU handles
// (NativeAdapter); StubAdapter has nothing to release and does not
// implement it.
type closer interface {
	Close()
}

// NewDevice opens (or accepts, via WithAdapter) a GPU adapter and wraps it
// with the texture pool every Pipeline built against this Device shares.
func NewDevice(opts ...RuntimeOption) (*Device, error) {
	cfg := apply(opts)
	if cfg.logger != nil {
		gpu.SetLogger(cfg.logger)
	}

	adapter := cfg.adapter
	if adapter == nil {
		native, err := gpu.NewNativeAdapter(cfg.label)
		if err != nil {
			return nil, fmt.Errorf("pipeline: opening GPU device: %w", err)
		}
		adapter = native
	}

	pool := gpu.NewTexturePool(adapter, estimatedMaxLiveTextures(cfg.memoryBudgetMB))
	return &Device{adapter: adapter, pool: pool, cfg: cfg}, nil
}

// Adapter returns the underlying GPU adapter, for node packages that need
// to create shaders, buffers, or pipelines directly.
func (d *Device) Adapter() gpucore.GPUAdapter { return d.adapter }

// Pool returns the device's texture pool.
func (d *Device) Pool() *gpu.TexturePool { return d.pool }

// trackRead registers f as in flight so Close can cancel it if the device
// is released before the read completes.
func (d *Device) trackRead(f *ReadFuture) {
	d.readsMu.Lock()
	if d.reads == nil {
		d.reads = make(map[*ReadFuture]struct{})
	}
	d.reads[f] = struct{}{}
	d.readsMu.Unlock()
}

// untrackRead removes f once it has resolved, normally or via cancel.
func (d *Device) untrackRead(f *ReadFuture) {
	d.readsMu.Lock()
	delete(d.reads, f)
	d.readsMu.Unlock()
}

// Close cancels any ReadFuture still in flight, releases the texture pool,
// and, if the underlying adapter holds real GPU/OS resources, closes it
// too. A pending Wait on a cancelled read returns CancelledError.
func (d *Device) Close() error {
	d.readsMu.Lock()
	pending := make([]*ReadFuture, 0, len(d.reads))
	for f := range d.reads {
		pending = append(pending, f)
	}
	d.reads = nil
	d.readsMu.Unlock()

	for _, f := range pending {
		f.cancel()
	}

	d.pool.Close()
	if c, ok := d.adapter.(closer); ok {
		c.Close()
	}
	return nil
}
