package pipeline

import (
	"log/slog"

	"github.com/gogpu/cvpipeline/gpucore"
)

// RuntimeConfig configures a Device before it opens a GPU adapter.
// Build one with DefaultRuntimeConfig and functional options, mirroring
// how graph-side node options are constructed.
type RuntimeConfig struct {
	adapter        gpucore.GPUAdapter
	memoryBudgetMB int
	logger         *slog.Logger
	label          string
}

// RuntimeOption configures a RuntimeConfig during construction.
type RuntimeOption func(*RuntimeConfig)

// DefaultRuntimeConfig returns a config that opens a real GPU adapter with
// a 256 MB texture pool budget and no logging.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		memoryBudgetMB: 256,
		label:          "cvpipeline",
	}
}

// WithAdapter injects a pre-constructed adapter (typically a
// gpu.NewStubAdapter() in tests) instead of opening a real GPU device.
func WithAdapter(a gpucore.GPUAdapter) RuntimeOption {
	return func(c *RuntimeConfig) { c.adapter = a }
}

// WithMemoryBudgetMB bounds the texture pool: the pool refuses to create
// new textures once it estimates this budget is exhausted, returning a
// ResourceError instead of growing further.
func WithMemoryBudgetMB(mb int) RuntimeOption {
	return func(c *RuntimeConfig) { c.memoryBudgetMB = mb }
}

// WithLogger attaches a logger the device propagates to internal/gpu.
// Equivalent to calling pipeline.SetLogger, scoped to this one Device.
func WithLogger(l *slog.Logger) RuntimeOption {
	return func(c *RuntimeConfig) { c.logger = l }
}

// WithLabel sets the debug label passed to the underlying GPU device.
func WithLabel(label string) RuntimeOption {
	return func(c *RuntimeConfig) { c.label = label }
}

// apply folds a list of options onto DefaultRuntimeConfig.
func apply(opts []RuntimeOption) RuntimeConfig {
	cfg := DefaultRuntimeConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// estimatedMaxLiveTextures converts the memory budget into the texture
// pool's live-texture cap, assuming a worst-case 4K RGBA8 texture per slot.
// This is deliberately conservative: nodes working with smaller textures
// will see the pool accept far more than this before exhausting the byte
// budget in practice, but the pool only tracks a count, not bytes, so the
// cap must be sized for the largest texture the pipeline might allocate.
func estimatedMaxLiveTextures(memoryBudgetMB int) int {
	const worstCaseTextureBytes = 4096 * 4096 * 4
	if memoryBudgetMB <= 0 {
		return 0 // unbounded
	}
	budgetBytes := memoryBudgetMB * 1024 * 1024
	n := budgetBytes / worstCaseTextureBytes
	if n < 1 {
		n = 1
	}
	return n
}
