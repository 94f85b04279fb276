package gpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/cvpipeline/gpucore"
)

// PoolStats reports texture pool occupancy, mirroring the accounting a
// caller would want from a GPU memory manager without tying it to a byte
// budget: the pool's job is recycling, not eviction.
type PoolStats struct {
	Acquired int // textures currently checked out
	Free     int // textures sitting in a free list, available for reuse
	Created  int // total textures ever created by this pool
	Reused   int // total Acquire calls satisfied from a free list
}

type texKey struct {
	width, height int
	format        gpucore.TextureFormat
}

// TexturePool hands out GPU textures to pipeline nodes and recycles them
// between frames. Textures are pooled per exact (width, height, format):
// a released texture only satisfies a future request with the identical
// key, so pool occupancy never silently reinterprets a texture's format.
//
// Unlike the LRU memory manager this package is grounded on, TexturePool
// never evicts: exhaustion is surfaced to the caller as a resource error
// rather than resolved by destroying someone else's live texture.
type TexturePool struct {
	mu sync.Mutex

	adapter gpucore.GPUAdapter
	free    map[texKey][]gpucore.TextureID
	live    map[gpucore.TextureID]texKey

	maxLive int // 0 means unbounded

	created int
	reused  int
}

// NewTexturePool creates a pool that allocates through adapter. maxLive
// bounds the number of textures that may be checked out simultaneously;
// pass 0 for no bound.
func NewTexturePool(adapter gpucore.GPUAdapter, maxLive int) *TexturePool {
	return &TexturePool{
		adapter: adapter,
		free:    make(map[texKey][]gpucore.TextureID),
		live:    make(map[gpucore.TextureID]texKey),
		maxLive: maxLive,
	}
}

// Acquire returns a texture of the given dimensions and format, reusing a
// previously Released texture with a matching key when one is available.
func (p *TexturePool) Acquire(width, height int, format gpucore.TextureFormat) (gpucore.TextureID, error) {
	if width <= 0 || height <= 0 {
		return 0, ErrInvalidDimensions
	}

	key := texKey{width, height, format}

	p.mu.Lock()
	defer p.mu.Unlock()

	if free := p.free[key]; len(free) > 0 {
		id := free[len(free)-1]
		p.free[key] = free[:len(free)-1]
		p.live[id] = key
		p.reused++
		return id, nil
	}

	if p.maxLive > 0 && len(p.live) >= p.maxLive {
		return 0, fmt.Errorf("%w: texture pool exhausted at %d live textures", ErrResourceExhausted, p.maxLive)
	}

	id, err := p.adapter.CreateTexture(width, height, format)
	if err != nil {
		return 0, fmt.Errorf("texture pool: %w", err)
	}
	p.live[id] = key
	p.created++
	return id, nil
}

// Release returns a texture to its free list for future reuse. Releasing a
// texture the pool did not hand out, or releasing it twice, is a no-op:
// callers that track ownership correctly never observe this, but repeated
// frees must not corrupt pool state.
func (p *TexturePool) Release(id gpucore.TextureID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key, ok := p.live[id]
	if !ok {
		return
	}
	delete(p.live, id)
	p.free[key] = append(p.free[key], id)
}

// Stats reports current pool occupancy.
func (p *TexturePool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	free := 0
	for _, ids := range p.free {
		free += len(ids)
	}
	return PoolStats{
		Acquired: len(p.live),
		Free:     free,
		Created:  p.created,
		Reused:   p.reused,
	}
}

// Close destroys every texture the pool owns, live or free. The pool must
// not be used after Close.
func (p *TexturePool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id := range p.live {
		p.adapter.DestroyTexture(id)
	}
	for _, ids := range p.free {
		for _, id := range ids {
			p.adapter.DestroyTexture(id)
		}
	}
	p.live = make(map[gpucore.TextureID]texKey)
	p.free = make(map[texKey][]gpucore.TextureID)
}
