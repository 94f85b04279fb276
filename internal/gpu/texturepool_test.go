package gpu

import (
	"errors"
	"testing"

	"github.com/gogpu/cvpipeline/gpucore"
)

func TestTexturePoolReusesExactKey(t *testing.T) {
	pool := NewTexturePool(NewStubAdapter(), 0)

	id1, err := pool.Acquire(64, 64, gpucore.TextureFormatRGBA8Unorm)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	pool.Release(id1)

	id2, err := pool.Acquire(64, 64, gpucore.TextureFormatRGBA8Unorm)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if id2 != id1 {
		t.Errorf("expected reuse of released texture %d, got %d", id1, id2)
	}

	stats := pool.Stats()
	if stats.Created != 1 || stats.Reused != 1 {
		t.Errorf("Stats() = %+v, want Created=1 Reused=1", stats)
	}
}

func TestTexturePoolDoesNotReuseAcrossFormats(t *testing.T) {
	pool := NewTexturePool(NewStubAdapter(), 0)

	id1, err := pool.Acquire(32, 32, gpucore.TextureFormatRGBA8Unorm)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	pool.Release(id1)

	id2, err := pool.Acquire(32, 32, gpucore.TextureFormatR8Unorm)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if id2 == id1 {
		t.Errorf("expected a fresh texture for a different format, got the released one")
	}

	stats := pool.Stats()
	if stats.Created != 2 || stats.Reused != 0 {
		t.Errorf("Stats() = %+v, want Created=2 Reused=0", stats)
	}
}

func TestTexturePoolExhaustion(t *testing.T) {
	pool := NewTexturePool(NewStubAdapter(), 1)

	if _, err := pool.Acquire(16, 16, gpucore.TextureFormatRGBA8Unorm); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	_, err := pool.Acquire(16, 16, gpucore.TextureFormatRGBA8Unorm)
	if !errors.Is(err, ErrResourceExhausted) {
		t.Errorf("Acquire() error = %v, want ErrResourceExhausted", err)
	}
}

func TestTexturePoolInvalidDimensions(t *testing.T) {
	pool := NewTexturePool(NewStubAdapter(), 0)

	if _, err := pool.Acquire(0, 16, gpucore.TextureFormatRGBA8Unorm); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("Acquire() error = %v, want ErrInvalidDimensions", err)
	}
}

func TestTexturePoolCloseDestroysEverything(t *testing.T) {
	adapter := NewStubAdapter()
	pool := NewTexturePool(adapter, 0)

	live, err := pool.Acquire(8, 8, gpucore.TextureFormatRGBA8Unorm)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	free, err := pool.Acquire(8, 8, gpucore.TextureFormatRGBA8Unorm)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	pool.Release(free)

	pool.Close()

	if _, err := adapter.ReadTexture(live); err == nil {
		t.Error("expected reading a destroyed live texture to fail after Close")
	}
	if _, err := adapter.ReadTexture(free); err == nil {
		t.Error("expected reading a destroyed free texture to fail after Close")
	}
}
