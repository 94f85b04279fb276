package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/gogpu/cvpipeline/gpucore"
	"github.com/gogpu/cvpipeline/internal/gpu"
)

// blockingReadAdapter wraps a GPUAdapter and makes ReadTexture block until
// release is closed, so tests can control exactly when an async read
// resolves relative to Device.Close.
type blockingReadAdapter struct {
	gpucore.GPUAdapter
	release chan struct{}
}

func (a *blockingReadAdapter) ReadTexture(id gpucore.TextureID) ([]byte, error) {
	<-a.release
	return a.GPUAdapter.ReadTexture(id)
}

func TestDeviceCloseCancelsPendingRead(t *testing.T) {
	release := make(chan struct{})
	adapter := &blockingReadAdapter{GPUAdapter: gpu.NewStubAdapter(), release: release}
	dev, err := NewDevice(WithAdapter(adapter))
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}

	id, err := dev.pool.Acquire(2, 2, gpucore.TextureFormatRGBA8Unorm)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	future := dev.ReadTextureAsync(ImageMessage{Texture: id, Width: 2, Height: 2})

	// Give the read goroutine a chance to start and block inside ReadTexture
	// before the device is released out from under it.
	time.Sleep(10 * time.Millisecond)
	if err := dev.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = future.Wait(ctx)
	if _, ok := err.(*CancelledError); !ok {
		t.Fatalf("Wait() error = %v (%T), want *CancelledError from Close, not ctx timeout", err, err)
	}

	close(release) // unblock the now-irrelevant adapter goroutine so it can exit
}

func TestDeviceCloseLeavesCompletedReadUntouched(t *testing.T) {
	dev, err := NewDevice(WithAdapter(gpu.NewStubAdapter()))
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}

	id, err := dev.pool.Acquire(2, 2, gpucore.TextureFormatRGBA8Unorm)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	future := dev.ReadTextureAsync(ImageMessage{Texture: id, Width: 2, Height: 2})
	if _, err := future.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	if err := dev.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := future.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait after Close on an already-resolved future: %v", err)
	}
	if data == nil {
		t.Fatal("Wait after Close returned nil data for an already-resolved future")
	}
}
