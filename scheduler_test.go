package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/cvpipeline/gpucore"
	"github.com/gogpu/cvpipeline/internal/gpu"
)

func newTestDevice(t *testing.T) *Device {
	t.Helper()
	dev, err := NewDevice(WithAdapter(gpu.NewStubAdapter()))
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	t.Cleanup(func() { dev.Close() })
	return dev
}

func TestPipelineRunEndToEnd(t *testing.T) {
	dev := newTestDevice(t)

	var sinkSaw Message
	src := &fakeNode{
		name:    "src",
		outputs: []PortSpec{{Name: "out", Kind: KindImage}},
		process: func(ctx context.Context, dev *Device, in map[string]Message) (map[string]Message, error) {
			id, err := dev.pool.Acquire(4, 4, gpucore.TextureFormatRGBA8Unorm)
			if err != nil {
				return nil, err
			}
			return map[string]Message{"out": ImageMessage{Texture: id, Width: 4, Height: 4}}, nil
		},
	}
	dst := &fakeNode{
		name:   "dst",
		inputs: []PortSpec{{Name: "in", Kind: KindImage}},
		process: func(ctx context.Context, dev *Device, in map[string]Message) (map[string]Message, error) {
			sinkSaw = in["in"]
			return map[string]Message{}, nil
		},
	}

	g := NewGraph()
	sh := mustAddNode(t, g, src)
	dh := mustAddNode(t, g, dst)
	mustConnect(t, g, sh.Output("out"), dh.Input("in"))

	pl, err := g.Build(dev)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := pl.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	img, ok := sinkSaw.(ImageMessage)
	if !ok || img.Width != 4 {
		t.Fatalf("sink received %+v, want a 4x4 ImageMessage", sinkSaw)
	}

	stats := dev.pool.Stats()
	if stats.Created != 1 {
		t.Fatalf("pool created %d textures, want 1", stats.Created)
	}
}

func TestPipelineRunReleasesTextureAfterLastConsumer(t *testing.T) {
	dev := newTestDevice(t)

	src := &fakeNode{
		name:    "src",
		outputs: []PortSpec{{Name: "out", Kind: KindImage}},
		process: func(ctx context.Context, dev *Device, in map[string]Message) (map[string]Message, error) {
			id, err := dev.pool.Acquire(2, 2, gpucore.TextureFormatRGBA8Unorm)
			if err != nil {
				return nil, err
			}
			return map[string]Message{"out": ImageMessage{Texture: id}}, nil
		},
	}
	dst := sink("dst")

	g := NewGraph()
	sh := mustAddNode(t, g, src)
	dh := mustAddNode(t, g, dst)
	mustConnect(t, g, sh.Output("out"), dh.Input("in"))

	pl, err := g.Build(dev)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := pl.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// A second frame must be able to reuse the released texture rather
	// than allocate a new one, since the pool has no other consumer.
	if _, err := pl.Run(context.Background()); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	stats := dev.pool.Stats()
	if stats.Created != 1 || stats.Reused != 1 {
		t.Fatalf("pool stats = %+v, want Created=1 Reused=1 (texture recycled between frames)", stats)
	}
}

func TestPipelineBusyDuringRun(t *testing.T) {
	dev := newTestDevice(t)
	g := NewGraph()
	sh := mustAddNode(t, g, source("src"))
	dh := mustAddNode(t, g, sink("dst"))
	mustConnect(t, g, sh.Output("out"), dh.Input("in"))

	pl, err := g.Build(dev)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if pl.Busy() {
		t.Fatal("Busy() = true before any Run")
	}
	if _, err := pl.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if pl.Busy() {
		t.Fatal("Busy() = true after Run completed")
	}
}

// TestPipelineRunReturnsSinkResult confirms Run collects the sink node's
// own Process output map into Result, per the pipeline.Run(ctx) → (Result,
// error) contract: a sink can export values that never flow further
// downstream (it has no output ports of its own) but are still visible to
// the caller of Run.
func TestPipelineRunReturnsSinkResult(t *testing.T) {
	dev := newTestDevice(t)

	src := source("src")
	dst := &fakeNode{
		name:   "dst",
		inputs: []PortSpec{{Name: "in", Kind: KindImage}},
		process: func(ctx context.Context, dev *Device, in map[string]Message) (map[string]Message, error) {
			return map[string]Message{"exported": in["in"]}, nil
		},
	}

	g := NewGraph()
	sh := mustAddNode(t, g, src)
	dh := mustAddNode(t, g, dst)
	mustConnect(t, g, sh.Output("out"), dh.Input("in"))

	pl, err := g.Build(dev)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	result, err := pl.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, ok := result.Outputs["exported"]; !ok {
		t.Fatalf("Result.Outputs = %+v, want a key %q from the sink's own Process return", result.Outputs, "exported")
	}
}

// TestPipelineRunQueuesFIFO exercises the resolution of the open question on
// concurrent run() calls: they suspend and are granted turns in arrival
// order rather than being rejected. The single node blocks on its first
// invocation until released, holding the run slot while two more Run calls
// queue up behind it; completion order (which, under strict FIFO grant plus
// single-flight execution, matches grant order) must be call order.
func TestPipelineRunQueuesFIFO(t *testing.T) {
	dev := newTestDevice(t)

	proceed := make(chan struct{})
	entered := make(chan struct{}, 1)
	firstCall := make(chan struct{}, 1)
	firstCall <- struct{}{}

	node := &fakeNode{
		name: "n",
		process: func(ctx context.Context, dev *Device, in map[string]Message) (map[string]Message, error) {
			select {
			case <-firstCall:
				entered <- struct{}{}
				<-proceed
			default:
			}
			return map[string]Message{}, nil
		},
	}

	g := NewGraph()
	mustAddNode(t, g, node)
	pl, err := g.Build(dev)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	var mu sync.Mutex
	var order []int
	record := func(id int) {
		mu.Lock()
		order = append(order, id)
		mu.Unlock()
	}

	done := make(chan struct{}, 3)
	go func() {
		if _, err := pl.Run(context.Background()); err != nil {
			t.Errorf("run0: %v", err)
		}
		record(0)
		done <- struct{}{}
	}()
	<-entered // run0 now holds the slot, blocked inside Process.

	go func() {
		time.Sleep(10 * time.Millisecond)
		if _, err := pl.Run(context.Background()); err != nil {
			t.Errorf("run1: %v", err)
		}
		record(1)
		done <- struct{}{}
	}()
	time.Sleep(20 * time.Millisecond) // let run1 queue before run2 arrives

	go func() {
		if _, err := pl.Run(context.Background()); err != nil {
			t.Errorf("run2: %v", err)
		}
		record(2)
		done <- struct{}{}
	}()
	time.Sleep(20 * time.Millisecond)

	close(proceed)
	for i := 0; i < 3; i++ {
		<-done
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 || order[0] != 0 || order[1] != 1 || order[2] != 2 {
		t.Fatalf("completion order = %v, want [0 1 2] (FIFO grant order)", order)
	}
}

// TestPipelineRunCancelledWhileQueued confirms that a Run call waiting in
// the FIFO queue drops out and reports CancelledError when its own context
// is cancelled, without ever taking a turn or disturbing the queue for
// calls behind it.
func TestPipelineRunCancelledWhileQueued(t *testing.T) {
	dev := newTestDevice(t)

	proceed := make(chan struct{})
	entered := make(chan struct{}, 1)

	node := &fakeNode{
		name: "n",
		process: func(ctx context.Context, dev *Device, in map[string]Message) (map[string]Message, error) {
			entered <- struct{}{}
			<-proceed
			return map[string]Message{}, nil
		},
	}

	g := NewGraph()
	mustAddNode(t, g, node)
	pl, err := g.Build(dev)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	holderDone := make(chan struct{})
	go func() {
		if _, err := pl.Run(context.Background()); err != nil {
			t.Errorf("holder run: %v", err)
		}
		close(holderDone)
	}()
	<-entered

	ctx, cancel := context.WithCancel(context.Background())
	queuedErrCh := make(chan error, 1)
	go func() {
		_, err := pl.Run(ctx)
		queuedErrCh <- err
	}()
	time.Sleep(10 * time.Millisecond) // let the second call enter the wait queue
	cancel()

	err = <-queuedErrCh
	if _, ok := err.(*CancelledError); !ok {
		t.Fatalf("queued Run() error = %v (%T), want *CancelledError", err, err)
	}

	close(proceed)
	<-holderDone
}
