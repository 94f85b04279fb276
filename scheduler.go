package pipeline

import (
	"context"
	"sync"
)

// Pipeline is a validated, topologically ordered Graph bound to a Device,
// ready to execute frames. Create one with Graph.Build.
type Pipeline struct {
	dev    *Device
	order  []string
	nodes  map[string]Node
	edges  []edge
	sinkID string

	mu      sync.Mutex
	running bool
	waiters []chan struct{}
}

// Result is what Run and TryRun return on success: the sink node's
// exported outputs for that frame, keyed by output-port name. A sink with
// no output ports of its own (the common case, e.g. imagenode.Sink)
// yields an empty Result; callers needing its accumulated state use a
// node-specific accessor instead.
type Result struct {
	Outputs map[string]Message
}

// fanout returns, for each (nodeID, port) output, the number of edges that
// consume it. A port with fanout 0 has no consumers (unreachable from any
// sink and therefore excluded from order by validate, except sink inputs).
func (p *Pipeline) fanout() map[string]map[string]int {
	out := make(map[string]map[string]int, len(p.nodes))
	for _, e := range p.edges {
		if out[e.fromNode] == nil {
			out[e.fromNode] = make(map[string]int)
		}
		out[e.fromNode][e.fromPort]++
	}
	return out
}

// Run executes exactly one frame: it runs every node once, in topological
// order, releasing intermediate GPU textures back to the device's pool as
// soon as their last consumer has run, then returns the sink's exported
// outputs as a Result. If another call to Run is already in flight, Run
// suspends until its turn comes up, granting turns in the order calls
// arrived (FIFO); use TryRun to reject rather than wait.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	if err := p.acquireTurn(ctx); err != nil {
		return Result{}, err
	}
	defer p.releaseTurn()
	return p.runFrame(ctx)
}

// runFrame executes one frame's worth of node processing. The caller must
// already hold the run slot (running == true, set by acquireTurn or TryRun).
func (p *Pipeline) runFrame(ctx context.Context) (Result, error) {
	outputs := make(map[string]map[string]Message, len(p.nodes))
	remaining := p.fanout()

	for _, id := range p.order {
		select {
		case <-ctx.Done():
			return Result{}, &CancelledError{Err: ctx.Err()}
		default:
		}

		node := p.nodes[id]
		in := make(map[string]Message, len(node.Inputs()))
		for _, e := range p.edges {
			if e.toNode != id {
				continue
			}
			msg := outputs[e.fromNode][e.fromPort]
			in[e.toPort] = msg
		}

		out, err := node.Process(ctx, p.dev, in)
		if err != nil {
			return Result{}, err
		}
		outputs[id] = out

		// Release inputs whose fan-out has now been fully consumed.
		for _, e := range p.edges {
			if e.toNode != id {
				continue
			}
			remaining[e.fromNode][e.fromPort]--
			if remaining[e.fromNode][e.fromPort] == 0 {
				p.releaseIfTexture(outputs[e.fromNode][e.fromPort])
			}
		}
	}
	return Result{Outputs: outputs[p.sinkID]}, nil
}

// releaseIfTexture returns a message's backing GPU texture to the device's
// pool, if it carries one. Messages with no GPU resource (Matrix2D,
// Vector2D) are no-ops.
func (p *Pipeline) releaseIfTexture(msg Message) {
	if msg == nil {
		return
	}
	switch m := msg.(type) {
	case ImageMessage:
		p.dev.pool.Release(m.Texture)
	case KeypointMessage:
		p.dev.pool.Release(m.Texture)
	}
}

// acquireTurn blocks until it is this call's turn to run, granting turns in
// FIFO arrival order. A call already waiting when ctx is cancelled drops out
// of the queue and reports CancelledError without ever taking a turn.
func (p *Pipeline) acquireTurn(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.running = true
		p.mu.Unlock()
		return nil
	}
	ticket := make(chan struct{})
	p.waiters = append(p.waiters, ticket)
	p.mu.Unlock()

	select {
	case <-ticket:
		return nil
	case <-ctx.Done():
		p.mu.Lock()
		for i, w := range p.waiters {
			if w == ticket {
				p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
				break
			}
		}
		p.mu.Unlock()
		return &CancelledError{Err: ctx.Err()}
	}
}

// releaseTurn hands the run slot to the next queued waiter, if any, or
// otherwise marks the pipeline idle.
func (p *Pipeline) releaseTurn() {
	p.mu.Lock()
	if len(p.waiters) > 0 {
		next := p.waiters[0]
		p.waiters = p.waiters[1:]
		p.mu.Unlock()
		close(next)
		return
	}
	p.running = false
	p.mu.Unlock()
}

// TryRun attempts to run one frame without blocking if another frame is
// already in flight. It reports whether it actually ran; it never waits in
// the FIFO queue Run uses.
func (p *Pipeline) TryRun(ctx context.Context) (result Result, ran bool, err error) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return Result{}, false, nil
	}
	p.running = true
	p.mu.Unlock()

	defer p.releaseTurn()
	res, err := p.runFrame(ctx)
	if err != nil {
		return Result{}, false, err
	}
	return res, true, nil
}

// Busy reports whether a frame is currently executing or queued to run.
func (p *Pipeline) Busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}
