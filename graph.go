package pipeline

import "fmt"

type edge struct {
	fromNode, fromPort string
	toNode, toPort     string
}

// Graph accumulates nodes and connections before being validated and built
// into a runnable Pipeline. A Graph is not itself runnable; call Build to
// produce a Pipeline.
type Graph struct {
	nodes map[string]Node
	order []string // insertion order, used to make diagnostics and iteration deterministic
	edges []edge
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[string]Node)}
}

// AddNode registers a node under its Name(). A second node sharing an
// already-registered name is rejected with ReasonDuplicateNodeName rather
// than silently renamed, since two nodes sharing an id would make
// NodeHandle lookups and diagnostics ambiguous.
func (g *Graph) AddNode(n Node) (*NodeHandle, error) {
	id := n.Name()
	if _, exists := g.nodes[id]; exists {
		return nil, &ValidationError{Reason: ReasonDuplicateNodeName, Detail: id}
	}
	g.nodes[id] = n
	g.order = append(g.order, id)
	return &NodeHandle{id: id, node: n}, nil
}

// Connect wires an output port to an input port. Both ports must already
// exist on nodes added to this graph; the port kinds are checked eagerly
// so a typo surfaces at the Connect call rather than at Build.
func (g *Graph) Connect(from, to PortRef) error {
	if from.direction != DirectionOutput {
		return &ValidationError{Reason: ReasonTypeMismatch, Detail: fmt.Sprintf("%s.%s is not an output port", from.nodeID, from.port)}
	}
	if to.direction != DirectionInput {
		return &ValidationError{Reason: ReasonTypeMismatch, Detail: fmt.Sprintf("%s.%s is not an input port", to.nodeID, to.port)}
	}

	fromSpec, err := g.lookupPort(from)
	if err != nil {
		return err
	}
	toSpec, err := g.lookupPort(to)
	if err != nil {
		return err
	}
	if fromSpec.Kind != toSpec.Kind {
		return &ValidationError{
			Reason: ReasonTypeMismatch,
			Detail: fmt.Sprintf("%s.%s (%s) -> %s.%s (%s)", from.nodeID, from.port, fromSpec.Kind, to.nodeID, to.port, toSpec.Kind),
		}
	}

	g.edges = append(g.edges, edge{fromNode: from.nodeID, fromPort: from.port, toNode: to.nodeID, toPort: to.port})
	return nil
}

func (g *Graph) lookupPort(ref PortRef) (PortSpec, error) {
	n, ok := g.nodes[ref.nodeID]
	if !ok {
		return PortSpec{}, &ValidationError{Reason: ReasonTypeMismatch, Detail: fmt.Sprintf("unknown node %q", ref.nodeID)}
	}
	specs := n.Inputs()
	if ref.direction == DirectionOutput {
		specs = n.Outputs()
	}
	spec, ok := portSpecByName(specs, ref.port)
	if !ok {
		return PortSpec{}, &ValidationError{Reason: ReasonTypeMismatch, Detail: fmt.Sprintf("node %q has no port %q", ref.nodeID, ref.port)}
	}
	return spec, nil
}

// validate checks the accumulated graph for structural problems and, on
// success, returns nodes in a valid topological execution order.
func (g *Graph) validate() ([]string, error) {
	incoming := make(map[string]map[string]edge) // toNode -> toPort -> edge
	for id := range g.nodes {
		incoming[id] = make(map[string]edge)
	}
	for _, e := range g.edges {
		incoming[e.toNode][e.toPort] = e
	}

	for id, n := range g.nodes {
		for _, in := range n.Inputs() {
			if _, ok := incoming[id][in.Name]; !ok {
				return nil, &ValidationError{Reason: ReasonUnconnectedInput, Detail: fmt.Sprintf("%s.%s", id, in.Name)}
			}
		}
	}

	var sinks []string
	for id, n := range g.nodes {
		if len(n.Outputs()) == 0 {
			sinks = append(sinks, id)
		}
	}
	if len(sinks) == 0 {
		return nil, &ValidationError{Reason: ReasonNoSink}
	}
	if len(sinks) > 1 {
		return nil, &ValidationError{Reason: ReasonMultipleSinks, Detail: fmt.Sprintf("%v", sinks)}
	}

	// Kahn's algorithm over the node-level dependency graph.
	deps := make(map[string]map[string]bool) // node -> set of nodes it depends on
	for id := range g.nodes {
		deps[id] = make(map[string]bool)
	}
	for _, e := range g.edges {
		if e.fromNode != e.toNode {
			deps[e.toNode][e.fromNode] = true
		}
	}

	var order []string
	remaining := make(map[string]map[string]bool, len(deps))
	for id, d := range deps {
		cp := make(map[string]bool, len(d))
		for k := range d {
			cp[k] = true
		}
		remaining[id] = cp
	}

	visited := make(map[string]bool, len(g.nodes))
	for len(order) < len(g.nodes) {
		progressed := false
		for _, id := range g.order {
			if visited[id] || len(remaining[id]) > 0 {
				continue
			}
			order = append(order, id)
			visited[id] = true
			for other := range remaining {
				delete(remaining[other], id)
			}
			progressed = true
		}
		if !progressed {
			return nil, &ValidationError{Reason: ReasonCycle}
		}
	}
	return order, nil
}

// Build validates the graph and returns a runnable Pipeline bound to dev.
func (g *Graph) Build(dev *Device) (*Pipeline, error) {
	order, err := g.validate()
	if err != nil {
		return nil, err
	}
	nodes := make(map[string]Node, len(g.nodes))
	var sinkID string
	for id, n := range g.nodes {
		nodes[id] = n
		if len(n.Outputs()) == 0 {
			sinkID = id
		}
	}
	return &Pipeline{
		dev:    dev,
		order:  order,
		nodes:  nodes,
		edges:  append([]edge(nil), g.edges...),
		sinkID: sinkID,
	}, nil
}
