package pipeline

// PortDirection distinguishes a node's input ports from its output ports.
type PortDirection int

const (
	DirectionInput PortDirection = iota
	DirectionOutput
)

// PortSpec declares one named, typed port a Node exposes. Nodes report
// their ports through Node.Inputs and Node.Outputs; the graph validates
// connections against these declarations before a pipeline ever runs.
type PortSpec struct {
	Name string
	Kind MessageKind
}

// PortRef identifies one port on one node already added to a Graph. Obtain
// a PortRef via NodeHandle.Input/NodeHandle.Output, not by constructing one
// directly.
type PortRef struct {
	nodeID    string
	port      string
	direction PortDirection
}

// NodeHandle is the graph-scoped reference to a Node returned by
// Graph.AddNode, used to build PortRefs for Connect.
type NodeHandle struct {
	id   string
	node Node
}

// ID returns the node's identifier within its graph.
func (h *NodeHandle) ID() string { return h.id }

// Input returns a PortRef for one of the node's declared input ports.
func (h *NodeHandle) Input(name string) PortRef {
	return PortRef{nodeID: h.id, port: name, direction: DirectionInput}
}

// Output returns a PortRef for one of the node's declared output ports.
func (h *NodeHandle) Output(name string) PortRef {
	return PortRef{nodeID: h.id, port: name, direction: DirectionOutput}
}
