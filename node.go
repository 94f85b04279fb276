package pipeline

import "context"

// Node is one stage of a pipeline graph. Implementations live in the
// nodes/ subpackages (imagenode, keypointnode); this package only knows
// their port contracts and how to schedule Process calls.
type Node interface {
	// Name identifies the node's role for logging and error messages. It
	// need not be unique across a graph; Graph.AddNode assigns the unique
	// scheduling id.
	Name() string

	// Inputs and Outputs declare the node's port contract. Both are called
	// once, when the node is added to a graph, and must return the same
	// value on every call.
	Inputs() []PortSpec
	Outputs() []PortSpec

	// Process consumes one Message per declared input and produces one
	// Message per declared output. dev provides access to the GPU adapter
	// and texture pool for nodes that allocate or read back GPU resources.
	// A source node (no inputs) receives an empty map; a sink node (no
	// outputs) returns an empty map.
	Process(ctx context.Context, dev *Device, in map[string]Message) (map[string]Message, error)
}

// portSpecByName finds a declared port by name, or reports ok == false.
func portSpecByName(specs []PortSpec, name string) (PortSpec, bool) {
	for _, s := range specs {
		if s.Name == name {
			return s, true
		}
	}
	return PortSpec{}, false
}
