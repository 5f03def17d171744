// Package primitives defines the declarative configuration of a machine tree:
// the data a chart file decodes into before it is compiled into
// *hfsm.StateMachine values.
//
// A ChartConfig holds one root MachineConfig. Each MachineConfig lists its
// states, its ordered entrance edges and its ordered transitions. A state is
// either a leaf, bound by name to a behavior the host registers, or a nested
// MachineConfig.
//
// Validation is structural only. Guard expressions are compiled, and leaf
// names resolved, by the loader.
package primitives
