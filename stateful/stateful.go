// Package stateful defines the checkpoint contract between the simulation
// and durable storage.
package stateful

// A Holder is a named element whose state can be checkpointed and restored.
// The checkpoint map is the element's serialization contract: it carries
// exactly the fields an external store needs to reconstruct the element.
type Holder interface {
	Name() string

	Checkpoint() (map[string]any, error)
	Restore(map[string]any) error
}
