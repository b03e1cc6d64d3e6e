package ports

import "context"

// Port: durable cell -> state mapping loaded at the start of a run and
// persisted at the end.
type CellStore interface {
	// Load every stored cell mapping.
	Load(ctx context.Context) (map[string]string, error)
	// Persist cell mappings. Existing cells are never overwritten.
	Save(ctx context.Context, cells map[string]string) error
}
