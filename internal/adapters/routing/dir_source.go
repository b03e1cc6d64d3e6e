package routing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"state-time-service/internal/domain"
	"state-time-service/internal/ports"
	"strings"
)

// DirSource lists Valhalla route JSON files (*.json) in a directory.
type DirSource struct {
	Dir string
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{Dir: dir}
}

func (s *DirSource) ListRoutes(ctx context.Context) ([]ports.RouteRef, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("list routes in %q: %w", s.Dir, err)
	}

	refs := make([]ports.RouteRef, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		refs = append(refs, ports.RouteRef{Name: name, TripKey: TripKeyFromName(name)})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })

	return refs, nil
}

func (s *DirSource) LoadRoute(ctx context.Context, ref ports.RouteRef) (*domain.Route, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b, err := os.ReadFile(filepath.Join(s.Dir, ref.Name+".json"))
	if err != nil {
		return nil, fmt.Errorf("load route %s: %w", ref.Name, err)
	}
	return ParseRoute(ref.TripKey, b)
}

// SaveRoute writes a raw route response as <name>.json.
func (s *DirSource) SaveRoute(name string, body []byte) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("save route %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(s.Dir, name+".json"), body, 0o644); err != nil {
		return fmt.Errorf("save route %s: %w", name, err)
	}
	return nil
}
