package export

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dusk-indust/gdgraph/internal/graph"
)

// Format identifies an export output format.
type Format string

const (
	FormatJSON    Format = "json"
	FormatMermaid Format = "mermaid"
)

// Generator renders a stored graph into one output format.
type Generator func(ctx context.Context, store graph.Store, project string) ([]byte, error)

// Registry maps export formats to their generators.
type Registry struct {
	mu         sync.Mutex
	generators map[Format]Generator
}

// NewRegistry creates a Registry pre-registered with all shipped formats.
func NewRegistry() *Registry {
	r := &Registry{
		generators: make(map[Format]Generator),
	}
	r.generators[FormatJSON] = GenerateJSON
	r.generators[FormatMermaid] = func(ctx context.Context, store graph.Store, _ string) ([]byte, error) {
		diagram, err := GenerateMermaid(ctx, store)
		if err != nil {
			return nil, err
		}
		return []byte(diagram), nil
	}
	return r
}

// Register adds or replaces the generator for a format.
func (r *Registry) Register(format Format, gen Generator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generators[format] = gen
}

// Generate renders the store using the generator registered for format.
func (r *Registry) Generate(ctx context.Context, format Format, store graph.Store, project string) ([]byte, error) {
	r.mu.Lock()
	gen, ok := r.generators[format]
	r.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("no generator registered for format %q", format)
	}
	return gen(ctx, store, project)
}

// Formats lists the registered format names in sorted order.
func (r *Registry) Formats() []Format {
	r.mu.Lock()
	defer r.mu.Unlock()

	formats := make([]Format, 0, len(r.generators))
	for f := range r.generators {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}
