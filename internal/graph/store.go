package graph

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by lookups for paths absent from the store.
var ErrNotFound = errors.New("graph: resource not found")

// Store is the interface for the dependency graph backend.
// Implementations: KuzuStore (persistent, cgo), MemStore (in-memory).
// All graph access outside this package goes through this interface.
type Store interface {
	io.Closer

	// Schema setup, called once before any data is inserted.
	InitSchema(ctx context.Context) error

	// Write operations.
	AddResource(ctx context.Context, res Resource) error
	AddDependency(ctx context.Context, dep Dependency) error
	AddCluster(ctx context.Context, c Cluster) error

	// Read operations.
	GetResource(ctx context.Context, path string) (*Resource, error)
	ListResources(ctx context.Context, kind ResourceKind) ([]Resource, error)
	QueryResources(ctx context.Context, query string, limit int) ([]Resource, error)
	GetAllDependencies(ctx context.Context) ([]Dependency, error)

	// Graph traversal.
	GetDependencies(ctx context.Context, path string, direction Direction, maxDepth int) ([]DependencyChain, error)
	AssessImpact(ctx context.Context, changed []string) (*ImpactResult, error)
	GetClusters(ctx context.Context) ([]Cluster, error)

	// Stats.
	Stats(ctx context.Context) (*GraphStats, error)
}

// Direction controls dependency traversal direction.
type Direction string

const (
	DirectionUpstream   Direction = "upstream"   // what does this depend on?
	DirectionDownstream Direction = "downstream" // what depends on this?
)
