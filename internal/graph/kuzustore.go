//go:build cgo

package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore implements the Store interface using KuzuDB as the graph backend.
// It requires CGO because the go-kuzu driver wraps KuzuDB's C library.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection
	lock *flock.Flock
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(":memory:", cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at the
// given directory path. KuzuDB creates the directory itself for new
// databases; for existing databases the directory must contain valid KuzuDB
// files. An advisory lock next to the database keeps a second process from
// opening the same store.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	// Ensure parent directory exists (KuzuDB creates the leaf directory).
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}

	lock := flock.New(dbPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("kuzu: acquire lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("kuzu: database %s is locked by another process", dbPath)
	}

	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(dbPath, cfg)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("kuzu: open file database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		lock.Unlock()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn, lock: lock}, nil
}

// Close releases the KuzuDB connection, database, and file lock.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	if s.lock != nil {
		return s.lock.Unlock()
	}
	return nil
}

// ---------- Schema setup ----------

// ddlStatements defines the Cypher DDL executed by InitSchema.
// Order matters: node tables must precede relationship tables.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS Resource(
		path STRING,
		kind STRING,
		name STRING,
		disk_path STRING,
		props STRING,
		PRIMARY KEY(path)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Cluster(
		name STRING,
		cohesion DOUBLE,
		PRIMARY KEY(name)
	)`,
	`CREATE REL TABLE IF NOT EXISTS DEPENDS_ON(FROM Resource TO Resource, kind STRING, context STRING)`,
	`CREATE REL TABLE IF NOT EXISTS BELONGS_TO(FROM Resource TO Cluster)`,
}

// InitSchema creates all node and relationship tables if they do not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// ---------- Write operations ----------

// AddResource inserts a Resource node. Properties are stored as a compact
// JSON string column.
func (s *KuzuStore) AddResource(_ context.Context, res Resource) error {
	props, err := json.Marshal(res.Properties)
	if err != nil {
		return fmt.Errorf("kuzu: marshal properties: %w", err)
	}
	return s.exec(
		`CREATE (r:Resource {
			path: $path,
			kind: $kind,
			name: $name,
			disk_path: $dp,
			props: $props
		})`,
		map[string]any{
			"path":  res.Path,
			"kind":  string(res.Kind),
			"name":  res.Name,
			"dp":    res.DiskPath,
			"props": string(props),
		},
	)
}

// AddDependency inserts a DEPENDS_ON edge between two resources. Both
// endpoints must already exist; the MATCH silently creates nothing
// otherwise.
func (s *KuzuStore) AddDependency(_ context.Context, dep Dependency) error {
	return s.exec(
		`MATCH (a:Resource {path: $src}), (b:Resource {path: $dst})
		 CREATE (a)-[:DEPENDS_ON {kind: $kind, context: $ctx}]->(b)`,
		map[string]any{
			"src":  dep.Source,
			"dst":  dep.Target,
			"kind": string(dep.Kind),
			"ctx":  dep.Context,
		},
	)
}

// AddCluster inserts a Cluster node plus a BELONGS_TO edge per member.
func (s *KuzuStore) AddCluster(_ context.Context, c Cluster) error {
	err := s.exec(
		"CREATE (c:Cluster {name: $name, cohesion: $score})",
		map[string]any{
			"name":  c.Name,
			"score": c.Cohesion,
		},
	)
	if err != nil {
		return err
	}
	for _, member := range c.Members {
		err := s.exec(
			`MATCH (r:Resource {path: $path}), (c:Cluster {name: $name})
			 CREATE (r)-[:BELONGS_TO]->(c)`,
			map[string]any{
				"path": member,
				"name": c.Name,
			},
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// ---------- Read operations ----------

// GetResource retrieves a single Resource node by logical path, or
// ErrNotFound.
func (s *KuzuStore) GetResource(_ context.Context, path string) (*Resource, error) {
	rows, err := s.query(
		"MATCH (r:Resource {path: $path}) RETURN r.path, r.kind, r.name, r.disk_path, r.props",
		map[string]any{"path": path},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rowToResource(rows[0]), nil
}

// ListResources returns resources of the given kind ordered by path. An
// empty kind returns the whole inventory.
func (s *KuzuStore) ListResources(_ context.Context, kind ResourceKind) ([]Resource, error) {
	var rows [][]any
	var err error
	if kind == "" {
		rows, err = s.query(
			"MATCH (r:Resource) RETURN r.path, r.kind, r.name, r.disk_path, r.props ORDER BY r.path",
			nil,
		)
	} else {
		rows, err = s.query(
			`MATCH (r:Resource) WHERE r.kind = $kind
			 RETURN r.path, r.kind, r.name, r.disk_path, r.props ORDER BY r.path`,
			map[string]any{"kind": string(kind)},
		)
	}
	if err != nil {
		return nil, err
	}
	out := make([]Resource, 0, len(rows))
	for _, r := range rows {
		out = append(out, *rowToResource(r))
	}
	return out, nil
}

// QueryResources returns resources whose name or path contains the query
// string, ordered by path.
func (s *KuzuStore) QueryResources(_ context.Context, queryStr string, limit int) ([]Resource, error) {
	cypher := `MATCH (r:Resource) WHERE r.name CONTAINS $q OR r.path CONTAINS $q
		 RETURN r.path, r.kind, r.name, r.disk_path, r.props ORDER BY r.path`
	params := map[string]any{"q": queryStr}
	if limit > 0 {
		cypher += " LIMIT $lim"
		params["lim"] = int64(limit)
	}
	rows, err := s.query(cypher, params)
	if err != nil {
		return nil, err
	}
	out := make([]Resource, 0, len(rows))
	for _, r := range rows {
		out = append(out, *rowToResource(r))
	}
	return out, nil
}

// GetAllDependencies returns every DEPENDS_ON edge.
func (s *KuzuStore) GetAllDependencies(_ context.Context) ([]Dependency, error) {
	rows, err := s.query(
		`MATCH (a:Resource)-[d:DEPENDS_ON]->(b:Resource)
		 RETURN a.path, b.path, d.kind, d.context`,
		nil,
	)
	if err != nil {
		return nil, err
	}
	out := make([]Dependency, 0, len(rows))
	for _, r := range rows {
		out = append(out, Dependency{
			Source:  toString(r[0]),
			Target:  toString(r[1]),
			Kind:    DependencyKind(toString(r[2])),
			Context: toString(r[3]),
		})
	}
	return out, nil
}

// ---------- Graph traversal ----------

// GetDependencies performs a BFS over DEPENDS_ON edges starting from the
// given resource path. It returns one DependencyChain per reachable
// resource.
func (s *KuzuStore) GetDependencies(_ context.Context, path string, dir Direction, maxDepth int) ([]DependencyChain, error) {
	if maxDepth <= 0 {
		return nil, nil
	}

	// BFS state.
	type bfsEntry struct {
		path  []string
		depth int
	}
	visited := map[string]bool{path: true}
	queue := []bfsEntry{{path: []string{path}, depth: 0}}
	var chains []DependencyChain

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		tip := cur.path[len(cur.path)-1]
		neighbors, err := s.resourceNeighbors(tip, dir)
		if err != nil {
			return nil, err
		}
		for _, nb := range neighbors {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			newPath := make([]string, len(cur.path)+1)
			copy(newPath, cur.path)
			newPath[len(cur.path)] = nb
			chains = append(chains, DependencyChain{
				Nodes: newPath,
				Depth: cur.depth + 1,
			})
			queue = append(queue, bfsEntry{path: newPath, depth: cur.depth + 1})
		}
	}
	return chains, nil
}

// resourceNeighbors returns immediate neighbors along DEPENDS_ON edges.
// Upstream follows what the resource references; downstream finds its
// dependents.
func (s *KuzuStore) resourceNeighbors(path string, dir Direction) ([]string, error) {
	var cypher string
	switch dir {
	case DirectionUpstream:
		cypher = "MATCH (a:Resource {path: $path})-[:DEPENDS_ON]->(b:Resource) RETURN b.path ORDER BY b.path"
	case DirectionDownstream:
		cypher = "MATCH (a:Resource)-[:DEPENDS_ON]->(b:Resource {path: $path}) RETURN a.path ORDER BY a.path"
	default:
		return nil, fmt.Errorf("kuzu: unknown direction: %s", dir)
	}
	rows, err := s.query(cypher, map[string]any{"path": path})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, toString(r[0]))
	}
	return out, nil
}

// AssessImpact computes the blast radius of the given set of changed
// resources. It walks DEPENDS_ON edges against their direction to find
// direct and transitive dependents, then derives a risk score from the
// fan-out ratio.
func (s *KuzuStore) AssessImpact(ctx context.Context, changed []string) (*ImpactResult, error) {
	totalResources, err := s.countTable("Resource")
	if err != nil {
		return nil, err
	}

	directSet := map[string]bool{}
	transitiveSet := map[string]bool{}

	for _, p := range changed {
		chains, err := s.GetDependencies(ctx, p, DirectionDownstream, 1)
		if err != nil {
			return nil, err
		}
		for _, c := range chains {
			directSet[c.Nodes[len(c.Nodes)-1]] = true
		}

		allChains, err := s.GetDependencies(ctx, p, DirectionDownstream, 10)
		if err != nil {
			return nil, err
		}
		for _, c := range allChains {
			transitiveSet[c.Nodes[len(c.Nodes)-1]] = true
		}
	}

	// Remove changed resources themselves from result sets.
	changedMap := map[string]bool{}
	for _, p := range changed {
		changedMap[p] = true
	}
	direct := filterKeys(directSet, changedMap)
	transitive := filterKeys(transitiveSet, changedMap)

	result := &ImpactResult{
		DirectlyAffected:     direct,
		TransitivelyAffected: transitive,
	}
	for _, p := range transitive {
		res, err := s.GetResource(ctx, p)
		if err != nil {
			continue
		}
		switch res.Kind {
		case KindScene:
			result.AffectedScenes++
		case KindScript:
			result.AffectedScripts++
		}
	}
	if totalResources > 0 {
		result.RiskScore = math.Min(1.0, float64(len(transitive))/float64(totalResources))
	}
	return result, nil
}

// GetClusters returns all Cluster nodes with their members.
func (s *KuzuStore) GetClusters(_ context.Context) ([]Cluster, error) {
	rows, err := s.query(
		"MATCH (c:Cluster) RETURN c.name, c.cohesion ORDER BY c.name",
		nil,
	)
	if err != nil {
		return nil, err
	}
	out := make([]Cluster, 0, len(rows))
	for _, r := range rows {
		name := toString(r[0])
		cohesion := toFloat64(r[1])

		memberRows, err := s.query(
			`MATCH (r:Resource)-[:BELONGS_TO]->(c:Cluster {name: $name})
			 RETURN r.path ORDER BY r.path`,
			map[string]any{"name": name},
		)
		if err != nil {
			return nil, err
		}
		members := make([]string, 0, len(memberRows))
		for _, mr := range memberRows {
			members = append(members, toString(mr[0]))
		}

		out = append(out, Cluster{
			Name:     name,
			Cohesion: cohesion,
			Members:  members,
		})
	}
	return out, nil
}

// ---------- Stats ----------

// Stats returns counts over the stored graph.
func (s *KuzuStore) Stats(_ context.Context) (*GraphStats, error) {
	resources, err := s.countTable("Resource")
	if err != nil {
		return nil, err
	}
	clusters, err := s.countTable("Cluster")
	if err != nil {
		return nil, err
	}
	deps, err := s.countEdges("DEPENDS_ON")
	if err != nil {
		return nil, err
	}
	// Properties are compact JSON with sorted keys, so the singleton
	// marker always serializes as this exact substring.
	singletons, err := s.countWhere("Resource", `r.props CONTAINS '"singleton":true'`)
	if err != nil {
		return nil, err
	}
	return &GraphStats{
		ResourceCount:   resources,
		DependencyCount: deps,
		SingletonCount:  singletons,
		ClusterCount:    clusters,
	}, nil
}

// ---------- Internal helpers ----------

// exec runs a parameterized Cypher statement that produces no result rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a parameterized Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// countTable returns the number of rows in a node table.
func (s *KuzuStore) countTable(table string) (int, error) {
	// Table name is a fixed internal constant, not user input.
	cypher := fmt.Sprintf("MATCH (n:%s) RETURN count(n)", table)
	rows, err := s.query(cypher, nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	return toInt(rows[0][0]), nil
}

// countWhere returns the number of rows in a node table matching a fixed
// predicate. Both arguments are internal constants, never user input.
func (s *KuzuStore) countWhere(table, predicate string) (int, error) {
	cypher := fmt.Sprintf("MATCH (r:%s) WHERE %s RETURN count(r)", table, predicate)
	rows, err := s.query(cypher, nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	return toInt(rows[0][0]), nil
}

// countEdges returns the number of edges in a relationship table.
func (s *KuzuStore) countEdges(table string) (int, error) {
	cypher := fmt.Sprintf("MATCH ()-[r:%s]->() RETURN count(r)", table)
	rows, err := s.query(cypher, nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	return toInt(rows[0][0]), nil
}

// rowToResource converts a 5-column result row into a Resource.
// Column order: path, kind, name, disk_path, props.
func rowToResource(r []any) *Resource {
	res := &Resource{
		Path:     toString(r[0]),
		Kind:     ResourceKind(toString(r[1])),
		Name:     toString(r[2]),
		DiskPath: toString(r[3]),
	}
	if props := toString(r[4]); props != "" && props != "null" {
		var m map[string]any
		if err := json.Unmarshal([]byte(props), &m); err == nil {
			res.Properties = m
		}
	}
	return res
}

// filterKeys returns keys from set that are not in exclude, as a sorted slice.
func filterKeys(set, exclude map[string]bool) []string {
	out := make(map[string]bool, len(set))
	for k := range set {
		if !exclude[k] {
			out[k] = true
		}
	}
	return setToSlice(out)
}

// ---------- Type coercion helpers ----------
// KuzuDB returns typed Go values (int64, float64, bool, string).
// These helpers safely coerce any -> concrete type.

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
