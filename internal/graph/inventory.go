package graph

import "sort"

// Inventory is the resource table keyed by logical path. It is built by a
// single goroutine during scanning and read-only afterward; the one
// permitted mutation is the singleton overlay in FoldSingleton.
type Inventory struct {
	resources map[string]*Resource
}

// NewInventory returns an empty inventory.
func NewInventory() *Inventory {
	return &Inventory{resources: make(map[string]*Resource)}
}

// Add inserts a resource keyed by its logical path. Later inserts for the
// same path replace the earlier entry; the scanner never produces
// duplicates, so this only matters for tests building inventories by hand.
func (inv *Inventory) Add(res *Resource) {
	inv.resources[res.Path] = res
}

// Get returns the resource for the given logical path.
func (inv *Inventory) Get(logicalPath string) (*Resource, bool) {
	res, ok := inv.resources[logicalPath]
	return res, ok
}

// Len returns the number of inventoried resources.
func (inv *Inventory) Len() int {
	return len(inv.resources)
}

// Paths returns all logical paths in sorted order.
func (inv *Inventory) Paths() []string {
	paths := make([]string, 0, len(inv.resources))
	for p := range inv.resources {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Resources returns all resources ordered by logical path.
func (inv *Inventory) Resources() []*Resource {
	out := make([]*Resource, 0, len(inv.resources))
	for _, p := range inv.Paths() {
		out = append(out, inv.resources[p])
	}
	return out
}

// ByKind returns the resources of the given kind, ordered by logical path.
func (inv *Inventory) ByKind(kind ResourceKind) []*Resource {
	var out []*Resource
	for _, res := range inv.Resources() {
		if res.Kind == kind {
			out = append(out, res)
		}
	}
	return out
}

// CountByKind returns a kind histogram over the inventory.
func (inv *Inventory) CountByKind() map[ResourceKind]int {
	counts := make(map[ResourceKind]int)
	for _, res := range inv.resources {
		counts[res.Kind]++
	}
	return counts
}

// FoldSingleton upgrades the resource at logicalPath to an autoload
// singleton. If the path is already inventoried (the autoload was also
// scanned as a script), the existing resource keeps its kind and gains
// singleton properties and an autoload-labeled display name. Otherwise a
// new autoload-kind resource is synthesized. This is the only mutation an
// inventoried resource ever undergoes.
func (inv *Inventory) FoldSingleton(name, logicalPath, diskPath string) *Resource {
	if res, ok := inv.resources[logicalPath]; ok {
		if res.Properties == nil {
			res.Properties = make(map[string]any, 2)
		}
		res.Properties["autoload_name"] = name
		res.Properties["singleton"] = true
		res.Name = KindAutoload.Tag() + " " + name
		return res
	}
	res := &Resource{
		Path:     logicalPath,
		Kind:     KindAutoload,
		Name:     KindAutoload.Tag() + " " + name,
		DiskPath: diskPath,
		Properties: map[string]any{
			"autoload_name": name,
			"singleton":     true,
		},
	}
	inv.resources[logicalPath] = res
	return res
}

