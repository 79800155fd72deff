package godot

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/dusk-indust/gdgraph/internal/graph"
)

// Scan walks the tree under root and inventories every file whose extension
// maps to a resource kind. Dot-prefixed directories (.godot, .import, .git)
// and dot-prefixed files are skipped, as are kinds the filters exclude.
// Resource paths are logical res:// paths relative to root.
func Scan(root string, filters graph.Filters) (*graph.Inventory, error) {
	inv := graph.NewInventory()
	excluded := filters.ExcludedKinds()

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			// Keep walking when root itself is dot-prefixed ("." included).
			if strings.HasPrefix(name, ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(name))
		kind, ok := graph.KindForExtension(ext)
		if !ok || excluded[kind] {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		relPosix := filepath.ToSlash(rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		inv.Add(&graph.Resource{
			Path:     "res://" + relPosix,
			Kind:     kind,
			Name:     kind.Tag() + " " + strings.TrimSuffix(name, filepath.Ext(name)),
			DiskPath: path,
			Properties: map[string]any{
				"extension":     ext,
				"size":          info.Size(),
				"relative_path": relPosix,
			},
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return inv, nil
}
