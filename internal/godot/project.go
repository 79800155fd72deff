package godot

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dusk-indust/gdgraph/internal/graph"
)

// ErrNoProject is returned when the analyzed directory has no project.godot.
var ErrNoProject = errors.New("project.godot not found")

var (
	// autoloadRe matches one entry line inside the [autoload] section. The
	// leading * marks the singleton as enabled in the editor; either way the
	// script is registered, so the star is ignored.
	autoloadRe    = regexp.MustCompile(`^(\w+)="?\*?res://([^"\n]+)"?$`)
	projectNameRe = regexp.MustCompile(`config/name="([^"]+)"`)
)

// Project holds the settings read from project.godot.
type Project struct {
	Name       string
	Singletons graph.SingletonTable
}

// ReadProject loads project.godot from root. A missing file means root is
// not a Godot project and is fatal. An unreadable file degrades to an empty
// singleton table so the scan can still run over the tree.
func ReadProject(root string) (*Project, error) {
	p := &Project{
		Name:       "Godot Project",
		Singletons: graph.SingletonTable{},
	}

	path := filepath.Join(root, "project.godot")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w in %s", ErrNoProject, root)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		slog.Default().Warn("project.godot unreadable, continuing without autoloads", "path", path, "error", err)
		return p, nil
	}
	text := string(content)

	inAutoload := false
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "[autoload]" {
			inAutoload = true
			continue
		}
		if strings.HasPrefix(line, "[") && inAutoload {
			inAutoload = false
			continue
		}
		if !inAutoload || !strings.Contains(line, "=") {
			continue
		}
		if m := autoloadRe.FindStringSubmatch(line); m != nil {
			p.Singletons[m[1]] = "res://" + m[2]
		}
	}

	if m := projectNameRe.FindStringSubmatch(text); m != nil {
		p.Name = m[1]
	}

	return p, nil
}
