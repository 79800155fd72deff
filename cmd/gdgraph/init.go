package main

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio"
	"github.com/spf13/cobra"

	"github.com/dusk-indust/gdgraph/internal/skilldata"
)

// mcpConfig represents the structure of a .mcp.json file.
type mcpConfig struct {
	MCPServers map[string]json.RawMessage `json:"mcpServers"`
}

// gdgraphMCPEntry is the MCP server configuration for the gdgraph binary.
var gdgraphMCPEntry = json.RawMessage(`{
  "type": "stdio",
  "command": "gdgraph",
  "args": ["mcp"]
}`)

var initCmd = &cobra.Command{
	Use:   "init [project-root]",
	Short: "Install the gdgraph skill and MCP configuration into a project",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) == 1 {
			root = args[0]
		}
		force, _ := cmd.Flags().GetBool("force")
		return runInit(root, force)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "overwrite existing skill files and MCP entries")
}

// runInit installs the gdgraph skill files and MCP configuration into the
// target project directory.
func runInit(projectRoot string, force bool) error {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return fmt.Errorf("resolving project root: %w", err)
	}

	if err := installSkill(abs, force); err != nil {
		return fmt.Errorf("copying skill files: %w", err)
	}
	if err := mergeMCPConfig(filepath.Join(abs, ".mcp.json"), force); err != nil {
		return err
	}

	fmt.Println("\nSetup complete. The /gdgraph skill and MCP server are ready.")
	return nil
}

// installSkill copies the embedded skill tree into the project's
// .claude/skills directory. Existing files are kept unless force is set.
func installSkill(projectRoot string, force bool) error {
	skillDir := filepath.Join(projectRoot, ".claude", "skills", "gdgraph")

	const embedRoot = "skill/gdgraph"
	return fs.WalkDir(skilldata.SkillFS, embedRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(embedRoot, path)
		if err != nil {
			return err
		}
		dest := filepath.Join(skillDir, rel)

		if d.IsDir() {
			return os.MkdirAll(dest, 0o755)
		}

		if !force {
			if _, err := os.Stat(dest); err == nil {
				fmt.Printf("  skipped %s (exists, use --force to overwrite)\n", dotRelative(projectRoot, dest))
				return nil
			}
		}

		data, err := skilldata.SkillFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading embedded %s: %w", path, err)
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", dest, err)
		}

		fmt.Printf("  created %s\n", dotRelative(projectRoot, dest))
		return nil
	})
}

// mergeMCPConfig creates or merges the gdgraph entry into .mcp.json.
func mergeMCPConfig(mcpPath string, force bool) error {
	var cfg mcpConfig

	data, err := os.ReadFile(mcpPath)
	if err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parsing %s: %w", mcpPath, err)
		}
	}

	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]json.RawMessage)
	}

	if _, exists := cfg.MCPServers["gdgraph"]; exists && !force {
		fmt.Printf("  skipped .mcp.json gdgraph entry (exists, use --force to overwrite)\n")
		return nil
	}

	cfg.MCPServers["gdgraph"] = gdgraphMCPEntry

	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling .mcp.json: %w", err)
	}

	if err := renameio.WriteFile(mcpPath, append(out, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", mcpPath, err)
	}

	action := "created"
	if data != nil {
		action = "updated"
	}
	fmt.Printf("  %s .mcp.json with gdgraph MCP server\n", action)
	return nil
}

// dotRelative returns a display path relative to the project root, prefixed
// with "./".
func dotRelative(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return path
	}
	return "./" + rel
}
