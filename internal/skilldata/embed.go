// Package skilldata embeds the gdgraph skill files for distribution inside
// the gdgraph binary. The embedded filesystem is rooted at "skill/gdgraph/"
// and contains SKILL.md and references/.
package skilldata

import "embed"

// SkillFS contains the embedded skill files. Walk from "skill/gdgraph" to
// iterate over all files.
//
//go:embed all:skill
var SkillFS embed.FS
