// Package color assigns stable terminal colors to agents and statuses for
// CLI output. Respects NO_COLOR and non-tty output via fatih/color's
// auto-detection.
package color

import (
	"hash/fnv"

	"github.com/fatih/color"
)

// Palette used for agent coloring. An agent id always hashes to the same
// entry, so its color is stable across runs.
var agentPalette = []*color.Color{
	color.New(color.FgHiRed),
	color.New(color.FgHiGreen),
	color.New(color.FgHiYellow),
	color.New(color.FgHiBlue),
	color.New(color.FgHiMagenta),
	color.New(color.FgHiCyan),
	color.New(color.FgRed),
	color.New(color.FgGreen),
	color.New(color.FgYellow),
	color.New(color.FgBlue),
	color.New(color.FgMagenta),
	color.New(color.FgCyan),
}

var statusColors = map[string]*color.Color{
	"pending":          color.New(color.FgWhite),
	"assigned":         color.New(color.FgCyan),
	"in_progress":      color.New(color.FgBlue),
	"handoff":          color.New(color.FgMagenta),
	"waiting_approval": color.New(color.FgYellow),
	"draft":            color.New(color.FgWhite),
	"active":           color.New(color.FgBlue),
	"paused":           color.New(color.FgYellow),
	"completed":        color.New(color.FgGreen),
	"failed":           color.New(color.FgRed),
	"rejected":         color.New(color.FgRed),
}

// Agent returns the agent id wrapped in its stable color.
func Agent(agentID string) string {
	h := fnv.New32a()
	h.Write([]byte(agentID))
	c := agentPalette[int(h.Sum32())%len(agentPalette)]
	return c.Sprint(agentID)
}

// Status colors a task or workflow status string. Unknown statuses pass
// through uncolored.
func Status(status string) string {
	if c, ok := statusColors[status]; ok {
		return c.Sprint(status)
	}
	return status
}

// Header renders a bold table header cell.
func Header(text string) string {
	return color.New(color.Bold).Sprint(text)
}
