// Package textmetrics measures display width and truncates text safely
// for terminal layout. Width comes from go-runewidth; truncation walks
// grapheme clusters with uniseg so a multi-unit cluster is never split.
package textmetrics

import (
	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

const ellipsis = "…"

// Width returns the display width of s in terminal cells.
func Width(s string) int {
	return runewidth.StringWidth(s)
}

// Truncate cuts s to at most maxWidth display cells, appending an
// ellipsis when anything was removed. Cuts happen only on grapheme
// cluster boundaries. maxWidth below 1 returns the empty string.
func Truncate(s string, maxWidth int) string {
	if maxWidth < 1 {
		return ""
	}
	if Width(s) <= maxWidth {
		return s
	}

	budget := maxWidth - runewidth.StringWidth(ellipsis)
	var out []byte
	used := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		cluster := g.Str()
		w := runewidth.StringWidth(cluster)
		if used+w > budget {
			break
		}
		out = append(out, cluster...)
		used += w
	}
	return string(out) + ellipsis
}
