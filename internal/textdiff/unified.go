package textdiff

import (
	"strconv"
	"strings"
)

// Unified renders hunks in unified diff format with the given number of
// context lines. Hunks whose context windows touch are merged into one
// @@ block. Returns the empty string when there are no hunks.
func Unified(oldLines, newLines []string, hunks []Hunk, oldName, newName string, context int) string {
	if len(hunks) == 0 {
		return ""
	}
	if context < 0 {
		context = 0
	}

	var sb strings.Builder
	sb.WriteString("--- ")
	sb.WriteString(oldName)
	sb.WriteString("\n+++ ")
	sb.WriteString(newName)
	sb.WriteString("\n")

	for _, group := range groupHunks(hunks, context) {
		writeBlock(&sb, oldLines, newLines, group, context)
	}

	return sb.String()
}

// groupHunks splits hunks into runs whose context windows would otherwise
// overlap or touch on the old side.
func groupHunks(hunks []Hunk, context int) [][]Hunk {
	var groups [][]Hunk
	var cur []Hunk

	for _, h := range hunks {
		if len(cur) > 0 {
			prev := cur[len(cur)-1]
			if int(h.OldStart)-context <= int(prev.OldEnd())+context {
				cur = append(cur, h)
				continue
			}
			groups = append(groups, cur)
		}
		cur = []Hunk{h}
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}

	return groups
}

// writeBlock emits one @@ block covering a run of hunks plus context.
func writeBlock(sb *strings.Builder, oldLines, newLines []string, group []Hunk, context int) {
	first, last := group[0], group[len(group)-1]

	oldFrom := int(first.OldStart) - context
	if oldFrom < 0 {
		oldFrom = 0
	}
	newFrom := int(first.NewStart) - context
	if newFrom < 0 {
		newFrom = 0
	}
	oldTo := min(int(last.OldEnd())+context, len(oldLines))
	newTo := min(int(last.NewEnd())+context, len(newLines))

	sb.WriteString("@@ -")
	sb.WriteString(strconv.Itoa(oldFrom + 1))
	sb.WriteString(",")
	sb.WriteString(strconv.Itoa(oldTo - oldFrom))
	sb.WriteString(" +")
	sb.WriteString(strconv.Itoa(newFrom + 1))
	sb.WriteString(",")
	sb.WriteString(strconv.Itoa(newTo - newFrom))
	sb.WriteString(" @@\n")

	oldPos := oldFrom
	for _, h := range group {
		for ; oldPos < int(h.OldStart); oldPos++ {
			sb.WriteString(" ")
			sb.WriteString(oldLines[oldPos])
			sb.WriteString("\n")
		}
		for i := h.OldStart; i < h.OldEnd(); i++ {
			sb.WriteString("-")
			sb.WriteString(oldLines[i])
			sb.WriteString("\n")
		}
		for i := h.NewStart; i < h.NewEnd(); i++ {
			sb.WriteString("+")
			sb.WriteString(newLines[i])
			sb.WriteString("\n")
		}
		oldPos = int(h.OldEnd())
	}
	for ; oldPos < oldTo; oldPos++ {
		sb.WriteString(" ")
		sb.WriteString(oldLines[oldPos])
		sb.WriteString("\n")
	}
}
