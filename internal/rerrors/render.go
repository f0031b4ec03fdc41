package rerrors

import (
	"fmt"
	"strings"
)

// Render produces the user-visible format of spec.md §7:
//
//	class_name: message
//	followed by framed source excerpts with ^-underlines at each captured
//	location.
//
// source maps a frame's Path to its full text so the offending line can be
// excerpted; frames whose Path isn't found are rendered without an excerpt.
func Render(className, message string, stack []SourceLoc, source func(path string) (string, bool)) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", className, message)
	for _, loc := range stack {
		text, ok := source(loc.Path)
		if !ok {
			fmt.Fprintf(&b, "\tfrom %s:%d\n", loc.Path, loc.Line)
			continue
		}
		lines := strings.Split(text, "\n")
		if loc.Line < 1 || loc.Line > len(lines) {
			fmt.Fprintf(&b, "\tfrom %s:%d\n", loc.Path, loc.Line)
			continue
		}
		line := lines[loc.Line-1]
		fmt.Fprintf(&b, "%s:%d: in %s\n", loc.Path, loc.Line, nameOr(loc.MethodName, "<main>"))
		fmt.Fprintf(&b, "%s\n", line)
		b.WriteString(caretLine(line, loc.StartCol, loc.EndCol))
		b.WriteString("\n")
	}
	return b.String()
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

// caretLine builds a line of spaces with '^' under [start,end).
func caretLine(line string, start, end int) string {
	if end <= start {
		end = start + 1
	}
	var b strings.Builder
	for i, r := range line {
		if i >= end {
			break
		}
		if i < start {
			if r == '\t' {
				b.WriteByte('\t')
			} else {
				b.WriteByte(' ')
			}
			continue
		}
		b.WriteByte('^')
	}
	return b.String()
}
