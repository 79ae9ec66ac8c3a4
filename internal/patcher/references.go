package patcher

import (
	"regexp"
	"strings"
)

var (
	refPattern   = regexp.MustCompile(`OR = \{ has_terrain = (\w+)(?: has_terrain = \w+)* \}|\bhas_terrain\s*=\s*"?(\w+)"?`)
	plainPattern = regexp.MustCompile(`\bhas_terrain\s*=\s*"?(\w+)"?`)
	groupNames   = regexp.MustCompile(`has_terrain = (\w+)`)
	locPattern   = regexp.MustCompile(`^(\s*)([\w.]+):(\d*)(\s*)(".*)$`)
)

// CloneSet maps original category names to their clones.
type CloneSet struct {
	Prefix    string
	ByTerrain map[string][]string
}

func (cs CloneSet) group(name string) string {
	var b strings.Builder
	b.WriteString("OR = { has_terrain = " + name)
	for _, c := range cs.ByTerrain[name] {
		b.WriteString(" has_terrain = " + c)
	}
	b.WriteString(" }")
	return b.String()
}

// owns reports whether an OR group only lists name and clones of it, which
// is the shape RewriteReferences produces.
func (cs CloneSet) owns(group, name string) bool {
	for i, m := range groupNames.FindAllStringSubmatch(group, -1) {
		if i > 0 && !strings.HasPrefix(m[1], cs.Prefix+"_"+name+"_") {
			return false
		}
	}
	return true
}

func (cs CloneSet) rewritePlain(m string) string {
	name := plainPattern.FindStringSubmatch(m)[1]
	if _, ok := cs.ByTerrain[name]; !ok {
		return m
	}
	return cs.group(name)
}

// RewriteReferences replaces `has_terrain = <name>` triggers for cloned
// categories with an OR over the original and its clones. Groups written by
// an earlier run are regenerated so new clones are picked up. Comments are
// left untouched. It returns the new text and the number of rewritten
// references.
func (cs CloneSet) RewriteReferences(text string) (string, int) {
	n := 0
	lines := strings.SplitAfter(text, "\n")
	for i, line := range lines {
		code, comment := splitComment(line)
		if !strings.Contains(code, "has_terrain") {
			continue
		}
		code = refPattern.ReplaceAllStringFunc(code, func(m string) string {
			var out string
			if strings.HasPrefix(m, "OR") {
				name := refPattern.FindStringSubmatch(m)[1]
				if _, ok := cs.ByTerrain[name]; ok && cs.owns(m, name) {
					out = cs.group(name)
				} else {
					out = plainPattern.ReplaceAllStringFunc(m, cs.rewritePlain)
				}
			} else {
				out = cs.rewritePlain(m)
			}
			if out != m {
				n++
			}
			return out
		})
		lines[i] = code + comment
	}
	return strings.Join(lines, ""), n
}

// DuplicateLocalisation adds a `<clone>:N "text"` line after every
// localisation key that names a cloned category, unless the clone key is
// already present.
func (cs CloneSet) DuplicateLocalisation(text string) (string, int) {
	lines := strings.SplitAfter(text, "\n")
	present := make(map[string]bool)
	for _, line := range lines {
		if m := locPattern.FindStringSubmatch(strings.TrimRight(line, "\r\n")); m != nil {
			present[m[2]] = true
		}
	}

	n := 0
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		trimmed := strings.TrimRight(line, "\r\n")
		m := locPattern.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		eol := line[len(trimmed):]
		if eol == "" {
			eol = "\n"
		}
		for _, c := range cs.ByTerrain[m[2]] {
			if present[c] {
				continue
			}
			if !strings.HasSuffix(line, "\n") {
				b.WriteString(eol)
				line += eol
			}
			b.WriteString(m[1] + c + ":" + m[3] + m[4] + m[5] + eol)
			present[c] = true
			n++
		}
	}
	return b.String(), n
}
