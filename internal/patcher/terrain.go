package patcher

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bjornbryggman/eu4-modding-tools/internal/apperr"
)

// Target is a province that should own a bespoke terrain category.
type Target struct {
	ProvinceID int
	Terrain    string
}

// Clone is a bespoke category cloned from Terrain for one province.
type Clone struct {
	Name       string
	Terrain    string
	ProvinceID int
}

// CloneName returns the category name used for a province's clone.
func CloneName(prefix, terrain string, provinceID int) string {
	return fmt.Sprintf("%s_%s_%d", prefix, terrain, provinceID)
}

// TerrainResult describes what PatchTerrain did.
type TerrainResult struct {
	Created  []Clone
	Existing []Clone
	Warnings []string
}

func categories(text string) (span, []span, error) {
	cats, ok := find(blocks(text, 0, len(text)), "categories")
	if !ok {
		return span{}, nil, apperr.Validationf("terrain file has no categories block")
	}
	return cats, blocks(text, cats.Open+1, cats.Close), nil
}

// PatchTerrain adds one cloned category per target to the categories block of
// a terrain.txt text and moves the province out of every other category's
// terrain_override list. Targets whose clone already exists are left alone.
func PatchTerrain(text, prefix string, targets []Target) (string, *TerrainResult, error) {
	res := &TerrainResult{}
	for _, t := range targets {
		clone := Clone{Name: CloneName(prefix, t.Terrain, t.ProvinceID), Terrain: t.Terrain, ProvinceID: t.ProvinceID}

		_, children, err := categories(text)
		if err != nil {
			return "", nil, err
		}
		if _, ok := find(children, clone.Name); ok {
			res.Existing = append(res.Existing, clone)
			continue
		}
		orig, ok := find(children, t.Terrain)
		if !ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf("province %d: no terrain category %q", t.ProvinceID, t.Terrain))
			continue
		}

		body := text[orig.Open+1 : orig.Close]
		indent := lineIndent(text, orig.Start)
		cloned := indent + clone.Name + " = {" + withOverride(body, t.ProvinceID, indent) + "}\n"

		text, err = stripOverrides(text, prefix, t.ProvinceID)
		if err != nil {
			return "", nil, err
		}

		cats, _, err := categories(text)
		if err != nil {
			return "", nil, err
		}
		lineStart := strings.LastIndexByte(text[:cats.Close], '\n') + 1
		if strings.TrimSpace(text[lineStart:cats.Close]) == "" {
			text = text[:lineStart] + cloned + text[lineStart:]
		} else {
			text = text[:cats.Close] + "\n" + cloned + text[cats.Close:]
		}
		res.Created = append(res.Created, clone)
	}
	return text, res, nil
}

// withOverride returns a category body whose terrain_override lists only id.
func withOverride(body string, id int, indent string) string {
	if ov, ok := find(blocks(body, 0, len(body)), "terrain_override"); ok {
		return body[:ov.Open+1] + " " + strconv.Itoa(id) + " " + body[ov.Close:]
	}
	inner := indent + "\t"
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) != "" {
			inner = lineIndent(line, 0)
			break
		}
	}
	return strings.TrimRight(body, " \t\r\n") + "\n" + inner + "terrain_override = { " + strconv.Itoa(id) + " }\n" + indent
}

// stripOverrides removes id from the terrain_override list of every category
// that is not one of prefix's clones, so only the new clone overrides it.
func stripOverrides(text, prefix string, id int) (string, error) {
	_, children, err := categories(text)
	if err != nil {
		return "", err
	}
	for i := len(children) - 1; i >= 0; i-- {
		c := children[i]
		if strings.HasPrefix(c.Key, prefix+"_") {
			continue
		}
		text = text[:c.Open+1] + removeOverride(text[c.Open+1:c.Close], id) + text[c.Close:]
	}
	return text, nil
}

// removeOverride deletes id from every terrain_override list in a category body.
func removeOverride(body string, id int) string {
	spans := blocks(body, 0, len(body))
	re := regexp.MustCompile(`\b` + strconv.Itoa(id) + `\b`)
	for i := len(spans) - 1; i >= 0; i-- {
		ov := spans[i]
		if ov.Key != "terrain_override" {
			continue
		}
		content := body[ov.Open+1 : ov.Close]
		lines := strings.SplitAfter(content, "\n")
		for j, line := range lines {
			code, comment := splitComment(line)
			lines[j] = removeMatches(code, re) + comment
		}
		body = body[:ov.Open+1] + strings.Join(lines, "") + body[ov.Close:]
	}
	return body
}

// removeMatches cuts every match of re from a line along with one run of
// adjacent blanks: the preceding run between two values, the following run
// at the start of a line.
func removeMatches(line string, re *regexp.Regexp) string {
	locs := re.FindAllStringIndex(line, -1)
	for k := len(locs) - 1; k >= 0; k-- {
		start, end := locs[k][0], locs[k][1]
		blank := start
		for blank > 0 && (line[blank-1] == ' ' || line[blank-1] == '\t') {
			blank--
		}
		if blank > 0 && line[blank-1] != '\n' {
			start = blank
		} else {
			for end < len(line) && (line[end] == ' ' || line[end] == '\t') {
				end++
			}
		}
		line = line[:start] + line[end:]
	}
	return line
}

// ExistingClones maps each original category name to the clones of it present
// in a terrain.txt text, in file order.
func ExistingClones(text, prefix string) (map[string][]string, error) {
	_, children, err := categories(text)
	if err != nil {
		return nil, err
	}
	names := make(map[string]bool, len(children))
	for _, c := range children {
		names[c.Key] = true
	}

	out := make(map[string][]string)
	for _, c := range children {
		rest, ok := strings.CutPrefix(c.Key, prefix+"_")
		if !ok {
			continue
		}
		cut := strings.LastIndexByte(rest, '_')
		if cut <= 0 {
			continue
		}
		if _, err := strconv.Atoi(rest[cut+1:]); err != nil {
			continue
		}
		if orig := rest[:cut]; names[orig] {
			out[orig] = append(out[orig], c.Key)
		}
	}
	return out, nil
}

// splitComment splits a line at its first '#' outside a quoted string.
func splitComment(line string) (code, comment string) {
	inString := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inString = !inString
		case '#':
			if !inString {
				return line[:i], line[i:]
			}
		}
	}
	return line, ""
}
