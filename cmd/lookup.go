package cmd

import (
	"sort"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
)

type nameMatch struct {
	id   int
	name string
	dist int
}

// resolveProvince maps a CLI argument (an id or a name, case-insensitive) to
// a province id. When nothing matches exactly it returns up to three close
// names as suggestions.
func resolveProvince(arg string, names map[int]string) (int, bool, []string) {
	if id, err := strconv.Atoi(strings.TrimSpace(arg)); err == nil {
		_, ok := names[id]
		return id, ok, nil
	}

	want := strings.ToLower(strings.TrimSpace(arg))
	var near []nameMatch
	for id, name := range names {
		cand := strings.ToLower(name)
		if cand == want {
			return id, true, nil
		}
		dist := levenshtein.ComputeDistance(want, cand)
		if dist <= distanceLimit(len(cand)) {
			near = append(near, nameMatch{id: id, name: name, dist: dist})
		}
	}

	sort.Slice(near, func(i, j int) bool {
		if near[i].dist != near[j].dist {
			return near[i].dist < near[j].dist
		}
		return near[i].id < near[j].id
	})
	var suggestions []string
	for i := 0; i < len(near) && i < 3; i++ {
		suggestions = append(suggestions, near[i].name+" (#"+strconv.Itoa(near[i].id)+")")
	}
	return 0, false, suggestions
}

func distanceLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}

// parseIDs turns "1,2, 3" style flag values into ids.
func parseIDs(values []string) ([]int, error) {
	var ids []int
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.Atoi(part)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}
