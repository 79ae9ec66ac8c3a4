package geography

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bjornbryggman/eu4-modding-tools/internal/pdx"
)

// Definition is one row of definition.csv.
type Definition struct {
	ID      int
	R, G, B uint8
	Name    string
}

// ParseDefinitions reads definition.csv (`province;red;green;blue;name;x`).
// The header and rows whose id is not a number are skipped.
func ParseDefinitions(text string) ([]Definition, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = ';'
	r.Comment = '#'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var defs []Definition
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading definitions: %w", err)
		}
		if len(rec) < 4 {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil {
			continue // header
		}
		var rgb [3]uint8
		for i := 0; i < 3; i++ {
			v, err := strconv.Atoi(strings.TrimSpace(rec[i+1]))
			if err != nil || v < 0 || v > 255 {
				return nil, fmt.Errorf("province %d: bad color component %q", id, rec[i+1])
			}
			rgb[i] = uint8(v)
		}
		d := Definition{ID: id, R: rgb[0], G: rgb[1], B: rgb[2]}
		if len(rec) > 4 {
			d.Name = strings.TrimSpace(rec[4])
		}
		defs = append(defs, d)
	}
	return defs, nil
}

// positionNames returns province names from the comment above each entry of positions.txt.
func positionNames(root *pdx.Node) map[int]string {
	names := make(map[int]string)
	for _, n := range root.Entries() {
		id, err := strconv.Atoi(n.Key)
		if err != nil {
			continue
		}
		names[id] = n.Comment
	}
	return names
}
