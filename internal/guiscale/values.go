// Package guiscale rescales the positional values of .gui and .gfx layout
// files for higher display resolutions.
//
// Factors are learned from pairs of original and hand-scaled files
// (Calibrate) and then applied to any layout tree (Apply, ScaleDir).
package guiscale

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Properties lists the positional keys that are extracted and scaled.
var Properties = []string{
	"x", "y", "width", "height", "maxWidth", "maxHeight",
	"size", "borderSize", "spacing", "position", "pos_x",
}

var (
	propPattern  = regexp.MustCompile(`(?i)\b(` + strings.Join(Properties, "|") + `)\b(\s*=\s*)(\{[^}]*\}|[^\s{}#]+)`)
	innerPattern = regexp.MustCompile(`(\w+)(\s*=\s*)([^\s{}#]+)`)
)

// Extract returns the non-negative integer values of each positional
// property in text, in file order. Keys are lower case.
func Extract(text string) map[string][]int {
	out := make(map[string][]int)
	for _, m := range propPattern.FindAllStringSubmatch(text, -1) {
		v, err := strconv.Atoi(m[3])
		if err != nil || v < 0 || strings.HasPrefix(m[3], "+") {
			continue
		}
		prop := strings.ToLower(m[1])
		out[prop] = append(out[prop], v)
	}
	return out
}

// Resolver picks the factor for a property: the file's own calibrated
// factor, then the global mean, then Default. A zero Default leaves
// uncalibrated properties untouched.
type Resolver struct {
	PerFile map[string]float64
	Global  map[string]float64
	Default float64
}

// Factor returns the factor for prop (lower case) and whether one applies.
func (r Resolver) Factor(prop string) (float64, bool) {
	if f, ok := r.PerFile[prop]; ok && f > 0 {
		return f, true
	}
	if f, ok := r.Global[prop]; ok && f > 0 {
		return f, true
	}
	return r.Default, r.Default > 0
}

// Apply scales every positional value in text using r and returns the new
// text with the number of values changed. Values containing %, @ or 10s and
// the sentinel -1 are kept. Inside `{ x = 5 y = 5 }` blocks each number is
// scaled with its own key's factor, falling back to the outer property's.
func Apply(text string, r Resolver) (string, int) {
	n := 0
	out := propPattern.ReplaceAllStringFunc(text, func(m string) string {
		sub := propPattern.FindStringSubmatch(m)
		prop, sep, value := sub[1], sub[2], sub[3]
		f, ok := r.Factor(strings.ToLower(prop))

		if strings.HasPrefix(value, "{") {
			scaled := innerPattern.ReplaceAllStringFunc(value, func(im string) string {
				isub := innerPattern.FindStringSubmatch(im)
				inner, innerOK := r.Factor(strings.ToLower(isub[1]))
				if !innerOK {
					inner, innerOK = f, ok
				}
				if !innerOK {
					return im
				}
				v, changed := scaleValue(isub[3], inner)
				if changed {
					n++
				}
				return isub[1] + isub[2] + v
			})
			return prop + sep + scaled
		}

		if !ok {
			return m
		}
		v, changed := scaleValue(value, f)
		if changed {
			n++
		}
		return prop + sep + v
	})
	return out, n
}

// scaleValue multiplies a numeric value by f, rounding half to even.
func scaleValue(value string, f float64) (string, bool) {
	if value == "-1" || strings.ContainsAny(value, "%@") || strings.Contains(value, "10s") {
		return value, false
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return value, false
	}
	r := math.RoundToEven(v * f)
	if r == 0 {
		r = 0 // drop the sign of -0
	}
	scaled := strconv.FormatFloat(r, 'f', -1, 64)
	return scaled, scaled != value
}
