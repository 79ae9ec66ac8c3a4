package prompt

import (
	"strconv"
	"strings"

	"github.com/bjornbryggman/eu4-modding-tools/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var nameSuffixes = []string{"_superregion", "_region", "_area"}

// Humanize turns a script key such as `north_german_region` into `North German`.
func Humanize(key string) string {
	for _, suf := range nameSuffixes {
		if strings.HasSuffix(key, suf) {
			key = strings.TrimSuffix(key, suf)
			break
		}
	}
	return cases.Title(language.English).String(strings.ReplaceAll(key, "_", " "))
}

// Vars returns the placeholder values available to province templates.
func Vars(d model.ProvinceDetail) map[string]string {
	return map[string]string{
		"id":          strconv.Itoa(d.ID),
		"name":        d.Name,
		"area":        Humanize(d.Area),
		"region":      Humanize(d.Region),
		"superregion": Humanize(d.SuperRegion),
		"continent":   Humanize(d.Continent),
		"climate":     Humanize(d.Climate),
		"terrain":     Humanize(d.Terrain),
		"winter":      Humanize(d.Winter),
		"monsoon":     Humanize(d.Monsoon),
		"description": d.Description,
	}
}

// Builder renders the base prompt for a province and, optionally, the chat
// messages that ask a text model for a varied rewrite of it.
type Builder struct {
	Templates Set
	Base      string
	System    string
	User      string
}

// Build renders the base prompt for d.
func (b *Builder) Build(d model.ProvinceDetail) (string, error) {
	return b.Templates.Render(b.Base, Vars(d))
}

// Variation renders the system and user messages for a rewrite of base.
// The base prompt is available to both templates as {prompt}.
func (b *Builder) Variation(d model.ProvinceDetail, base string) (system, user string, err error) {
	vars := Vars(d)
	vars["prompt"] = base
	if system, err = b.Templates.Render(b.System, vars); err != nil {
		return "", "", err
	}
	if user, err = b.Templates.Render(b.User, vars); err != nil {
		return "", "", err
	}
	return system, user, nil
}

// Model returns the model named by the user template, if any.
func (b *Builder) Model() string {
	return b.Templates[b.User].Model
}
