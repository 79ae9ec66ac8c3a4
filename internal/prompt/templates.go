package prompt

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bjornbryggman/eu4-modding-tools/internal/apperr"
	"gopkg.in/yaml.v3"
)

// Template is one named entry of a prompt file.
type Template struct {
	Role    string `toml:"role" yaml:"role"`
	Content string `toml:"content" yaml:"content"`
	Model   string `toml:"model" yaml:"model"`
}

// Set holds the templates of one prompt file keyed by table name.
type Set map[string]Template

// LoadTemplates reads a prompt file. Files ending in .yaml or .yml are read
// as YAML, everything else as TOML.
func LoadTemplates(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, apperr.NotFoundf("prompt file %q not found", path)
	}
	if err != nil {
		return nil, apperr.WrapIO("reading prompt file", err)
	}

	set := make(Set)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &set)
	default:
		_, err = toml.Decode(string(data), &set)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.TypeValidation, "parsing prompt file "+path, err)
	}
	return set, nil
}

// Get returns the named template.
func (s Set) Get(name string) (Template, error) {
	t, ok := s[name]
	if !ok {
		return Template{}, apperr.NotFoundf("prompt template %q not found (have %s)", name, strings.Join(s.Names(), ", "))
	}
	return t, nil
}

// Render formats the named template's content with vars.
func (s Set) Render(name string, vars map[string]string) (string, error) {
	t, err := s.Get(name)
	if err != nil {
		return "", err
	}
	out, err := Format(t.Content, vars)
	if err != nil {
		return "", apperr.Wrap(apperr.TypeValidation, "rendering template "+name, err)
	}
	return strings.TrimSpace(out), nil
}

// Names returns the template names in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
