// Package patcher rewrites game files so that selected provinces each own a
// bespoke terrain category.
//
// The terrain file gets one cloned category per province, and every script
// trigger and localisation key that names an original category is extended
// to cover its clones. Edits are plain text surgery: everything outside the
// touched blocks and lines is written back byte for byte, in the file's
// original encoding.
package patcher

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bjornbryggman/eu4-modding-tools/internal/apperr"
	"github.com/bjornbryggman/eu4-modding-tools/internal/pdx"
)

// Options configures a patch run. Paths in TerrainFile, ScriptDirs and
// LocalisationDir are relative to GameDir.
type Options struct {
	GameDir         string
	TerrainFile     string
	ScriptDirs      []string
	LocalisationDir string
	OutputDir       string
	Prefix          string
	InPlace         bool
	DryRun          bool
}

// FileChange records an edited (or, for dry runs, editable) file.
type FileChange struct {
	Path    string
	Changes int
}

// Report summarises a patch run.
type Report struct {
	Created  []Clone
	Existing []Clone
	Warnings []string
	Files    []FileChange
}

// Patcher applies Options to a game directory.
type Patcher struct {
	opts Options
}

// New validates opts and returns a Patcher.
func New(opts Options) (*Patcher, error) {
	if opts.GameDir == "" {
		return nil, apperr.Configf("game directory not set")
	}
	if opts.Prefix == "" {
		return nil, apperr.Configf("clone prefix not set")
	}
	if !opts.InPlace && opts.OutputDir == "" {
		return nil, apperr.Configf("output directory not set (or use in-place)")
	}
	return &Patcher{opts: opts}, nil
}

// source returns the file to read for rel: a previous run's output when one
// exists, otherwise the game's own copy.
func (p *Patcher) source(rel string) string {
	if !p.opts.InPlace {
		out := filepath.Join(p.opts.OutputDir, rel)
		if _, err := os.Stat(out); err == nil {
			return out
		}
	}
	return filepath.Join(p.opts.GameDir, rel)
}

func (p *Patcher) dest(rel string) string {
	if p.opts.InPlace {
		return filepath.Join(p.opts.GameDir, rel)
	}
	return filepath.Join(p.opts.OutputDir, rel)
}

// Run clones a terrain category for every target and updates references.
func (p *Patcher) Run(targets []Target) (*Report, error) {
	rel := p.opts.TerrainFile
	text, enc, err := pdx.ReadText(p.source(rel))
	if err != nil {
		return nil, apperr.WrapIO("reading terrain file", err)
	}
	if _, err := pdx.Parse(text); err != nil {
		return nil, apperr.Wrap(apperr.TypeValidation, "parsing "+rel, err)
	}

	patched, tr, err := PatchTerrain(text, p.opts.Prefix, targets)
	if err != nil {
		return nil, err
	}
	if _, err := pdx.Parse(patched); err != nil {
		return nil, apperr.Wrap(apperr.TypeInternal, "patched terrain file no longer parses", err)
	}

	rep := &Report{Created: tr.Created, Existing: tr.Existing, Warnings: tr.Warnings}
	if len(tr.Created) > 0 {
		if err := p.write(rel, patched, enc); err != nil {
			return nil, err
		}
		rep.Files = append(rep.Files, FileChange{Path: rel, Changes: len(tr.Created)})
	}

	byTerrain, err := ExistingClones(patched, p.opts.Prefix)
	if err != nil {
		return nil, err
	}
	if len(byTerrain) == 0 {
		return rep, nil
	}
	cs := CloneSet{Prefix: p.opts.Prefix, ByTerrain: byTerrain}

	for _, dir := range p.opts.ScriptDirs {
		if err := p.eachFile(dir, ".txt", rep, cs.RewriteReferences); err != nil {
			return nil, err
		}
	}
	if p.opts.LocalisationDir != "" {
		if err := p.eachFile(p.opts.LocalisationDir, ".yml", rep, cs.DuplicateLocalisation); err != nil {
			return nil, err
		}
	}
	return rep, nil
}

// eachFile applies edit to every file with ext below dir in the game
// directory. A missing dir is skipped.
func (p *Patcher) eachFile(dir, ext string, rep *Report, edit func(string) (string, int)) error {
	root := filepath.Join(p.opts.GameDir, dir)
	if _, err := os.Stat(root); os.IsNotExist(err) {
		rep.Warnings = append(rep.Warnings, "skipping missing directory "+dir)
		return nil
	}

	var rels []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ext) {
			rel, err := filepath.Rel(p.opts.GameDir, path)
			if err != nil {
				return err
			}
			rels = append(rels, rel)
		}
		return nil
	})
	if err != nil {
		return apperr.WrapIO("walking "+root, err)
	}
	sort.Strings(rels)

	for _, rel := range rels {
		text, enc, err := pdx.ReadText(p.source(rel))
		if err != nil {
			rep.Warnings = append(rep.Warnings, err.Error())
			continue
		}
		out, n := edit(text)
		if n == 0 {
			continue
		}
		if err := p.write(rel, out, enc); err != nil {
			return err
		}
		rep.Files = append(rep.Files, FileChange{Path: rel, Changes: n})
	}
	return nil
}

func (p *Patcher) write(rel, text string, enc pdx.Encoding) error {
	if p.opts.DryRun {
		return nil
	}
	dest := p.dest(rel)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return apperr.WrapIO("creating "+filepath.Dir(dest), err)
	}
	return pdx.WriteText(dest, text, enc)
}
