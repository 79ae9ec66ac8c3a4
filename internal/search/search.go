// Package search finds case-insensitive occurrences of a term in game script
// files.
package search

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bjornbryggman/eu4-modding-tools/internal/apperr"
	"github.com/bjornbryggman/eu4-modding-tools/internal/guiscale"
	"github.com/bjornbryggman/eu4-modding-tools/internal/pdx"
)

// DefaultOutput is the file name used when the output path is a directory.
const DefaultOutput = "search_results.txt"

// Match is one line containing the term.
type Match struct {
	Line int
	Text string
}

// FileMatches holds the matches of one file, by path relative to the root.
type FileMatches struct {
	Path    string
	Matches []Match
}

// Dir searches every file under root with extension ext (with or without the
// dot, any case) for term. Files are decoded with their own encoding.
func Dir(ctx context.Context, root, term, ext string) ([]FileMatches, error) {
	if strings.TrimSpace(term) == "" {
		return nil, apperr.Validationf("search term is empty")
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, apperr.NotFoundf("input directory %q not found", root)
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	files, err := guiscale.ListFiles(root, []string{ext})
	if err != nil {
		return nil, err
	}

	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(term))
	var out []FileMatches
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, _, err := pdx.ReadText(filepath.Join(root, rel))
		if err != nil {
			return nil, apperr.WrapIO("reading "+rel, err)
		}
		if fm := searchText(rel, text, re); len(fm.Matches) > 0 {
			out = append(out, fm)
		}
	}
	return out, nil
}

func searchText(rel, text string, re *regexp.Regexp) FileMatches {
	fm := FileMatches{Path: rel}
	for i, line := range strings.Split(text, "\n") {
		if re.MatchString(line) {
			fm.Matches = append(fm.Matches, Match{Line: i + 1, Text: strings.TrimSpace(line)})
		}
	}
	return fm
}

// Write formats results as `File:` blocks with one `Line N:` row per match.
func Write(w io.Writer, results []FileMatches) error {
	bw := bufio.NewWriter(w)
	for _, fm := range results {
		fmt.Fprintf(bw, "File: %s\n", filepath.ToSlash(fm.Path))
		for _, m := range fm.Matches {
			fmt.Fprintf(bw, "Line %d: %s\n", m.Line, m.Text)
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

// WriteFile writes results to path, or to DefaultOutput inside path when it
// is a directory. It returns the file written.
func WriteFile(path string, results []FileMatches) (string, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, DefaultOutput)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", apperr.WrapIO("creating "+filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return "", apperr.WrapIO("creating "+path, err)
	}
	if err := Write(f, results); err != nil {
		f.Close()
		return "", apperr.WrapIO("writing "+path, err)
	}
	return path, apperr.WrapIO("closing "+path, f.Close())
}
