package imagegen

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/bjornbryggman/eu4-modding-tools/internal/apperr"
)

// Download fetches rawURL into dir/base, keeping the URL's file extension
// (".png" when it has none). It returns the written path.
func (c *Client) Download(ctx context.Context, rawURL, dir, base string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", apperr.Validationf("bad output URL %q", rawURL)
	}
	ext := path.Ext(u.Path)
	if ext == "" {
		ext = ".png"
	}
	dest := filepath.Join(dir, base+ext)
	return dest, c.DownloadTo(ctx, rawURL, dest)
}

// DownloadTo fetches rawURL into dest, creating parent directories.
func (c *Client) DownloadTo(ctx context.Context, rawURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return apperr.WrapExternal("downloading "+rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apperr.Externalf("downloading %s: status %d", rawURL, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return apperr.WrapIO("creating output dir", err)
	}
	tmp := dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return apperr.WrapIO("creating "+tmp, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return apperr.WrapIO("writing "+dest, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return apperr.WrapIO("writing "+dest, err)
	}
	return apperr.WrapIO("renaming "+tmp, os.Rename(tmp, dest))
}

// DataURI encodes a local image as a data: URI suitable as prediction input.
func DataURI(file string) (string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return "", apperr.WrapIO("reading "+file, err)
	}
	typ := mime.TypeByExtension(filepath.Ext(file))
	if typ == "" {
		typ = "application/octet-stream"
	}
	return "data:" + typ + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
