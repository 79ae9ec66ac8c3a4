package pdx

import (
	"bytes"
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Encoding is the byte encoding a game file was read with. Map and script
// files are Windows-1252; localisation files are UTF-8 with a BOM.
type Encoding int

const (
	UTF8 Encoding = iota
	UTF8BOM
	Windows1252
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// Decode converts raw file bytes to a string and reports the encoding found.
func Decode(data []byte) (string, Encoding, error) {
	if bytes.HasPrefix(data, bom) {
		return string(data[len(bom):]), UTF8BOM, nil
	}
	if utf8.Valid(data) {
		return string(data), UTF8, nil
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", Windows1252, fmt.Errorf("decoding windows-1252: %w", err)
	}
	return string(out), Windows1252, nil
}

// Encode converts text back to the bytes of the given encoding.
func Encode(text string, enc Encoding) ([]byte, error) {
	switch enc {
	case UTF8BOM:
		return append(append([]byte{}, bom...), text...), nil
	case Windows1252:
		out, err := charmap.Windows1252.NewEncoder().Bytes([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("encoding windows-1252: %w", err)
		}
		return out, nil
	default:
		return []byte(text), nil
	}
}

// ReadText reads and decodes a game file.
func ReadText(path string) (string, Encoding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", UTF8, err
	}
	return Decode(data)
}

// WriteText encodes and writes a game file.
func WriteText(path, text string, enc Encoding) error {
	data, err := Encode(text, enc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
