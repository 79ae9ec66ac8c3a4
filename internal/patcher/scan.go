package patcher

import "strings"

// span locates a keyed block `key = { ... }` inside a text.
type span struct {
	Key   string
	Start int // offset of the key
	Open  int // offset of '{'
	Close int // offset of the matching '}'
}

// blocks returns the keyed blocks directly inside text[from:to], in order.
// Comments and quoted strings are skipped so braces inside them do not count.
func blocks(text string, from, to int) []span {
	var out []span
	var cur span
	key, keyStart, sawEq := "", -1, false
	depth := 0

	for i := from; i < to; {
		c := text[i]
		switch {
		case c == '#':
			for i < to && text[i] != '\n' {
				i++
			}
			continue
		case c == '"':
			i++
			for i < to && text[i] != '"' {
				if text[i] == '\\' {
					i++
				}
				i++
			}
			i++
			if depth == 0 {
				key, sawEq = "", false
			}
			continue
		case c == '{':
			if depth == 0 {
				cur = span{Open: i, Close: -1}
				if key != "" && sawEq {
					cur.Key, cur.Start = key, keyStart
				}
			}
			depth++
			key, sawEq = "", false
		case c == '}':
			depth--
			if depth == 0 && cur.Key != "" {
				cur.Close = i
				out = append(out, cur)
			}
			if depth < 0 {
				depth = 0
			}
			key, sawEq = "", false
		case c == '=':
			if depth == 0 {
				sawEq = key != ""
			}
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
		case c == '<' || c == '>' || c == '!':
			if depth == 0 {
				key, sawEq = "", false
			}
		default:
			j := i
			for j < to && !isBoundary(text[j]) {
				j++
			}
			if depth == 0 {
				key, keyStart, sawEq = text[i:j], i, false
			}
			i = j
			continue
		}
		i++
	}
	return out
}

func isBoundary(c byte) bool {
	return strings.IndexByte(" \t\r\n{}=<>!\"#", c) >= 0
}

// find returns the first block named key among spans.
func find(spans []span, key string) (span, bool) {
	for _, s := range spans {
		if s.Key == key {
			return s, true
		}
	}
	return span{}, false
}

// lineIndent returns the whitespace that starts the line containing offset.
func lineIndent(text string, offset int) string {
	start := strings.LastIndexByte(text[:offset], '\n') + 1
	end := start
	for end < len(text) && (text[end] == ' ' || text[end] == '\t') {
		end++
	}
	return text[start:end]
}
