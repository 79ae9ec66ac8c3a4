package pdx

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokWord
	tokString
	tokOpen
	tokClose
	tokOp
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of file"
	case tokWord:
		return "word"
	case tokString:
		return "string"
	case tokOpen:
		return "'{'"
	case tokClose:
		return "'}'"
	case tokOp:
		return "operator"
	}
	return "unknown"
}

type token struct {
	kind tokenKind
	text string
	line int
}

// lexer splits script text into tokens. Comments are not returned as tokens;
// the most recent whole-line comment is kept so the parser can attach it to
// the entry on the following line.
type lexer struct {
	src  string
	pos  int
	line int

	lineHasToken bool
	comment      string
	commentLine  int

	peeked *token
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1}
}

func (l *lexer) peek() (token, error) {
	if l.peeked == nil {
		t, err := l.scan()
		if err != nil {
			return token{}, err
		}
		l.peeked = &t
	}
	return *l.peeked, nil
}

func (l *lexer) next() (token, error) {
	if l.peeked != nil {
		t := *l.peeked
		l.peeked = nil
		return t, nil
	}
	return l.scan()
}

// commentFor returns the whole-line comment directly above line, if any.
func (l *lexer) commentFor(line int) string {
	if l.comment != "" && l.commentLine == line-1 {
		return l.comment
	}
	return ""
}

func (l *lexer) scan() (token, error) {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\n':
			l.line++
			l.pos++
			l.lineHasToken = false
		case c == ' ' || c == '\t' || c == '\r':
			l.pos++
		case c == '#':
			end := strings.IndexByte(l.src[l.pos:], '\n')
			if end < 0 {
				end = len(l.src) - l.pos
			}
			if !l.lineHasToken {
				l.comment = strings.TrimSpace(l.src[l.pos+1 : l.pos+end])
				l.commentLine = l.line
			}
			l.pos += end
		default:
			return l.scanToken()
		}
	}
	return token{kind: tokEOF, line: l.line}, nil
}

func (l *lexer) scanToken() (token, error) {
	l.lineHasToken = true
	start := l.pos
	c := l.src[l.pos]

	switch c {
	case '{':
		l.pos++
		return token{kind: tokOpen, text: "{", line: l.line}, nil
	case '}':
		l.pos++
		return token{kind: tokClose, text: "}", line: l.line}, nil
	case '=':
		l.pos++
		return token{kind: tokOp, text: "=", line: l.line}, nil
	case '<', '>', '!':
		l.pos++
		if l.pos < len(l.src) && l.src[l.pos] == '=' {
			l.pos++
		} else if c == '!' {
			break
		}
		return token{kind: tokOp, text: l.src[start:l.pos], line: l.line}, nil
	case '"':
		return l.scanString()
	}

	for l.pos < len(l.src) && !isDelimiter(l.src, l.pos) {
		l.pos++
	}
	return token{kind: tokWord, text: l.src[start:l.pos], line: l.line}, nil
}

func (l *lexer) scanString() (token, error) {
	line := l.line
	l.pos++ // opening quote
	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\\' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '"':
			sb.WriteByte('"')
			l.pos += 2
		case c == '"':
			l.pos++
			return token{kind: tokString, text: sb.String(), line: line}, nil
		default:
			if c == '\n' {
				l.line++
			}
			sb.WriteByte(c)
			l.pos++
		}
	}
	return token{}, fmt.Errorf("line %d: unterminated string", line)
}

func isDelimiter(src string, i int) bool {
	switch src[i] {
	case ' ', '\t', '\r', '\n', '{', '}', '=', '<', '>', '#', '"':
		return true
	case '!':
		return i+1 < len(src) && src[i+1] == '='
	}
	return false
}
