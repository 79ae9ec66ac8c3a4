package pdx

import (
	"fmt"
	"os"
)

// Parse reads script text into a root node whose Block holds the top-level entries.
func Parse(src string) (*Node, error) {
	l := newLexer(src)
	root := &Node{IsBlock: true, Line: 1}
	block, err := parseBlock(l, false, 0)
	if err != nil {
		return nil, err
	}
	root.Block = block
	return root, nil
}

// Load reads and parses a script file, decoding Windows-1252 when needed.
func Load(path string) (*Node, error) {
	text, _, err := ReadText(path)
	if err != nil {
		return nil, err
	}
	root, err := Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return root, nil
}

// LoadOptional is Load, but a missing file returns (nil, nil).
func LoadOptional(path string) (*Node, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	return Load(path)
}

func parseBlock(l *lexer, nested bool, openLine int) ([]*Node, error) {
	var nodes []*Node
	for {
		t, err := l.next()
		if err != nil {
			return nil, err
		}

		switch t.kind {
		case tokEOF:
			if nested {
				return nil, fmt.Errorf("line %d: block is never closed", openLine)
			}
			return nodes, nil

		case tokClose:
			if !nested {
				return nil, fmt.Errorf("line %d: unexpected '}'", t.line)
			}
			return nodes, nil

		case tokOpen:
			inner, err := parseBlock(l, true, t.line)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, &Node{IsBlock: true, Block: inner, Line: t.line})

		case tokOp:
			return nil, fmt.Errorf("line %d: operator %q without a key", t.line, t.text)

		case tokWord, tokString:
			next, err := l.peek()
			if err != nil {
				return nil, err
			}
			if next.kind != tokOp {
				nodes = append(nodes, &Node{Value: t.text, Line: t.line})
				continue
			}
			l.next()

			n := &Node{Key: t.text, Op: next.text, Line: t.line, Comment: l.commentFor(t.line)}
			val, err := l.next()
			if err != nil {
				return nil, err
			}
			switch val.kind {
			case tokOpen:
				inner, err := parseBlock(l, true, val.line)
				if err != nil {
					return nil, err
				}
				n.IsBlock = true
				n.Block = inner
			case tokWord, tokString:
				n.Value = val.text
			default:
				return nil, fmt.Errorf("line %d: expected a value after %s %s, got %s", t.line, t.text, next.text, val.kind)
			}
			nodes = append(nodes, n)
		}
	}
}
