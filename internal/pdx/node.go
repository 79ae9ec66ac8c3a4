// Package pdx reads the block-structured script format used by the game's
// map and common files (key = value, key = { ... }, # comments).
package pdx

import (
	"fmt"
	"strconv"
)

// Node is one entry in a script file. Keyed entries have Key and Op set;
// bare values inside a list (`{ 1 2 3 }`) have only Value. Block entries
// have IsBlock set and their contents in Block.
type Node struct {
	Key     string
	Op      string
	Value   string
	Block   []*Node
	IsBlock bool
	Comment string
	Line    int
}

// Child returns the first keyed entry named key, or nil.
func (n *Node) Child(key string) *Node {
	for _, c := range n.Block {
		if c.Key == key {
			return c
		}
	}
	return nil
}

// Children returns all keyed entries named key.
func (n *Node) Children(key string) []*Node {
	var out []*Node
	for _, c := range n.Block {
		if c.Key == key {
			out = append(out, c)
		}
	}
	return out
}

// Entries returns the keyed entries of a block.
func (n *Node) Entries() []*Node {
	var out []*Node
	for _, c := range n.Block {
		if c.Key != "" {
			out = append(out, c)
		}
	}
	return out
}

// Values returns the bare values of a block, e.g. the ids in `{ 1 2 3 }`.
func (n *Node) Values() []string {
	var out []string
	for _, c := range n.Block {
		if c.Key == "" && !c.IsBlock {
			out = append(out, c.Value)
		}
	}
	return out
}

// Ints parses the bare values of a block as integers.
func (n *Node) Ints() ([]int, error) {
	vals := n.Values()
	out := make([]int, 0, len(vals))
	for _, v := range vals {
		i, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("line %d: %q is not an integer", n.Line, v)
		}
		out = append(out, i)
	}
	return out, nil
}

// Bool reports whether a scalar entry is `yes`.
func (n *Node) Bool() bool {
	return n != nil && n.Value == "yes"
}

// ChildValue returns the scalar value of the first entry named key, or "".
func (n *Node) ChildValue(key string) string {
	if c := n.Child(key); c != nil && !c.IsBlock {
		return c.Value
	}
	return ""
}
