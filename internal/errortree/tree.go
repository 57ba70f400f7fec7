// Package errortree projects flat (path, message) validation failures into a
// nested tree that mirrors the questionnaire shape, so every rendered field
// can find its own message by walking the path it was rendered with.
package errortree

import (
	"fmt"
	"sort"

	"github.com/Koyo-os/questionnaire-service/internal/fieldpath"
	gojson "github.com/goccy/go-json"
)

// Entry is a single validation message at a path.
type Entry struct {
	Path    fieldpath.Path
	Message string
}

// Tree is a nested mapping from path segments to messages. The zero value is
// an empty tree. Trees are not modified after Build.
type Tree struct {
	root *node
}

type node struct {
	leaf    bool
	message string
	fields  map[string]*node
	items   map[int]*node
}

// Build groups entries by nesting. Input order only matters on collisions:
// a later entry replaces whatever an earlier one left at its path, including
// a whole subtree or a leaf standing where a container is needed.
func Build(entries []Entry) Tree {
	if len(entries) == 0 {
		return Tree{}
	}
	root := &node{}
	for _, e := range entries {
		root.set(e.Path, e.Message)
	}
	return Tree{root: root}
}

func (n *node) set(path fieldpath.Path, message string) {
	cur := n
	for _, seg := range path {
		cur.holdFor(seg)
		next := cur.child(seg)
		if next == nil {
			next = &node{}
			if seg.IsIndex() {
				cur.items[seg.Index] = next
			} else {
				cur.fields[seg.Name] = next
			}
		}
		cur = next
	}
	*cur = node{leaf: true, message: message}
}

// holdFor turns n into the container kind seg needs, dropping what it held.
func (n *node) holdFor(seg fieldpath.Segment) {
	if seg.IsIndex() {
		if n.items == nil {
			*n = node{items: make(map[int]*node)}
		}
		return
	}
	if n.fields == nil {
		*n = node{fields: make(map[string]*node)}
	}
}

func (n *node) child(seg fieldpath.Segment) *node {
	if seg.IsIndex() {
		return n.items[seg.Index]
	}
	return n.fields[seg.Name]
}

// Lookup returns the message stored at exactly path.
func (t Tree) Lookup(path fieldpath.Path) (string, bool) {
	cur := t.root
	for _, seg := range path {
		if cur == nil {
			return "", false
		}
		cur = cur.child(seg)
	}
	if cur == nil || !cur.leaf {
		return "", false
	}
	return cur.message, true
}

// Message is Lookup without the presence flag; absence is "".
func (t Tree) Message(path fieldpath.Path) string {
	msg, _ := t.Lookup(path)
	return msg
}

// Empty reports whether the tree holds no message at all.
func (t Tree) Empty() bool {
	return t.Len() == 0
}

// Len counts messages in the tree.
func (t Tree) Len() int {
	return len(t.Entries())
}

// Entries flattens the tree back into entries ordered depth first, fields by
// name and items by index.
func (t Tree) Entries() []Entry {
	if t.root == nil {
		return nil
	}
	var out []Entry
	t.root.walk(nil, &out)
	return out
}

func (n *node) walk(at fieldpath.Path, out *[]Entry) {
	if n.leaf {
		*out = append(*out, Entry{Path: at, Message: n.message})
		return
	}

	names := make([]string, 0, len(n.fields))
	for name := range n.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		n.fields[name].walk(at.Child(name), out)
	}

	indexes := make([]int, 0, len(n.items))
	for i := range n.items {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	for _, i := range indexes {
		n.items[i].walk(at.At(i), out)
	}
}

// Prefer picks the tree to display: live client-side errors reflect edits
// not yet submitted, so they win whenever there are any.
func Prefer(live, server Tree) Tree {
	if !live.Empty() {
		return live
	}
	return server
}

// MarshalJSON renders leaves as strings, name levels as objects and index
// levels as arrays with null in positions that hold no message.
func (t Tree) MarshalJSON() ([]byte, error) {
	if t.root == nil {
		return []byte("{}"), nil
	}
	return gojson.Marshal(t.root.value())
}

func (n *node) value() any {
	switch {
	case n.leaf:
		return n.message
	case n.items != nil:
		size := 0
		for i := range n.items {
			if i+1 > size {
				size = i + 1
			}
		}
		out := make([]any, size)
		for i, child := range n.items {
			out[i] = child.value()
		}
		return out
	default:
		out := make(map[string]any, len(n.fields))
		for name, child := range n.fields {
			out[name] = child.value()
		}
		return out
	}
}

// UnmarshalJSON reads the shape produced by MarshalJSON.
func (t *Tree) UnmarshalJSON(data []byte) error {
	var raw any
	if err := gojson.Unmarshal(data, &raw); err != nil {
		return err
	}

	var entries []Entry
	if err := collect(nil, raw, &entries); err != nil {
		return err
	}
	*t = Build(entries)
	return nil
}

func collect(at fieldpath.Path, raw any, out *[]Entry) error {
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		*out = append(*out, Entry{Path: at, Message: v})
		return nil
	case map[string]any:
		for name, child := range v {
			if err := collect(at.Child(name), child, out); err != nil {
				return err
			}
		}
		return nil
	case []any:
		for i, child := range v {
			if err := collect(at.At(i), child, out); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("errortree: unexpected %T at %q", raw, at.String())
	}
}
