package fieldpath

import (
	"fmt"
	"net/url"
	"sort"
)

// DecodeError ties a wire key that could not be placed into the nested
// value to the path it affects.
type DecodeError struct {
	Path Path
	Key  string
	Err  error
}

func (e DecodeError) Error() string {
	return fmt.Sprintf("decode %q at %q: %v", e.Key, e.Path.String(), e.Err)
}

func (e DecodeError) Unwrap() error {
	return e.Err
}

// Encode flattens a nested value built from map[string]any, []any and
// scalars into wire pairs. Nil values and empty containers produce no keys,
// scalars other than strings are formatted with fmt.
func Encode(v any) url.Values {
	out := url.Values{}
	encode(out, nil, v)
	return out
}

func encode(out url.Values, prefix Path, v any) {
	switch t := v.(type) {
	case nil:
	case map[string]any:
		for name, child := range t {
			encode(out, prefix.Child(name), child)
		}
	case []any:
		for i, child := range t {
			encode(out, prefix.At(i), child)
		}
	case string:
		if len(prefix) > 0 {
			out.Set(prefix.String(), t)
		}
	default:
		if len(prefix) > 0 {
			out.Set(prefix.String(), fmt.Sprint(t))
		}
	}
}

// Decode rebuilds the nested value from wire pairs. The root is always an
// object. Index segments become []any entries positioned by index, with nil
// in positions no key reached. When a key is repeated the last value wins.
//
// Keys that break the grammar, exceed MaxIndex or disagree with an earlier
// key about whether a path holds a scalar, an object or an array are not
// placed; they are reported as DecodeErrors at the longest affected path.
// Keys without any valid prefix are dropped.
func Decode(values url.Values) (map[string]any, []DecodeError) {
	root := &node{kind: objectNode, fields: make(map[string]*node)}
	var errs []DecodeError

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		vs := values[key]
		if len(vs) == 0 {
			continue
		}

		path, err := Parse(key)
		if err != nil {
			if len(path) > 0 {
				errs = append(errs, DecodeError{Path: path.clone(), Key: key, Err: err})
			}
			continue
		}

		if at, err := root.insert(path, vs[len(vs)-1]); err != nil {
			errs = append(errs, DecodeError{Path: at, Key: key, Err: err})
		}
	}

	return root.value().(map[string]any), errs
}

type nodeKind int

const (
	unsetNode nodeKind = iota
	leafNode
	objectNode
	arrayNode
)

type node struct {
	kind   nodeKind
	text   string
	fields map[string]*node
	items  map[int]*node
}

func (n *node) insert(path Path, value string) (Path, error) {
	cur := n
	for i, seg := range path {
		if err := cur.expect(seg); err != nil {
			return path[:i].clone(), err
		}

		next := cur.get(seg)
		if next == nil {
			next = &node{}
			cur.put(seg, next)
		}

		if i == len(path)-1 {
			if next.kind != unsetNode && next.kind != leafNode {
				return path.clone(), ErrConflict
			}
			next.kind = leafNode
			next.text = value
			return nil, nil
		}
		cur = next
	}
	return nil, nil
}

// expect makes n a container able to hold seg, or reports a conflict.
func (n *node) expect(seg Segment) error {
	switch n.kind {
	case unsetNode:
		if seg.IsIndex() {
			n.kind = arrayNode
			n.items = make(map[int]*node)
		} else {
			n.kind = objectNode
			n.fields = make(map[string]*node)
		}
		return nil
	case objectNode:
		if seg.IsIndex() {
			return ErrConflict
		}
		return nil
	case arrayNode:
		if !seg.IsIndex() {
			return ErrConflict
		}
		return nil
	default:
		return ErrConflict
	}
}

func (n *node) get(seg Segment) *node {
	if seg.IsIndex() {
		return n.items[seg.Index]
	}
	return n.fields[seg.Name]
}

func (n *node) put(seg Segment, child *node) {
	if seg.IsIndex() {
		n.items[seg.Index] = child
		return
	}
	n.fields[seg.Name] = child
}

func (n *node) value() any {
	switch n.kind {
	case leafNode:
		return n.text
	case objectNode:
		out := make(map[string]any, len(n.fields))
		for name, child := range n.fields {
			out[name] = child.value()
		}
		return out
	case arrayNode:
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
		return nil
	}
}
