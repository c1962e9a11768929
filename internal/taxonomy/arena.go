// Package taxonomy models the scoring framework tree (pillars, themes,
// subthemes, dataset references) as a flat arena of nodes keyed by id with
// explicit parent pointers, so parent and child lookups are O(1) instead of
// a tree walk per edit.
package taxonomy

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// NodeKind is the taxonomy tier of a node.
type NodeKind string

const (
	KindPillar   NodeKind = "pillar"
	KindTheme    NodeKind = "theme"
	KindSubtheme NodeKind = "subtheme"
	KindDataset  NodeKind = "dataset"
)

// Node is one taxonomy entry. ParentID is empty for pillars.
type Node struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Kind     NodeKind `json:"kind"`
	ParentID string   `json:"parent_id,omitempty"`
}

// Arena holds the framework nodes with O(1) parent/child lookup. Build it
// once per framework; reads are safe for concurrent use.
type Arena struct {
	nodes    map[string]*Node
	children map[string][]string
	order    []string // insertion order, for stable iteration
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{
		nodes:    make(map[string]*Node),
		children: make(map[string][]string),
	}
}

// Add inserts a node. Duplicate ids and dangling parents are rejected;
// pillars must have no parent, every other kind must have one.
func (a *Arena) Add(n Node) error {
	if n.ID == "" {
		return eris.New("taxonomy: node id must not be empty")
	}
	if _, dup := a.nodes[n.ID]; dup {
		return eris.Errorf("taxonomy: duplicate node id %q", n.ID)
	}
	if n.Kind == KindPillar {
		if n.ParentID != "" {
			return eris.Errorf("taxonomy: pillar %q must not have a parent", n.ID)
		}
	} else {
		if n.ParentID == "" {
			return eris.Errorf("taxonomy: %s %q must have a parent", n.Kind, n.ID)
		}
		if _, ok := a.nodes[n.ParentID]; !ok {
			return eris.Errorf("taxonomy: %s %q references unknown parent %q", n.Kind, n.ID, n.ParentID)
		}
	}

	node := n
	a.nodes[n.ID] = &node
	a.order = append(a.order, n.ID)
	if n.ParentID != "" {
		a.children[n.ParentID] = append(a.children[n.ParentID], n.ID)
	}
	return nil
}

// Node returns the node with the given id, or nil.
func (a *Arena) Node(id string) *Node {
	return a.nodes[id]
}

// Parent returns a node's parent, or nil for pillars and unknown ids.
func (a *Arena) Parent(id string) *Node {
	n := a.nodes[id]
	if n == nil || n.ParentID == "" {
		return nil
	}
	return a.nodes[n.ParentID]
}

// Children returns a node's direct children in insertion order.
func (a *Arena) Children(id string) []*Node {
	ids := a.children[id]
	out := make([]*Node, 0, len(ids))
	for _, cid := range ids {
		out = append(out, a.nodes[cid])
	}
	return out
}

// Pillars returns the root nodes in insertion order.
func (a *Arena) Pillars() []*Node {
	var out []*Node
	for _, id := range a.order {
		if n := a.nodes[id]; n.Kind == KindPillar {
			out = append(out, n)
		}
	}
	return out
}

// Len returns the number of nodes.
func (a *Arena) Len() int {
	return len(a.nodes)
}

// Path returns the ids from the pillar down to the given node, for
// diagnostics.
func (a *Arena) Path(id string) string {
	var parts []string
	for n := a.nodes[id]; n != nil; n = a.Parent(n.ID) {
		parts = append([]string{n.ID}, parts...)
	}
	return strings.Join(parts, "/")
}

// DatasetIDsUnder collects the dataset-reference ids in the subtree rooted
// at the given node, depth first.
func (a *Arena) DatasetIDsUnder(id string) []string {
	var out []string
	var walk func(string)
	walk = func(cur string) {
		n := a.nodes[cur]
		if n == nil {
			return
		}
		if n.Kind == KindDataset {
			out = append(out, n.ID)
			return
		}
		for _, cid := range a.children[cur] {
			walk(cid)
		}
	}
	walk(id)
	return out
}

// Validate checks structural integrity: parents resolve and no node is its
// own ancestor. Add already rejects forward references, so cycles can only
// appear if the arena was populated through deserialization.
func (a *Arena) Validate() error {
	for _, id := range a.order {
		seen := map[string]bool{}
		for n := a.nodes[id]; n != nil && n.ParentID != ""; n = a.nodes[n.ParentID] {
			if seen[n.ID] {
				return eris.Errorf("taxonomy: cycle detected at %q", fmt.Sprint(n.ID))
			}
			seen[n.ID] = true
			if _, ok := a.nodes[n.ParentID]; !ok {
				return eris.Errorf("taxonomy: node %q references unknown parent %q", n.ID, n.ParentID)
			}
		}
	}
	return nil
}
