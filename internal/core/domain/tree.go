package domain

import (
	"encoding/json"
	"sort"
	"sync"
)

// NodeID addresses a node inside a Tree.
type NodeID int

// NoParent is the parent of the root node.
const NoParent NodeID = -1

// TreeNode is a single resolved package in a dependency tree.
type TreeNode struct {
	Name    string
	Version string
	Range   string
	Parent  NodeID
	Deps    map[string]NodeID
}

// Tree is the result of a resolution. Nodes live in an arena and refer to
// their parent by id; the tree is safe for concurrent use while it is built.
type Tree struct {
	mu    sync.RWMutex
	nodes []TreeNode
}

// NewTree creates a tree holding only a root node.
func NewTree(name, version, rng string) *Tree {
	return &Tree{
		nodes: []TreeNode{{
			Name:    name,
			Version: version,
			Range:   rng,
			Parent:  NoParent,
			Deps:    make(map[string]NodeID),
		}},
	}
}

// Root returns the id of the root node.
func (t *Tree) Root() NodeID {
	return 0
}

// Node returns a copy of the node with the given id.
func (t *Tree) Node(id NodeID) TreeNode {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := t.nodes[id]
	deps := make(map[string]NodeID, len(n.Deps))
	for name, child := range n.Deps {
		deps[name] = child
	}
	n.Deps = deps
	return n
}

// AddChild attaches a pending node named name under parent and returns its id.
func (t *Tree) AddChild(parent NodeID, name, rng string) NodeID {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, TreeNode{
		Name:   name,
		Range:  rng,
		Parent: parent,
		Deps:   make(map[string]NodeID),
	})
	t.nodes[parent].Deps[name] = id
	return id
}

// Settle records the version chosen for id.
//
// If an ancestor, or a child of an ancestor, already holds the same name and
// version, the node is detached from its parent and Settle returns false.
// The check and the update happen atomically.
func (t *Tree) Settle(id NodeID, version string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := &t.nodes[id]
	if t.providedLocked(id, n.Name, version) {
		n.Version = version
		if n.Parent != NoParent {
			parent := t.nodes[n.Parent]
			if parent.Deps[n.Name] == id {
				delete(parent.Deps, n.Name)
			}
		}
		return false
	}
	n.Version = version
	return true
}

func (t *Tree) providedLocked(id NodeID, name, version string) bool {
	for cur := id; cur != NoParent; cur = t.nodes[cur].Parent {
		n := t.nodes[cur]
		if cur != id && n.Name == name && n.Version == version {
			return true
		}
		if child, ok := n.Deps[name]; ok && child != id && t.nodes[child].Version == version {
			return true
		}
	}
	return false
}

// Path returns the names from the root down to id, excluding the root.
func (t *Tree) Path(id NodeID) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var names []string
	for cur := id; cur != NoParent && cur != t.Root(); cur = t.nodes[cur].Parent {
		names = append(names, t.nodes[cur].Name)
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return names
}

// Walk visits every attached node depth-first, children in name order.
// fn must not call back into the tree.
func (t *Tree) Walk(fn func(id NodeID, n TreeNode, depth int)) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var visit func(id NodeID, depth int)
	visit = func(id NodeID, depth int) {
		n := t.nodes[id]
		fn(id, n, depth)
		for _, name := range sortedNames(n.Deps) {
			visit(n.Deps[name], depth+1)
		}
	}
	visit(t.Root(), 0)
}

// Len returns the number of attached nodes, the root included.
func (t *Tree) Len() int {
	count := 0
	t.Walk(func(NodeID, TreeNode, int) { count++ })
	return count
}

type treeJSON struct {
	Name    string               `json:"name"`
	Version string               `json:"version,omitempty"`
	Range   string               `json:"range,omitempty"`
	Deps    map[string]*treeJSON `json:"deps,omitempty"`
}

// MarshalJSON renders the attached nodes as nested objects.
func (t *Tree) MarshalJSON() ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var build func(id NodeID) *treeJSON
	build = func(id NodeID) *treeJSON {
		n := t.nodes[id]
		out := &treeJSON{Name: n.Name, Version: n.Version, Range: n.Range}
		if len(n.Deps) > 0 {
			out.Deps = make(map[string]*treeJSON, len(n.Deps))
			for name, child := range n.Deps {
				out.Deps[name] = build(child)
			}
		}
		return out
	}
	return json.Marshal(build(t.Root()))
}

func sortedNames(deps map[string]NodeID) []string {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
