// Package tree assembles analyzer results into a directory tree with
// aggregated sizes, for hierarchical views of where disk space goes.
package tree

import "time"

// Node is one file or directory in the tree.
type Node struct {
	// Path is the absolute path of the entry.
	Path string `json:"path"`

	// Name is the base name of the entry.
	Name string `json:"name"`

	// IsDir reports whether the entry is a directory.
	IsDir bool `json:"is_dir"`

	// Size is the file's own size in bytes. Zero for directories.
	Size int64 `json:"size"`

	// ModTime is the last modification time. Zero for directories
	// synthesized from file paths.
	ModTime time.Time `json:"mod_time,omitzero"`

	// TotalSize is the aggregate size of the subtree in bytes.
	TotalSize int64 `json:"total_size"`

	// FileCount is the number of files in the subtree.
	FileCount int `json:"file_count"`

	// Children holds the entries directly below a directory.
	Children []*Node `json:"children,omitempty"`

	// Parent points at the containing directory, nil at the root.
	Parent *Node `json:"-"`
}

// AddChild appends child to the node and sets its parent pointer.
func (n *Node) AddChild(child *Node) {
	child.Parent = n
	n.Children = append(n.Children, child)
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Depth returns the number of ancestors above the node. The root has
// depth zero.
func (n *Node) Depth() int {
	depth := 0
	for p := n.Parent; p != nil; p = p.Parent {
		depth++
	}
	return depth
}

// Walk visits the node and every descendant in depth-first order. The
// visit function returns false to skip a directory's children.
func (n *Node) Walk(visit func(*Node) bool) {
	if !visit(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(visit)
	}
}
