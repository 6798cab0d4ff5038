package tree

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

// Build assembles the files found under root into a tree rooted at
// root. Directories missing from the input are created on the way up,
// so a flat file list produces the full hierarchy. After assembly every
// directory carries the aggregate size and file count of its subtree,
// and children are sorted largest first.
func Build(root string, files []types.FileInfo) *Node {
	root = filepath.Clean(root)
	rootNode := &Node{Path: root, Name: filepath.Base(root), IsDir: true}
	nodes := map[string]*Node{root: rootNode}

	for _, f := range files {
		parent := ensureDir(nodes, root, filepath.Dir(f.Path))
		if parent == nil {
			continue
		}
		parent.AddChild(&Node{
			Path:    f.Path,
			Name:    filepath.Base(f.Path),
			Size:    f.Size,
			ModTime: f.ModTime,
		})
	}

	aggregate(rootNode)
	sortChildren(rootNode)
	return rootNode
}

// ensureDir returns the node for dir, creating it and any missing
// ancestors below root. Paths outside root return nil.
func ensureDir(nodes map[string]*Node, root, dir string) *Node {
	dir = filepath.Clean(dir)
	if n, ok := nodes[dir]; ok {
		return n
	}
	if !strings.HasPrefix(dir, root+string(filepath.Separator)) {
		return nil
	}

	// Walk up to the nearest known ancestor, then create the missing
	// chain top-down.
	var missing []string
	cur := dir
	for {
		if _, ok := nodes[cur]; ok {
			break
		}
		missing = append(missing, cur)
		parent := filepath.Dir(cur)
		if parent == cur {
			return nil
		}
		cur = parent
	}

	for i := len(missing) - 1; i >= 0; i-- {
		path := missing[i]
		node := &Node{Path: path, Name: filepath.Base(path), IsDir: true}
		nodes[filepath.Dir(path)].AddChild(node)
		nodes[path] = node
	}
	return nodes[dir]
}

// aggregate fills TotalSize and FileCount bottom-up and returns the
// subtree totals.
func aggregate(n *Node) (size int64, count int) {
	if !n.IsDir {
		n.TotalSize = n.Size
		n.FileCount = 1
		return n.Size, 1
	}
	for _, c := range n.Children {
		s, f := aggregate(c)
		size += s
		count += f
	}
	n.TotalSize = size
	n.FileCount = count
	return size, count
}

// sortChildren orders every directory's children by aggregate size,
// largest first, with directories before files on equal size and the
// name as the final tiebreak.
func sortChildren(n *Node) {
	sort.SliceStable(n.Children, func(i, j int) bool {
		a, b := n.Children[i], n.Children[j]
		if a.TotalSize != b.TotalSize {
			return a.TotalSize > b.TotalSize
		}
		if a.IsDir != b.IsDir {
			return a.IsDir
		}
		return a.Name < b.Name
	})
	for _, c := range n.Children {
		if c.IsDir {
			sortChildren(c)
		}
	}
}
