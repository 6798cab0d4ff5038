package tree

import (
	"bufio"
	"fmt"
	"io"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

// Render writes the tree as indented text in the manner of tree(1).
// Directories show their aggregate size and file count, files their own
// size. maxDepth limits how many levels below the root are printed;
// zero means no limit.
func Render(w io.Writer, root *Node, maxDepth int) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s  %s (%s)\n", root.Path, types.FormatSize(root.TotalSize), countLabel(root.FileCount))
	renderChildren(bw, root, "", 1, maxDepth)
	return bw.Flush()
}

func renderChildren(w io.Writer, n *Node, prefix string, depth, maxDepth int) {
	if maxDepth > 0 && depth > maxDepth {
		return
	}
	for i, c := range n.Children {
		connector, childPrefix := "├── ", prefix+"│   "
		if i == len(n.Children)-1 {
			connector, childPrefix = "└── ", prefix+"    "
		}
		if c.IsDir {
			fmt.Fprintf(w, "%s%s%s/  %s (%s)\n", prefix, connector, c.Name, types.FormatSize(c.TotalSize), countLabel(c.FileCount))
			renderChildren(w, c, childPrefix, depth+1, maxDepth)
		} else {
			fmt.Fprintf(w, "%s%s%s  %s\n", prefix, connector, c.Name, types.FormatSize(c.Size))
		}
	}
}

func countLabel(n int) string {
	if n == 1 {
		return "1 file"
	}
	return fmt.Sprintf("%d files", n)
}
