package forum

import (
	"github.com/JaewonYunDS/Filmind/internal/types"
)

// CommentNode is a comment plus its direct replies, ordered chronologically.
type CommentNode struct {
	types.Comment
	Replies []*CommentNode `json:"replies"`
}

// BuildCommentTree assembles the flat comment list into a reply tree.
// Sibling order follows the input order, so callers passing a
// chronologically sorted list get chronologically sorted siblings at every
// depth. A comment whose parent is missing from the list is promoted to a
// root rather than dropped.
func BuildCommentTree(comments []types.Comment) []*CommentNode {
	nodes := make(map[int]*CommentNode, len(comments))
	for i := range comments {
		nodes[comments[i].ID] = &CommentNode{Comment: comments[i]}
	}

	var roots []*CommentNode
	for i := range comments {
		node := nodes[comments[i].ID]
		if node.ParentID != nil {
			if parent, ok := nodes[*node.ParentID]; ok {
				parent.Replies = append(parent.Replies, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}

// FlattenPreOrder walks the tree depth-first, parent before replies,
// annotating each comment with its nesting depth. This is the order a
// threaded view renders in.
type FlatComment struct {
	types.Comment
	Depth int `json:"depth"`
}

func FlattenPreOrder(roots []*CommentNode) []FlatComment {
	var out []FlatComment
	var walk func(node *CommentNode, depth int)
	walk = func(node *CommentNode, depth int) {
		out = append(out, FlatComment{Comment: node.Comment, Depth: depth})
		for _, reply := range node.Replies {
			walk(reply, depth+1)
		}
	}
	for _, root := range roots {
		walk(root, 0)
	}
	return out
}
