package domain

// ReplyNode is a Reply with its assembled children. The Replies field exists
// only in memory; it is never part of the wire format and must not be sent
// back to the backend.
type ReplyNode struct {
	Reply
	Replies []*ReplyNode `json:"-"`
}

// AssembleThread turns a flat reply list into a nested tree in O(n).
// Children keep input order, so callers should pass replies sorted by
// creation time ascending to get a chronological tree.
//
// A reply whose parent is missing from the input is promoted to the root
// level rather than dropped, so no content is ever lost to a deleted or
// filtered-out parent.
func AssembleThread(replies []Reply) []*ReplyNode {
	nodes := make(map[int]*ReplyNode, len(replies))
	for _, r := range replies {
		nodes[r.ID] = &ReplyNode{Reply: r}
	}

	roots := make([]*ReplyNode, 0, len(replies))
	for _, r := range replies {
		node := nodes[r.ID]
		if r.ParentID != nil && *r.ParentID != r.ID {
			if parent, ok := nodes[*r.ParentID]; ok {
				parent.Replies = append(parent.Replies, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}

// CountNodes walks a tree and returns the total node count. AssembleThread
// guarantees this equals the input length.
func CountNodes(roots []*ReplyNode) int {
	n := 0
	for _, node := range roots {
		n += 1 + CountNodes(node.Replies)
	}
	return n
}
