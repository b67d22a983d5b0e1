// Package board assembles a topic's flat message rows into a nested reply
// tree for display.
package board

import (
	"errors"
	"fmt"
	"sort"

	"github.com/meridianlab/fieldstation/internal/models"
)

// ErrNoRoot is returned when the message set contains no depth-0 message.
var ErrNoRoot = errors.New("message set has no root message")

// Node is one message in the assembled tree. Children hold the direct
// replies in chronological order.
type Node struct {
	Message  *models.Message `json:"message"`
	Children []*Node         `json:"children"`
}

// BuildThread reconstructs the reply tree for one topic from its full
// message set and returns the root node.
//
// Messages are sorted by (-depth, created_at): deepest first, chronological
// within a depth. All nodes are allocated up front into an arena keyed by
// message id, then a single pass attaches each non-root node to its parent.
// Because siblings share a depth and appear in ascending created_at order,
// appending during that pass leaves every child list chronological.
//
// The caller must pass exactly the messages of one topic; a parent_id that
// does not resolve within the set is an error.
func BuildThread(messages []*models.Message) (*Node, error) {
	if len(messages) == 0 {
		return nil, ErrNoRoot
	}

	sorted := make([]*models.Message, len(messages))
	copy(sorted, messages)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Depth != sorted[j].Depth {
			return sorted[i].Depth > sorted[j].Depth
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	arena := make(map[string]*Node, len(sorted))
	for _, msg := range sorted {
		arena[msg.ID] = &Node{Message: msg, Children: []*Node{}}
	}

	var root *Node
	for _, msg := range sorted {
		if msg.ParentID == nil {
			if root != nil {
				return nil, fmt.Errorf("message set has more than one root (%s and %s)", root.Message.ID, msg.ID)
			}
			root = arena[msg.ID]
			continue
		}

		parent, ok := arena[*msg.ParentID]
		if !ok {
			return nil, fmt.Errorf("message %s references parent %s outside the set", msg.ID, *msg.ParentID)
		}
		parent.Children = append(parent.Children, arena[msg.ID])
	}

	if root == nil {
		return nil, ErrNoRoot
	}

	return root, nil
}

// Flatten returns the tree in depth-first order, parents before children,
// each sibling group in stored (chronological) order.
func Flatten(root *Node) []*Node {
	if root == nil {
		return nil
	}

	flat := []*Node{root}
	for _, child := range root.Children {
		flat = append(flat, Flatten(child)...)
	}
	return flat
}
