package crawling

import (
	"cmp"
	"slices"
	"strings"
)

// TreeNode places a discovered page in the site hierarchy.
type TreeNode struct {
	Page         DiscoveredPage `json:"page"`
	PathSegments []string       `json:"path_segments"`
	Depth        int            `json:"depth"`
	Children     []*TreeNode    `json:"children,omitempty"`
	// ParentURL is the URL of the parent node, empty for roots.
	ParentURL string `json:"parent_url,omitempty"`
}

// Tree is the hierarchy built from a flat discovery result.
type Tree struct {
	Roots []*TreeNode          `json:"roots"`
	Index map[string]*TreeNode `json:"-"`
}

// BuildTree arranges pages by URL path nesting. Pages with at most one path
// segment are roots. Deeper pages attach to the page whose segments are their
// own minus the last, or failing that to the page with the longest proper
// prefix of their segments; pages with no prefix match become orphan roots.
// Candidates with equal segments are resolved in favor of the smallest URL,
// so the result does not depend on input order. Children and roots are sorted
// by importance descending, then by title (or URL) ascending.
func BuildTree(pages []DiscoveredPage) *Tree {
	nodes := make([]*TreeNode, 0, len(pages))
	for _, page := range pages {
		segments := PathSegments(page.URL)
		nodes = append(nodes, &TreeNode{
			Page:         page,
			PathSegments: segments,
			Depth:        len(segments),
		})
	}
	slices.SortStableFunc(nodes, func(a, b *TreeNode) int {
		return strings.Compare(a.Page.URL, b.Page.URL)
	})

	index := make(map[string]*TreeNode, len(nodes))
	bySegments := make(map[string]*TreeNode, len(nodes))
	for _, node := range nodes {
		if _, exists := index[node.Page.URL]; !exists {
			index[node.Page.URL] = node
		}
		key := segmentKey(node.PathSegments)
		if _, exists := bySegments[key]; !exists {
			bySegments[key] = node
		}
	}

	tree := &Tree{Index: index}
	for _, node := range nodes {
		parent := findParent(node, bySegments)
		if parent == nil {
			tree.Roots = append(tree.Roots, node)
			continue
		}
		node.ParentURL = parent.Page.URL
		parent.Children = append(parent.Children, node)
	}

	sortNodes(tree.Roots)
	for _, node := range nodes {
		sortNodes(node.Children)
	}
	return tree
}

// findParent returns the node with the longest proper prefix of node's
// segments. The exact parent is the first candidate tried.
func findParent(node *TreeNode, bySegments map[string]*TreeNode) *TreeNode {
	if node.Depth <= 1 {
		return nil
	}
	for n := node.Depth - 1; n >= 1; n-- {
		if parent, ok := bySegments[segmentKey(node.PathSegments[:n])]; ok && parent != node {
			return parent
		}
	}
	return nil
}

func segmentKey(segments []string) string {
	return strings.Join(segments, "\x00")
}

func sortNodes(nodes []*TreeNode) {
	slices.SortStableFunc(nodes, func(a, b *TreeNode) int {
		if c := cmp.Compare(b.Page.Importance, a.Page.Importance); c != 0 {
			return c
		}
		if c := strings.Compare(a.Page.Label(), b.Page.Label()); c != 0 {
			return c
		}
		return strings.Compare(a.Page.URL, b.Page.URL)
	})
}

// Walk visits every node depth-first in display order. level is 0 for roots.
func (t *Tree) Walk(fn func(node *TreeNode, level int)) {
	var visit func(nodes []*TreeNode, level int)
	visit = func(nodes []*TreeNode, level int) {
		for _, node := range nodes {
			fn(node, level)
			visit(node.Children, level+1)
		}
	}
	visit(t.Roots, 0)
}

// Select returns, in display order, the URLs of pages with at least minImportance.
func (t *Tree) Select(minImportance int) []string {
	var urls []string
	t.Walk(func(node *TreeNode, _ int) {
		if node.Page.Importance >= minImportance {
			urls = append(urls, node.Page.URL)
		}
	})
	return urls
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	count := 0
	t.Walk(func(*TreeNode, int) { count++ })
	return count
}
