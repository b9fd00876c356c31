package note

import "strings"

// TagNode is one level of the hierarchical tag forest built from extracted
// hashtags; "#a/b" yields a node "a" with child "b".
type TagNode struct {
	Name     string
	Children []*TagNode
}

// BuildTagTree folds '/'-nested hashtags into a forest, merging duplicate
// paths. Empty path segments are dropped.
func BuildTagTree(hashtags []string) []*TagNode {
	var roots []*TagNode
	for _, tag := range hashtags {
		level := &roots
		for _, segment := range strings.Split(tag, "/") {
			if segment == "" {
				continue
			}
			node := findNode(*level, segment)
			if node == nil {
				node = &TagNode{Name: segment}
				*level = append(*level, node)
			}
			level = &node.Children
		}
	}
	return roots
}

func findNode(nodes []*TagNode, name string) *TagNode {
	for _, n := range nodes {
		if n.Name == name {
			return n
		}
	}
	return nil
}
