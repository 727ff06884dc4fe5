package legend

// NodeKind distinguishes layer tree nodes.
type NodeKind int

const (
	GroupNode NodeKind = iota
	VectorNode
	RasterNode
)

// Node is a layer tree node as reported by the host, children in host order.
type Node struct {
	LayerID  string
	Name     string
	Kind     NodeKind
	Visible  bool
	Children []Node
}

// Ellipsis marks a truncated legend name.
const Ellipsis = "…"

// Collect walks the tree depth-first and returns an entry for every visible
// vector layer, names taken verbatim and cut to maxChars runes. Hidden groups
// hide their whole subtree. maxChars <= 0 disables truncation.
func Collect(root Node, maxChars int) []Entry {
	var entries []Entry
	seen := make(map[string]bool)

	var walk func(n Node)
	walk = func(n Node) {
		for _, child := range n.Children {
			if !child.Visible {
				continue
			}
			switch child.Kind {
			case GroupNode:
				walk(child)
			case VectorNode:
				if child.LayerID == "" || seen[child.LayerID] {
					continue
				}
				seen[child.LayerID] = true
				entries = append(entries, Entry{
					LayerID:     child.LayerID,
					DisplayName: Truncate(child.Name, maxChars),
					Order:       len(entries),
				})
			}
		}
	}
	walk(root)

	if entries == nil {
		entries = []Entry{}
	}
	return entries
}

// Truncate cuts s to maxChars runes and appends Ellipsis when it did.
func Truncate(s string, maxChars int) string {
	if maxChars <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= maxChars {
		return s
	}
	return string(r[:maxChars]) + Ellipsis
}
