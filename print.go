package exmodel

import (
	"fmt"
	"sort"
	"strings"
)

// PrintSchema renders a normalized schema for debugging: directives first,
// then fields, in a stable order.
func PrintSchema(n *Node) string {
	b := &strings.Builder{}
	printNode(b, n, 0)
	return b.String()
}

func printNode(b *strings.Builder, n *Node, depth int) {
	pad := strings.Repeat("  ", depth)
	fmt.Fprintf(b, "%s$type: %s", pad, n.Type)
	fp := n.fingerprintValue()
	delete(fp, "type")
	delete(fp, "fields")
	delete(fp, "data")
	keys := make([]string, 0, len(fp))
	for k := range fp {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, " %s=%v", k, fp[k])
	}
	b.WriteByte('\n')
	if n.Data != nil {
		fmt.Fprintf(b, "%s$data:\n", pad)
		printNode(b, n.Data, depth+1)
	}
	for _, name := range n.fieldOrder {
		fmt.Fprintf(b, "%s%s:\n", pad, EscapeFieldName(name))
		printNode(b, n.Fields[name], depth+1)
	}
}
