package exmodel

import (
	"github.com/exjs/exmodel/internal/exp"
)

// Node is a normalized schema node. Nodes are immutable after
// normalization and safe to share between goroutines.
type Node struct {
	Type     string
	Nullable bool
	Optional bool

	HasDefault bool
	Default    any

	Allowed    []any  // generic $allowed literals
	AllowedSet string // char: string of permitted characters

	Empty bool

	HasLen    bool
	Len       int
	HasMinLen bool
	MinLen    int
	HasMaxLen bool
	MaxLen    int

	Min   any // authored number as given, or bigint string for the 64-bit family; nil when unset
	Max   any
	MinEx any
	MaxEx any

	Fn  func(any) any
	Exp *exp.Program

	Group        string // resolved group tag; empty when excluded via explicit null
	PK           bool
	FK           string
	UniqueSelf   bool
	UniqueGroups []string

	Read  *AccessExpr
	Write *AccessExpr
	Acc   *AccessExpr

	Delta *bool

	// type-specific directives
	Format     string
	Precision  int
	Scale      int
	CSSNames   bool
	ExtraNames map[string]string
	Separator  string
	Port       bool
	LeapYear   bool
	LeapSecond bool
	Version    string

	// containers
	Fields map[string]*Node // object fields by unescaped name
	Data   *Node            // map value schema / array element schema

	// derived metadata for object nodes
	GroupMap    map[string][]string
	PKMap       map[string]bool
	PKArray     []string
	FKMap       map[string]string
	FKArray     []string
	IDMap       map[string]bool
	IDArray     []string
	UniqueArray [][]string

	src        map[string]any // merged authored descriptor, retained for $extend
	fieldOrder []string       // canonical (lexicographic) field order
	fnID       uint64         // distinguishes $fn closures in fingerprints
	fp         string         // canonical digest, stamped at normalization
	normalized bool
}

// FieldOrder returns the canonical field traversal order of an object node.
func (n *Node) FieldOrder() []string {
	return append([]string(nil), n.fieldOrder...)
}

// IsObject reports whether the node describes a record.
func (n *Node) IsObject() bool { return n.Type == "object" }
