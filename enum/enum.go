// Package enum builds immutable key-to-value maps with introspection
// metadata.
package enum

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// maxSafe is the largest integer magnitude representable without loss in a
// 53-bit significand.
const maxSafe = 1<<53 - 1

// Member is one enum entry. Member order is the enum's insertion order.
type Member struct {
	Key   string
	Value int64
}

// Meta describes an Enum for external consumers.
type Meta struct {
	KeyMap     map[string]int64 // key -> value
	KeyArray   []string         // insertion order
	ValueArray []int64          // sorted ascending, duplicates kept
	ValueMap   map[int64]string // value -> first key in insertion order
	Min        int64
	Max        int64
	Safe       bool // every value fits the 53-bit range
	Unique     bool // no duplicate values
	Sequential bool // sorted values form a contiguous block from Min
}

// Enum is an immutable key<->value mapping.
type Enum struct {
	members []Member
	keys    map[string]int64
	values  map[int64]string
	meta    Meta
}

// reserved names would shadow the factory's own members.
var reserved = map[string]bool{
	"$":          true,
	"hasKey":     true,
	"hasValue":   true,
	"keyToValue": true,
	"valueToKey": true,
	"prototype":  true,
}

// New builds an Enum from ordered members. Reserved keys, duplicate keys,
// and values outside the integer domain are compile errors.
func New(members ...Member) (*Enum, error) {
	if len(members) == 0 {
		return nil, errors.New("enum: no members")
	}
	e := &Enum{
		members: append([]Member(nil), members...),
		keys:    make(map[string]int64, len(members)),
		values:  make(map[int64]string, len(members)),
	}
	meta := Meta{
		KeyMap:   make(map[string]int64, len(members)),
		ValueMap: make(map[int64]string, len(members)),
		Safe:     true,
		Unique:   true,
	}
	for i, m := range members {
		if reserved[m.Key] {
			return nil, errors.Errorf("enum: reserved key %q", m.Key)
		}
		if _, dup := e.keys[m.Key]; dup {
			return nil, errors.Errorf("enum: duplicate key %q", m.Key)
		}
		e.keys[m.Key] = m.Value
		meta.KeyMap[m.Key] = m.Value
		meta.KeyArray = append(meta.KeyArray, m.Key)
		meta.ValueArray = append(meta.ValueArray, m.Value)
		if _, seen := e.values[m.Value]; seen {
			meta.Unique = false
		} else {
			e.values[m.Value] = m.Key
			meta.ValueMap[m.Value] = m.Key
		}
		if m.Value < -maxSafe || m.Value > maxSafe {
			meta.Safe = false
		}
		if i == 0 || m.Value < meta.Min {
			meta.Min = m.Value
		}
		if i == 0 || m.Value > meta.Max {
			meta.Max = m.Value
		}
	}
	sort.Slice(meta.ValueArray, func(i, j int) bool { return meta.ValueArray[i] < meta.ValueArray[j] })
	meta.Sequential = true
	for i, v := range meta.ValueArray {
		if v != meta.Min+int64(i) {
			meta.Sequential = false
			break
		}
	}
	e.meta = meta
	return e, nil
}

// NewFromFloats builds an Enum from keys bound to floating-point values,
// rejecting non-finite and non-integer values. This is the entry point for
// descriptor-shaped definitions where numbers arrive as float64.
func NewFromFloats(keys []string, values []float64) (*Enum, error) {
	if len(keys) != len(values) {
		return nil, errors.New("enum: keys and values length mismatch")
	}
	members := make([]Member, len(keys))
	for i, k := range keys {
		v := values[i]
		if math.IsNaN(v) || math.IsInf(v, 0) || math.Trunc(v) != v {
			return nil, errors.Errorf("enum: value for %q is not a finite integer", k)
		}
		members[i] = Member{Key: k, Value: int64(v)}
	}
	return New(members...)
}

// Get returns the value bound to key.
func (e *Enum) Get(key string) (int64, bool) {
	v, ok := e.keys[key]
	return v, ok
}

// HasKey reports whether key is defined.
func (e *Enum) HasKey(key string) bool {
	_, ok := e.keys[key]
	return ok
}

// HasValue reports whether any key is bound to value.
func (e *Enum) HasValue(value int64) bool {
	_, ok := e.values[value]
	return ok
}

// KeyToValue resolves a key to its value.
func (e *Enum) KeyToValue(key string) (int64, bool) {
	return e.Get(key)
}

// ValueToKey resolves a value to the first key bound to it in insertion
// order.
func (e *Enum) ValueToKey(value int64) (string, bool) {
	k, ok := e.values[value]
	return k, ok
}

// Meta returns the introspection metadata. The returned value shares no
// mutable state callers should write to.
func (e *Enum) Meta() Meta { return e.meta }
