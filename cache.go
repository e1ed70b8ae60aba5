package exmodel

import (
	"strconv"
	"sync"

	"github.com/pkg/errors"
)

// routineCache memoizes compiled routines per (schema fingerprint, options,
// access fingerprint). Concurrent misses may compile redundantly; entries
// are semantically identical, so last write wins without locking.
var routineCache sync.Map // string -> *Routine

func routineFor(n *Node, opts Option, roles Access) (*Routine, error) {
	if n == nil || !n.normalized {
		return nil, errors.New("process: schema is not normalized")
	}
	key := n.fp + "|" + strconv.FormatUint(uint64(opts), 10) + "|" + accessFingerprint(roles)
	if v, ok := routineCache.Load(key); ok {
		return v.(*Routine), nil
	}
	r := compileRoutine(n, opts, roles)
	routineCache.Store(key, r)
	return r, nil
}

// CacheSize reports the number of compiled routines currently cached.
func CacheSize() int {
	size := 0
	routineCache.Range(func(any, any) bool {
		size++
		return true
	})
	return size
}

// ResetCache drops every cached routine. Compiled routines held by callers
// stay valid.
func ResetCache() {
	routineCache.Range(func(k, _ any) bool {
		routineCache.Delete(k)
		return true
	})
}
