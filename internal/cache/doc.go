// Package cache memoizes shader derivations keyed by source digest.
//
// Reflecting or compiling a WGSL module through naga is the most
// expensive step of shader module creation, and applications routinely
// create many modules from the same source (one per pipeline variant,
// one per device). Cache stores the derived value per source digest:
//
//	var reflected = cache.New[*wgsl.Module](128)
//
//	m, err := reflected.GetOrCompute(cache.KeyOf(source), func() (*wgsl.Module, error) {
//		return reflect(source)
//	})
//
// Failed computations are not cached. Eviction is strict LRU once the
// capacity is reached.
//
// # Thread Safety
//
// Cache is safe for concurrent use. Concurrent misses on the same key
// are computed once; other callers wait for the result.
package cache
