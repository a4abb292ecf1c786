// Package mapping tracks host-mapped buffer ranges.
//
// A [MapContext] records the range a buffer is mapped over and every
// sub-range currently handed out as a view. It holds no buffer data. Its
// only job is to reject overlapping views, out-of-range views and
// unmapping with views still open, before anything reaches a backend.
//
// Violations are programmer errors and panic with an assertion failure
// from github.com/cockroachdb/errors. The panic value matches one of the
// exported sentinels through errors.Is.
package mapping
