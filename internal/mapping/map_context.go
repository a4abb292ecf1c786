package mapping

import (
	"slices"

	"github.com/cockroachdb/errors"
)

// Tracker failures. Each panic raised by MapContext wraps exactly one.
var (
	// ErrOutOfBounds is raised when a view range falls outside the mapped range.
	ErrOutOfBounds = errors.New("range out of bounds")

	// ErrOverlap is raised when a view range overlaps an open view.
	ErrOverlap = errors.New("overlapping mapped ranges")

	// ErrNoSuchRange is raised when releasing a view that is not open.
	ErrNoSuchRange = errors.New("unable to remove range from map context")

	// ErrViewsOpen is raised when unmapping while views are still open.
	ErrViewsOpen = errors.New("cannot unmap with open views")

	// ErrAlreadyMapped is raised when a mapping is requested while one is
	// already outstanding.
	ErrAlreadyMapped = errors.New("buffer is already mapped")
)

// Range is a half-open byte range [Start, End).
type Range struct {
	Start uint64
	End   uint64
}

// Len returns the number of bytes in the range.
func (r Range) Len() uint64 { return r.End - r.Start }

func (r Range) overlaps(o Range) bool {
	return r.Start < o.End && o.Start < r.End
}

// MapContext tracks the outstanding mapping of one buffer.
//
// MapContext is not safe for concurrent use; the owning buffer guards it
// with a mutex.
type MapContext struct {
	totalSize uint64

	// initial is the outstanding mapping; it may be empty.
	initial Range
	mapped  bool
	views   []Range
}

// New returns an unmapped context for a buffer of totalSize bytes.
func New(totalSize uint64) *MapContext {
	return &MapContext{totalSize: totalSize}
}

// TotalSize returns the size of the tracked buffer.
func (c *MapContext) TotalSize() uint64 { return c.totalSize }

// Initial returns the outstanding mapping range.
func (c *MapContext) Initial() Range { return c.initial }

// IsMapped reports whether a mapping range is outstanding.
func (c *MapContext) IsMapped() bool { return c.mapped }

// OpenRanges returns a copy of the currently open view ranges.
func (c *MapContext) OpenRanges() []Range { return slices.Clone(c.views) }

// SetInitial records [start, end) as the outstanding mapping. An empty
// range still counts as outstanding until Reset.
// It panics if a mapping is already outstanding or the range does not fit
// the buffer.
func (c *MapContext) SetInitial(start, end uint64) {
	if c.IsMapped() {
		panic(errors.WithAssertionFailure(
			errors.Wrapf(ErrAlreadyMapped, "map [%d, %d) while [%d, %d) is outstanding",
				start, end, c.initial.Start, c.initial.End)))
	}
	if start > end || end > c.totalSize {
		panic(errors.WithAssertionFailure(
			errors.Wrapf(ErrOutOfBounds, "map [%d, %d) of %d-byte buffer", start, end, c.totalSize)))
	}
	c.initial = Range{Start: start, End: end}
	c.mapped = true
}

// Reset clears the outstanding mapping. It panics if any view is open.
func (c *MapContext) Reset() {
	if len(c.views) != 0 {
		panic(errors.WithAssertionFailure(
			errors.Wrapf(ErrViewsOpen, "%d view(s) open", len(c.views))))
	}
	c.initial = Range{}
	c.mapped = false
}

// Add opens the view [offset, offset+size) and returns its end. Without a
// size the view extends to the end of the outstanding mapping.
func (c *MapContext) Add(offset, size uint64, hasSize bool) uint64 {
	r := c.resolve("add", offset, size, hasSize)
	for _, v := range c.views {
		if r.overlaps(v) {
			panic(errors.WithAssertionFailure(
				errors.Wrapf(ErrOverlap, "add [%d, %d) over open [%d, %d)", r.Start, r.End, v.Start, v.End)))
		}
	}
	c.views = append(c.views, r)
	return r.End
}

// Remove closes the view previously opened by Add with the same arguments.
func (c *MapContext) Remove(offset, size uint64, hasSize bool) {
	end := c.initial.End
	if hasSize {
		end = offset + size
	}
	r := Range{Start: offset, End: end}
	i := slices.Index(c.views, r)
	if i < 0 {
		panic(errors.WithAssertionFailure(
			errors.Wrapf(ErrNoSuchRange, "remove [%d, %d)", r.Start, r.End)))
	}
	c.views = slices.Delete(c.views, i, i+1)
}

func (c *MapContext) resolve(op string, offset, size uint64, hasSize bool) Range {
	end := c.initial.End
	if hasSize {
		end = offset + size
		if end < offset {
			panic(errors.WithAssertionFailure(
				errors.Wrapf(ErrOutOfBounds, "%s offset %d size %d overflows", op, offset, size)))
		}
	}
	if offset < c.initial.Start || end > c.initial.End || offset > end {
		panic(errors.WithAssertionFailure(
			errors.Wrapf(ErrOutOfBounds, "%s [%d, %d) outside mapped [%d, %d)",
				op, offset, end, c.initial.Start, c.initial.End)))
	}
	return Range{Start: offset, End: end}
}
