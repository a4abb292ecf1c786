package gpuapi

// BoundKind says how a Bound limits a range.
type BoundKind uint8

const (
	// Unbounded leaves the range open on that side.
	Unbounded BoundKind = iota
	// Included includes the bound value.
	Included
	// Excluded excludes the bound value.
	Excluded
)

// Bound is one end of a Range.
type Bound struct {
	Kind  BoundKind
	Value uint64
}

// IncludedBound returns a bound that includes v.
func IncludedBound(v uint64) Bound { return Bound{Kind: Included, Value: v} }

// ExcludedBound returns a bound that excludes v.
func ExcludedBound(v uint64) Bound { return Bound{Kind: Excluded, Value: v} }

// Range is a byte range expression accepted by Buffer.Slice. The helper
// constructors cover the usual forms; a Range may also be built from any
// two bounds.
type Range struct {
	Start Bound
	End   Bound
}

// Full is the whole buffer.
func Full() Range { return Range{} }

// From is [start, end of buffer).
func From(start uint64) Range { return Range{Start: IncludedBound(start)} }

// To is [0, end).
func To(end uint64) Range { return Range{End: ExcludedBound(end)} }

// ToInclusive is [0, end].
func ToInclusive(end uint64) Range { return Range{End: IncludedBound(end)} }

// Span is [start, end).
func Span(start, end uint64) Range {
	return Range{Start: IncludedBound(start), End: ExcludedBound(end)}
}

// SpanInclusive is [start, end].
func SpanInclusive(start, end uint64) Range {
	return Range{Start: IncludedBound(start), End: IncludedBound(end)}
}

// RangeToOffsetSize normalizes r to a byte offset and an optional size.
// hasSize is false when the range runs to the end of the buffer.
func RangeToOffsetSize(r Range) (offset, size uint64, hasSize bool) {
	switch r.Start.Kind {
	case Included:
		offset = r.Start.Value
	case Excluded:
		offset = r.Start.Value + 1
	}
	switch r.End.Kind {
	case Excluded:
		return offset, r.End.Value - offset, true
	case Included:
		return offset, r.End.Value + 1 - offset, true
	default:
		return offset, 0, false
	}
}
