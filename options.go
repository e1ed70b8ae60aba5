package exmodel

// Option is the bit-combinable flag set accepted by Process and Precompile.
type Option uint32

const (
	// NoOptions is the zero flag set: fail fast, strict properties, full
	// (non-delta) records.
	NoOptions Option = 0

	// ExtractTop silently drops unknown fields at the root instead of
	// reporting UnexpectedProperty.
	ExtractTop Option = 1 << iota
	// ExtractNested drops unknown fields inside nested objects.
	ExtractNested
	// DeltaMode admits partial records: missing fields pass at every level
	// except where a node sets $delta: false.
	DeltaMode
	// AccumulateErrors collects every diagnostic instead of stopping at the
	// first one; a single SchemaError carries them all.
	AccumulateErrors

	// ExtractAll drops unknown fields at every level.
	ExtractAll = ExtractTop | ExtractNested
)

// Access is the set of roles the caller holds. A nil Access disables access
// checks entirely; otherwise a field passes when its $w expression is
// satisfied by the roles mapped to true.
type Access map[string]bool
