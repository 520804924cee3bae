package query

// AttrKind is the index attribute kind a condition targets.
type AttrKind int

// Attribute kinds.
const (
	// KindTag matches exact values (string/enum/ref/media/boolean attributes).
	KindTag AttrKind = iota
	// KindText matches analyzed text (text attributes, snapshot title).
	KindText
	// KindNumeric matches numeric ranges (number/date attributes, timestamps).
	KindNumeric
)

// Range is a numeric interval; nil bounds are open.
type Range struct {
	Min     *float64
	Max     *float64
	MinExcl bool
	MaxExcl bool
}

// Exact returns a closed single-point range [v, v].
func Exact(v float64) Range {
	return Range{Min: &v, Max: &v}
}

// Condition is one compiled filter clause. Exactly one of values, rng or
// substr is populated, matching the attribute kind.
type Condition struct {
	attr   string
	kind   AttrKind
	negate bool
	values []string
	rng    *Range
	substr string
}

// NewMatch creates an exact-match condition over one or more values (OR within).
func NewMatch(attr string, kind AttrKind, values ...string) Condition {
	return Condition{attr: attr, kind: kind, values: values}
}

// NewRange creates a numeric range condition.
func NewRange(attr string, r Range) Condition {
	return Condition{attr: attr, kind: KindNumeric, rng: &r}
}

// NewSubstring creates a case-insensitive substring condition.
func NewSubstring(attr string, kind AttrKind, s string) Condition {
	return Condition{attr: attr, kind: kind, substr: s}
}

// Negated returns a copy matching the complement.
func (c Condition) Negated() Condition {
	c.negate = !c.negate
	return c
}

// Attr returns the index attribute name.
func (c Condition) Attr() string { return c.attr }

// Kind returns the attribute kind.
func (c Condition) Kind() AttrKind { return c.kind }

// Negate reports whether the condition is inverted.
func (c Condition) Negate() bool { return c.negate }

// Values returns the exact-match values.
func (c Condition) Values() []string { return c.values }

// Rng returns the numeric range, or nil.
func (c Condition) Rng() *Range { return c.rng }

// Substr returns the substring pattern, or "".
func (c Condition) Substr() string { return c.substr }

// Filter is a conjunction of conditions plus one optional disjunction group.
type Filter struct {
	must   []Condition
	should []Condition
}

// And returns a copy with the condition added to the conjunction.
func (f Filter) And(c Condition) Filter {
	f.must = append(f.must[:len(f.must):len(f.must)], c)
	return f
}

// Or returns a copy with the conditions added to the disjunction group.
func (f Filter) Or(cs ...Condition) Filter {
	f.should = append(f.should[:len(f.should):len(f.should)], cs...)
	return f
}

// Must returns the conjunction conditions.
func (f Filter) Must() []Condition { return f.must }

// Should returns the disjunction group.
func (f Filter) Should() []Condition { return f.should }

// IsEmpty reports whether the filter has no conditions.
func (f Filter) IsEmpty() bool { return len(f.must) == 0 && len(f.should) == 0 }

// Sort is one compiled sort key.
type Sort struct {
	Attr string
	Desc bool
}
