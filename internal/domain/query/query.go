// Package query defines the query descriptor submitted by callers and the
// typed filter/sort representation it compiles into. The representation is
// validated independently of storage; the db driver renders it into the
// store's native query form.
package query

// Operator is a where-clause comparison operator.
type Operator string

// Supported operators.
const (
	OpEq   Operator = "="
	OpNeq  Operator = "!="
	OpIn   Operator = "IN"
	OpNin  Operator = "NIN"
	OpGt   Operator = ">"
	OpGte  Operator = ">="
	OpLt   Operator = "<"
	OpLte  Operator = "<="
	OpLike Operator = "LIKE"
)

// IsValid checks if the operator is supported.
func (o Operator) IsValid() bool {
	switch o {
	case OpEq, OpNeq, OpIn, OpNin, OpGt, OpGte, OpLt, OpLte, OpLike:
		return true
	}
	return false
}

// IsRange reports whether the operator compares against a numeric bound.
func (o Operator) IsRange() bool {
	return o == OpGt || o == OpGte || o == OpLt || o == OpLte
}

// Clause is a single (field, operator, value) where triple.
type Clause struct {
	Field string
	Op    Operator
	Value any
}

// Order is a single (field, direction) orderBy pair.
type Order struct {
	Field string
	Desc  bool
}

// Request is the ephemeral query descriptor.
type Request struct {
	Collection string
	Select     []string
	Where      []Clause
	OrderBy    []Order
	Limit      int
	Offset     int
	Page       int
}
