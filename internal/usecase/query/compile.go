package query

import (
	"fmt"
	"strings"

	"github.com/strukt-cms/strukt/internal/domain"
	"github.com/strukt-cms/strukt/internal/domain/collection"
	"github.com/strukt-cms/strukt/internal/domain/query"
)

// Where is one (field, operator, value) filter triple.
type Where struct {
	Field string
	Op    string
	Value any
}

// Order is one (field, direction) sort pair.
type Order struct {
	Field     string
	Direction string // "asc" (default) or "desc"
}

// Request is a collection query descriptor.
type Request struct {
	Collection string
	Select     []string
	Where      []Where
	OrderBy    []Order
	Limit      int  // 0 uses the default page size
	Offset     *int // explicit offset overrides the page-derived one
	Page       int  // 1-based, 0 means first page
}

// compileWhere turns the filter triples into the store filter. Values are
// coerced to the target field's declared type before any store query runs.
func compileWhere(col collection.Collection, clauses []Where) (query.Filter, error) {
	var f query.Filter
	groupUsed := false

	for _, w := range clauses {
		attr, err := query.ResolveField(col, w.Field)
		if err != nil {
			return query.Filter{}, domain.NewQueryError("where", w.Field, err.Error())
		}

		switch strings.ToUpper(w.Op) {
		case "=":
			c, err := equalityCondition(attr, w)
			if err != nil {
				return query.Filter{}, err
			}
			f = f.And(c)

		case "!=":
			c, err := equalityCondition(attr, w)
			if err != nil {
				return query.Filter{}, err
			}
			f = f.And(c.Negated())

		case "IN":
			values, err := coerceList(attr, w)
			if err != nil {
				return query.Filter{}, err
			}
			if attr.Kind == query.KindNumeric {
				conds := make([]query.Condition, len(values))
				for i, v := range values {
					conds[i] = query.NewRange(attr.Name, query.Exact(v.(float64)))
				}
				if len(conds) == 1 {
					f = f.And(conds[0])
					break
				}
				// The filter carries a single disjunction group.
				if groupUsed {
					return query.Filter{}, domain.NewQueryError("where", w.Field,
						"only one multi-valued numeric IN clause is supported per query")
				}
				groupUsed = true
				f = f.Or(conds...)
				break
			}
			f = f.And(query.NewMatch(attr.Name, attr.Kind, stringValues(values)...))

		case "NIN":
			values, err := coerceList(attr, w)
			if err != nil {
				return query.Filter{}, err
			}
			if attr.Kind == query.KindNumeric {
				for _, v := range values {
					f = f.And(query.NewRange(attr.Name, query.Exact(v.(float64))).Negated())
				}
				break
			}
			f = f.And(query.NewMatch(attr.Name, attr.Kind, stringValues(values)...).Negated())

		case ">", ">=", "<", "<=":
			if attr.Kind != query.KindNumeric {
				return query.Filter{}, domain.NewQueryError("where", w.Field,
					fmt.Sprintf("operator %q requires a numeric or date field", w.Op))
			}
			coerced, err := query.CoerceValue(attr, w.Value)
			if err != nil {
				return query.Filter{}, domain.NewQueryError("where", w.Field, err.Error())
			}
			bound := coerced.(float64)
			var r query.Range
			switch w.Op {
			case ">":
				r = query.Range{Min: &bound, MinExcl: true}
			case ">=":
				r = query.Range{Min: &bound}
			case "<":
				r = query.Range{Max: &bound, MaxExcl: true}
			case "<=":
				r = query.Range{Max: &bound}
			}
			f = f.And(query.NewRange(attr.Name, r))

		case "LIKE":
			s, ok := w.Value.(string)
			if !ok {
				return query.Filter{}, domain.NewQueryError("where", w.Field, "LIKE requires a string value")
			}
			if attr.Kind == query.KindNumeric {
				return query.Filter{}, domain.NewQueryError("where", w.Field, "LIKE requires a string or text field")
			}
			f = f.And(query.NewSubstring(attr.Name, attr.Kind, s))

		default:
			return query.Filter{}, domain.NewQueryError("where", w.Field, fmt.Sprintf("unknown operator %q", w.Op))
		}
	}

	return f, nil
}

func equalityCondition(attr query.Attr, w Where) (query.Condition, error) {
	coerced, err := query.CoerceValue(attr, w.Value)
	if err != nil {
		return query.Condition{}, domain.NewQueryError("where", w.Field, err.Error())
	}
	if n, ok := coerced.(float64); ok {
		return query.NewRange(attr.Name, query.Exact(n)), nil
	}
	return query.NewMatch(attr.Name, attr.Kind, coerced.(string)), nil
}

func coerceList(attr query.Attr, w Where) ([]any, error) {
	var raw []any
	switch v := w.Value.(type) {
	case []any:
		raw = v
	case []string:
		raw = make([]any, len(v))
		for i, s := range v {
			raw[i] = s
		}
	default:
		return nil, domain.NewQueryError("where", w.Field, fmt.Sprintf("operator %q requires a list value", w.Op))
	}
	if len(raw) == 0 {
		return nil, domain.NewQueryError("where", w.Field, fmt.Sprintf("operator %q requires a non-empty list", w.Op))
	}

	out := make([]any, len(raw))
	for i, v := range raw {
		coerced, err := query.CoerceValue(attr, v)
		if err != nil {
			return nil, domain.NewQueryError("where", w.Field, err.Error())
		}
		out[i] = coerced
	}
	return out, nil
}

func stringValues(values []any) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.(string)
	}
	return out
}

// compileOrder resolves the sort pairs, defaulting to createdAt descending.
func compileOrder(col collection.Collection, orderBy []Order) ([]query.Sort, error) {
	if len(orderBy) == 0 {
		return []query.Sort{{Attr: query.AttrCreatedAt, Desc: true}}, nil
	}
	if len(orderBy) > domain.MaxOrderByKeys {
		return nil, domain.NewQueryError("orderBy", "", fmt.Sprintf("too many sort keys (max %d)", domain.MaxOrderByKeys))
	}

	sorts := make([]query.Sort, len(orderBy))
	for i, o := range orderBy {
		attr, err := query.ResolveField(col, o.Field)
		if err != nil {
			return nil, domain.NewQueryError("orderBy", o.Field, err.Error())
		}
		var desc bool
		switch strings.ToLower(o.Direction) {
		case "", "asc":
		case "desc":
			desc = true
		default:
			return nil, domain.NewQueryError("orderBy", o.Field, fmt.Sprintf("unknown direction %q", o.Direction))
		}
		sorts[i] = query.Sort{Attr: attr.Name, Desc: desc}
	}
	return sorts, nil
}

// compileWindow derives the result window. An explicit offset overrides the
// page-derived one.
func compileWindow(in Request) (offset, limit int, err error) {
	limit = in.Limit
	if limit <= 0 {
		limit = domain.DefaultQueryLimit
	}

	page := in.Page
	if page <= 0 {
		page = 1
	}
	offset = (page - 1) * limit
	if in.Offset != nil {
		if *in.Offset < 0 {
			return 0, 0, domain.NewQueryError("pagination", "offset", "offset must not be negative")
		}
		offset = *in.Offset
	}
	return offset, limit, nil
}
