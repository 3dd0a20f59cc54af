// Package query builds immutable predicate trees that compile to SQL and
// evaluate in memory with the same semantics.
package query

import (
	"strings"
)

// Predicate is a node of a filter tree
type Predicate interface {
	predicate()
}

// Fielder exposes a record's column values for in-memory evaluation
type Fielder interface {
	Field(column string) (any, bool)
}

type (
	allNode      struct{}
	noneNode     struct{}
	containsNode struct{ column, substr string }
	andNode      struct{ terms []Predicate }
	orNode       struct{ terms []Predicate }

	eqNode struct {
		column string
		value  any
	}
	inNode struct {
		column string
		values []any
	}
	nullNode struct {
		column string
		negate bool
	}
	ltNode struct {
		column string
		value  any
	}
)

func (allNode) predicate()      {}
func (noneNode) predicate()     {}
func (eqNode) predicate()       {}
func (inNode) predicate()       {}
func (nullNode) predicate()     {}
func (ltNode) predicate()       {}
func (containsNode) predicate() {}
func (andNode) predicate()      {}
func (orNode) predicate()       {}

// All matches every record
func All() Predicate { return allNode{} }

// None matches no record
func None() Predicate { return noneNode{} }

// Eq matches column == value
func Eq(column string, value any) Predicate { return eqNode{column: column, value: value} }

// In matches column against any of values. An empty set matches nothing.
func In[T any](column string, values []T) Predicate {
	if len(values) == 0 {
		return noneNode{}
	}
	vs := make([]any, len(values))
	for i, v := range values {
		vs[i] = v
	}
	return inNode{column: column, values: vs}
}

// IsNull matches records whose column has no value
func IsNull(column string) Predicate { return nullNode{column: column} }

// NotNull matches records whose column has a value
func NotNull(column string) Predicate { return nullNode{column: column, negate: true} }

// Lt matches column < value
func Lt(column string, value any) Predicate { return ltNode{column: column, value: value} }

// Contains matches a case-insensitive substring of a text column
func Contains(column, substr string) Predicate {
	return containsNode{column: column, substr: strings.ToLower(substr)}
}

// And conjoins terms. All operands are dropped; a None operand collapses the
// whole conjunction.
func And(terms ...Predicate) Predicate {
	kept := make([]Predicate, 0, len(terms))
	for _, t := range terms {
		switch t.(type) {
		case nil, allNode:
			continue
		case noneNode:
			return noneNode{}
		}
		kept = append(kept, t)
	}
	switch len(kept) {
	case 0:
		return allNode{}
	case 1:
		return kept[0]
	}
	return andNode{terms: kept}
}

// Or disjoins terms. The result is always compiled as its own group, so an OR
// combined under an And never widens its siblings.
func Or(terms ...Predicate) Predicate {
	kept := make([]Predicate, 0, len(terms))
	for _, t := range terms {
		switch t.(type) {
		case nil, noneNode:
			continue
		case allNode:
			return allNode{}
		}
		kept = append(kept, t)
	}
	switch len(kept) {
	case 0:
		return noneNode{}
	case 1:
		return kept[0]
	}
	return orNode{terms: kept}
}

// IsAll reports whether p is unrestricted
func IsAll(p Predicate) bool {
	_, ok := p.(allNode)
	return ok || p == nil
}
