package query

import (
	"reflect"
	"strings"
	"time"
)

// Match evaluates p against r. Unknown columns never match.
func Match(p Predicate, r Fielder) bool {
	switch n := p.(type) {
	case nil, allNode:
		return true
	case noneNode:
		return false
	case eqNode:
		v, ok := r.Field(n.column)
		return ok && v != nil && equal(v, n.value)
	case inNode:
		v, ok := r.Field(n.column)
		if !ok || v == nil {
			return false
		}
		for _, candidate := range n.values {
			if equal(v, candidate) {
				return true
			}
		}
		return false
	case nullNode:
		v, ok := r.Field(n.column)
		if !ok {
			return false
		}
		return (v == nil) == !n.negate
	case ltNode:
		v, ok := r.Field(n.column)
		return ok && v != nil && less(v, n.value)
	case containsNode:
		v, ok := r.Field(n.column)
		if !ok {
			return false
		}
		s, isString := normalize(v).(string)
		return isString && strings.Contains(strings.ToLower(s), n.substr)
	case andNode:
		for _, t := range n.terms {
			if !Match(t, r) {
				return false
			}
		}
		return true
	case orNode:
		for _, t := range n.terms {
			if Match(t, r) {
				return true
			}
		}
		return false
	}
	return false
}

// normalize folds integer kinds to int64 and named string types to string so
// values from requests compare equal to values from records
func normalize(v any) any {
	if t, ok := v.(time.Time); ok {
		return t
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return int64(rv.Uint())
	case reflect.String:
		return rv.String()
	}
	return rv.Interface()
}

func equal(a, b any) bool {
	na, nb := normalize(a), normalize(b)
	if ta, ok := na.(time.Time); ok {
		tb, ok := nb.(time.Time)
		return ok && ta.Equal(tb)
	}
	return na == nb
}

func less(a, b any) bool {
	na, nb := normalize(a), normalize(b)
	switch x := na.(type) {
	case time.Time:
		y, ok := nb.(time.Time)
		return ok && x.Before(y)
	case int64:
		y, ok := nb.(int64)
		return ok && x < y
	case string:
		y, ok := nb.(string)
		return ok && x < y
	}
	return false
}
