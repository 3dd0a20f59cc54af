package query

import (
	"strings"

	"gorm.io/gorm"
)

// Compile renders p as a parameterized SQL condition. Column names come from
// code, never from requests.
func Compile(p Predicate) (string, []any) {
	var b strings.Builder
	var args []any
	compile(&b, &args, p)
	return b.String(), args
}

func compile(b *strings.Builder, args *[]any, p Predicate) {
	switch n := p.(type) {
	case nil, allNode:
		b.WriteString("1 = 1")
	case noneNode:
		b.WriteString("1 = 0")
	case eqNode:
		b.WriteString(n.column + " = ?")
		*args = append(*args, n.value)
	case inNode:
		b.WriteString(n.column + " IN ?")
		*args = append(*args, n.values)
	case nullNode:
		if n.negate {
			b.WriteString(n.column + " IS NOT NULL")
		} else {
			b.WriteString(n.column + " IS NULL")
		}
	case ltNode:
		b.WriteString(n.column + " < ?")
		*args = append(*args, n.value)
	case containsNode:
		b.WriteString("LOWER(" + n.column + ") LIKE ? ESCAPE '" + likeEscape + "'")
		*args = append(*args, "%"+escapeLike(n.substr)+"%")
	case andNode:
		group(b, args, " AND ", n.terms)
	case orNode:
		group(b, args, " OR ", n.terms)
	}
}

// likeEscape is the LIKE escape character on every driver
const likeEscape = "!"

var likeReplacer = strings.NewReplacer(
	likeEscape, likeEscape+likeEscape,
	"%", likeEscape+"%",
	"_", likeEscape+"_",
)

// escapeLike makes s match literally inside a LIKE pattern
func escapeLike(s string) string {
	return likeReplacer.Replace(s)
}

func group(b *strings.Builder, args *[]any, op string, terms []Predicate) {
	b.WriteByte('(')
	for i, t := range terms {
		if i > 0 {
			b.WriteString(op)
		}
		compile(b, args, t)
	}
	b.WriteByte(')')
}

// Apply adds p to a gorm query as a single WHERE group
func Apply(db *gorm.DB, p Predicate) *gorm.DB {
	if IsAll(p) {
		return db
	}
	sql, args := Compile(p)
	return db.Where(sql, args...)
}

// Scope wraps Apply for use with gorm's Scopes
func Scope(p Predicate) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return Apply(db, p)
	}
}
