// Package query turns a list request into a storage-neutral filter plus
// pagination.  Role restrictions are appended here, never taken from the
// request, so a client cannot widen its own visibility.
package query

// Op is a comparison understood by the repositories.
type Op string

const (
	Eq    Op = "eq"
	Lte   Op = "lte"
	Gte   Op = "gte"
	Match Op = "match" // case-insensitive substring
)

// Cond compares a logical field (camelCase, as in the API) with a value.
type Cond struct {
	Field string
	Op    Op
	Value any
}

// Filter selects records matching every condition in All and, when Any is
// not empty, at least one condition in Any.
type Filter struct {
	Any []Cond
	All []Cond
}

func (f *Filter) and(c ...Cond) { f.All = append(f.All, c...) }

// Fields returns every field referenced by the filter.
func (f Filter) Fields() []string {
	out := make([]string, 0, len(f.Any)+len(f.All))
	for _, c := range f.Any {
		out = append(out, c.Field)
	}
	for _, c := range f.All {
		out = append(out, c.Field)
	}
	return out
}

// Has reports whether All contains an equality on field with value v.
func (f Filter) Has(field string, v any) bool {
	for _, c := range f.All {
		if c.Field == field && c.Op == Eq && c.Value == v {
			return true
		}
	}
	return false
}

// Dir is a sort direction.
type Dir string

const (
	Asc  Dir = "asc"
	Desc Dir = "desc"
)

// Page carries pagination and ordering.  Index is zero based; a Limit of
// zero means "no limit".
type Page struct {
	Index int
	Limit int
	Sort  string
	Dir   Dir
}

// Offset is the number of records to skip.
func (p Page) Offset() int { return p.Index * p.Limit }
