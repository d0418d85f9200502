package repository

import (
	"fmt"
	"strings"

	"github.com/slms/leave-service/internal/query"
)

// columns maps the logical fields used by query.Filter to SQL expressions.
// Only listed fields can be filtered or sorted on.
type columns map[string]string

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// where renders f as " WHERE ..." (or "" for an empty filter) plus its
// arguments.  Unknown fields are an error rather than silently ignored.
func (cols columns) where(f query.Filter) (string, []any, error) {
	var (
		parts []string
		args  []any
	)
	if len(f.Any) > 0 {
		ors := make([]string, 0, len(f.Any))
		for _, c := range f.Any {
			s, a, err := cols.cond(c)
			if err != nil {
				return "", nil, err
			}
			ors = append(ors, s)
			args = append(args, a)
		}
		parts = append(parts, "("+strings.Join(ors, " OR ")+")")
	}
	for _, c := range f.All {
		s, a, err := cols.cond(c)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, s)
		args = append(args, a)
	}
	if len(parts) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func (cols columns) cond(c query.Cond) (string, any, error) {
	col, ok := cols[c.Field]
	if !ok {
		return "", nil, fmt.Errorf("filter on unknown field %q", c.Field)
	}
	switch c.Op {
	case query.Eq:
		return col + " = ?", c.Value, nil
	case query.Lte:
		return col + " <= ?", c.Value, nil
	case query.Gte:
		return col + " >= ?", c.Value, nil
	case query.Match:
		s := strings.ToLower(fmt.Sprint(c.Value))
		return "LOWER(" + col + ") LIKE ?", "%" + likeEscaper.Replace(s) + "%", nil
	}
	return "", nil, fmt.Errorf("unsupported operator %q", c.Op)
}

// orderLimit renders ORDER BY / LIMIT / OFFSET for p.  An unknown sort
// field falls back to fallback; id breaks ties so pages are stable.
func (cols columns) orderLimit(p query.Page, fallback string) string {
	col, ok := cols[p.Sort]
	if !ok {
		col = cols[fallback]
	}
	dir := "DESC"
	if p.Dir == query.Asc {
		dir = "ASC"
	}
	out := fmt.Sprintf(" ORDER BY %s %s, %s %s", col, dir, cols["id"], dir)
	if p.Limit > 0 {
		out += fmt.Sprintf(" LIMIT %d OFFSET %d", p.Limit, p.Offset())
	}
	return out
}
