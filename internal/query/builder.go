package query

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/slms/leave-service/internal/apperr"
	"github.com/slms/leave-service/internal/model"
)

// Intent names the listing being built.
type Intent string

const (
	UserList       Intent = "user_list"
	DepartmentList Intent = "department_list"
	LeaveList      Intent = "leave_list"
)

const (
	DefaultSort = "createdAt"
	DefaultDir  = Desc
)

// Defaults override the package defaults for one intent.  Zero values are
// ignored.
type Defaults struct {
	Page  int
	Limit int
	Sort  string
	Dir   Dir
}

// narrowFunc adds the request-driven part of a filter.
type narrowFunc func(f *Filter, params url.Values) error

// scopeFunc adds the role restriction for the acting user.
type scopeFunc func(f *Filter, actor *model.User)

var narrowers = map[Intent]narrowFunc{
	UserList:       narrowUsers,
	DepartmentList: narrowDepartments,
	LeaveList:      narrowLeaves,
}

// scopes maps (intent, role) to its restriction.  A missing entry means the
// role sees everything for that intent (ADMIN on leaves, anyone on
// departments).
var scopes = map[Intent]map[model.Role]scopeFunc{
	UserList: {
		model.RoleAdmin: onlyRole(model.RoleHOD),
		model.RoleHOD:   all(ownDepartment, onlyRole(model.RoleStaff)),
		model.RoleStaff: onlySelf("id"),
	},
	LeaveList: {
		model.RoleHOD:   ownDepartment,
		model.RoleStaff: onlySelf("user"),
	},
}

// Build returns the filter and pagination for intent as seen by actor.
// actor may be nil only for DepartmentList, which is public.
func Build(intent Intent, actor *model.User, params url.Values, def *Defaults) (Filter, Page, error) {
	var f Filter
	narrow, ok := narrowers[intent]
	if !ok {
		return f, Page{}, apperr.Validation("unknown listing " + string(intent))
	}
	if err := narrow(&f, params); err != nil {
		return Filter{}, Page{}, err
	}
	f.and(Scope(intent, actor)...)
	return f, buildPage(params, def), nil
}

// Scope returns only the role restriction of intent for actor.  Single
// record reads use it so they never see more than the matching list.
func Scope(intent Intent, actor *model.User) []Cond {
	if actor == nil {
		return nil
	}
	fn, ok := scopes[intent][actor.Role]
	if !ok {
		return nil
	}
	var f Filter
	fn(&f, actor)
	return f.All
}

func onlyRole(r model.Role) scopeFunc {
	return func(f *Filter, _ *model.User) { f.and(Cond{Field: "role", Op: Eq, Value: string(r)}) }
}

func ownDepartment(f *Filter, actor *model.User) {
	f.and(Cond{Field: "department", Op: Eq, Value: actor.DepartmentID})
}

func onlySelf(field string) scopeFunc {
	return func(f *Filter, actor *model.User) { f.and(Cond{Field: field, Op: Eq, Value: actor.ID}) }
}

func all(fns ...scopeFunc) scopeFunc {
	return func(f *Filter, actor *model.User) {
		for _, fn := range fns {
			fn(f, actor)
		}
	}
}

// search ORs a substring match of "q" over fields.  A blank q adds nothing.
func search(f *Filter, params url.Values, fields ...string) {
	q := strings.TrimSpace(params.Get("q"))
	if q == "" {
		return
	}
	for _, field := range fields {
		f.Any = append(f.Any, Cond{Field: field, Op: Match, Value: q})
	}
}

func narrowUsers(f *Filter, params url.Values) error {
	search(f, params, "name", "email", "userName", "contactNumber")
	if d := params.Get("department"); d != "" {
		id, err := strconv.ParseUint(d, 10, 64)
		if err != nil {
			return apperr.Validation(apperr.MsgInvalidID)
		}
		f.and(Cond{Field: "department", Op: Eq, Value: id})
	}
	if s := params.Get("status"); s != "" {
		f.and(Cond{Field: "status", Op: Eq, Value: s})
	}
	return nil
}

func narrowDepartments(f *Filter, params url.Values) error {
	search(f, params, "name")
	return nil
}

// narrowLeaves uses interval overlap for the date filter: a leave matches
// when it shares at least one day with [fromDate, toDate].
func narrowLeaves(f *Filter, params url.Values) error {
	search(f, params, "reason")
	from, to := params.Get("fromDate"), params.Get("toDate")
	if from != "" && to != "" {
		fromT, err := model.ParseDate(from)
		if err != nil {
			return apperr.Validation(apperr.MsgInvalidDate)
		}
		toT, err := model.ParseDate(to)
		if err != nil {
			return apperr.Validation(apperr.MsgInvalidDate)
		}
		f.and(
			Cond{Field: "fromDate", Op: Lte, Value: toT},
			Cond{Field: "toDate", Op: Gte, Value: fromT},
		)
	}
	if s := params.Get("status"); s != "" {
		f.and(Cond{Field: "status", Op: Eq, Value: s})
	}
	return nil
}

// buildPage converts the 1-based "page" parameter to a zero-based index.
func buildPage(params url.Values, def *Defaults) Page {
	if def == nil {
		def = &Defaults{}
	}
	p := Page{Index: def.Page, Limit: def.Limit, Sort: def.Sort, Dir: def.Dir}
	if n, err := strconv.Atoi(params.Get("page")); err == nil && n > 1 {
		p.Index = n - 1
	}
	if n, err := strconv.Atoi(params.Get("limit")); err == nil && n > 0 {
		p.Limit = n
	}
	if s := strings.TrimSpace(params.Get("sort")); s != "" {
		p.Sort = s
	}
	if p.Sort == "" {
		p.Sort = DefaultSort
	}
	dir := params.Get("sortBy")
	if dir == "" {
		dir = params.Get("orderBy")
	}
	switch Dir(strings.ToLower(dir)) {
	case Asc:
		p.Dir = Asc
	case Desc:
		p.Dir = Desc
	}
	if p.Dir == "" {
		p.Dir = DefaultDir
	}
	return p
}
