package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/slms/leave-service/internal/logging"
	"github.com/slms/leave-service/internal/model"
	"github.com/slms/leave-service/internal/query"
	"github.com/slms/leave-service/internal/queue"
	"github.com/slms/leave-service/internal/repository"
	"github.com/slms/leave-service/internal/session"
	"github.com/slms/leave-service/internal/utils"
)

// matches evaluates a query.Filter against a record flattened to fields.
func matches(f query.Filter, fields map[string]any) bool {
	for _, c := range f.All {
		if !condOK(c, fields) {
			return false
		}
	}
	if len(f.Any) == 0 {
		return true
	}
	for _, c := range f.Any {
		if condOK(c, fields) {
			return true
		}
	}
	return false
}

func condOK(c query.Cond, fields map[string]any) bool {
	v := fields[c.Field]
	switch c.Op {
	case query.Eq:
		return v == c.Value
	case query.Lte:
		return !v.(time.Time).After(c.Value.(time.Time))
	case query.Gte:
		return !v.(time.Time).Before(c.Value.(time.Time))
	case query.Match:
		return strings.Contains(strings.ToLower(fmt.Sprint(v)), strings.ToLower(fmt.Sprint(c.Value)))
	}
	return false
}

type world struct {
	mu     sync.Mutex
	users  map[uint64]*model.User
	depts  map[uint64]*model.Department
	leaves map[uint64]*model.Leave
	tokens map[uint64]*model.ResetToken
	nextID uint64
}

func newWorld() *world {
	return &world{
		users:  map[uint64]*model.User{},
		depts:  map[uint64]*model.Department{},
		leaves: map[uint64]*model.Leave{},
		tokens: map[uint64]*model.ResetToken{},
		nextID: 100,
	}
}

func (w *world) id() uint64 { w.nextID++; return w.nextID }

func (w *world) addDept(name string) *model.Department {
	d := &model.Department{ID: w.id(), Name: name}
	w.depts[d.ID] = d
	return d
}

func (w *world) addUser(name string, role model.Role, dept uint64, hash string) *model.User {
	u := &model.User{
		ID: w.id(), Name: name, UserName: strings.ToLower(name), Email: strings.ToLower(name) + "@slms.io",
		ContactNumber: fmt.Sprint(5550000 + w.nextID), DepartmentID: dept, Role: role,
		PasswordHash: hash, Status: model.UserActive,
	}
	w.users[u.ID] = u
	return u
}

func ids[T any](m map[uint64]T) []uint64 {
	out := make([]uint64, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// --- users ---

type fakeUsers struct{ w *world }

func userFields(u *model.User) map[string]any {
	return map[string]any{
		"id": u.ID, "name": u.Name, "userName": u.UserName, "email": u.Email,
		"contactNumber": u.ContactNumber, "department": u.DepartmentID,
		"role": string(u.Role), "status": string(u.Status),
	}
}

func (f fakeUsers) populated(u *model.User) *model.User {
	cp := *u
	if d, ok := f.w.depts[u.DepartmentID]; ok {
		dc := *d
		cp.Department = &dc
	}
	return &cp
}

func (f fakeUsers) Create(_ context.Context, u *model.User) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	for _, o := range f.w.users {
		switch {
		case o.Email == u.Email:
			return &repository.DuplicateError{Field: "email"}
		case o.UserName == u.UserName:
			return &repository.DuplicateError{Field: "userName"}
		case o.ContactNumber == u.ContactNumber:
			return &repository.DuplicateError{Field: "contactNumber"}
		}
	}
	cp := *u
	cp.ID = f.w.id()
	f.w.users[cp.ID] = &cp
	u.ID = cp.ID
	return nil
}

func (f fakeUsers) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return f.First(ctx, byID(id))
}

func (f fakeUsers) FindByLogin(_ context.Context, login string) (*model.User, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	for _, id := range ids(f.w.users) {
		u := f.w.users[id]
		if u.Email == login || u.UserName == login || u.ContactNumber == login {
			return f.populated(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f fakeUsers) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return f.First(ctx, query.Filter{All: []query.Cond{{Field: "email", Op: query.Eq, Value: email}}})
}

func (f fakeUsers) First(ctx context.Context, flt query.Filter) (*model.User, error) {
	out, _ := f.List(ctx, flt, query.Page{})
	if len(out) == 0 {
		return nil, repository.ErrNotFound
	}
	return out[0], nil
}

func (f fakeUsers) List(_ context.Context, flt query.Filter, _ query.Page) ([]*model.User, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	out := []*model.User{}
	for _, id := range ids(f.w.users) {
		if u := f.w.users[id]; matches(flt, userFields(u)) {
			out = append(out, f.populated(u))
		}
	}
	return out, nil
}

func (f fakeUsers) Count(ctx context.Context, flt query.Filter) (int64, error) {
	out, _ := f.List(ctx, flt, query.Page{})
	return int64(len(out)), nil
}

func (f fakeUsers) CountByDepartment(ctx context.Context, dept uint64) (int64, error) {
	return f.Count(ctx, query.Filter{All: []query.Cond{{Field: "department", Op: query.Eq, Value: dept}}})
}

func (f fakeUsers) Update(_ context.Context, u *model.User) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	cur, ok := f.w.users[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for id, o := range f.w.users {
		if id != u.ID && o.Email == u.Email {
			return &repository.DuplicateError{Field: "email"}
		}
	}
	cur.Name, cur.UserName, cur.Email, cur.ContactNumber = u.Name, u.UserName, u.Email, u.ContactNumber
	cur.ProfileImage = u.ProfileImage
	return nil
}

func (f fakeUsers) SetStatus(_ context.Context, id uint64, st model.UserStatus) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	u, ok := f.w.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Status = st
	return nil
}

func (f fakeUsers) SetPassword(_ context.Context, id uint64, hash string) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	u, ok := f.w.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (f fakeUsers) Delete(ctx context.Context, id uint64, cascade repository.Cascade) (int64, error) {
	f.w.mu.Lock()
	_, ok := f.w.users[id]
	f.w.mu.Unlock()
	if !ok {
		return 0, repository.ErrNotFound
	}
	var n int64
	if cascade != nil {
		var err error
		if n, err = cascade(ctx, nil); err != nil {
			return 0, err
		}
	}
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	delete(f.w.tokens, id)
	delete(f.w.users, id)
	return n, nil
}

// --- departments ---

type fakeDepts struct{ w *world }

func (f fakeDepts) Create(_ context.Context, d *model.Department) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	for _, o := range f.w.depts {
		if o.Name == d.Name {
			return &repository.DuplicateError{Field: "name"}
		}
	}
	d.ID = f.w.id()
	cp := *d
	f.w.depts[d.ID] = &cp
	return nil
}

func (f fakeDepts) GetByID(_ context.Context, id uint64) (*model.Department, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	d, ok := f.w.depts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (f fakeDepts) List(_ context.Context, flt query.Filter, _ query.Page) ([]*model.Department, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	out := []*model.Department{}
	for _, id := range ids(f.w.depts) {
		d := f.w.depts[id]
		if matches(flt, map[string]any{"id": d.ID, "name": d.Name}) {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f fakeDepts) Count(ctx context.Context, flt query.Filter) (int64, error) {
	out, _ := f.List(ctx, flt, query.Page{})
	return int64(len(out)), nil
}

func (f fakeDepts) Rename(_ context.Context, id uint64, name string) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	d, ok := f.w.depts[id]
	if !ok {
		return repository.ErrNotFound
	}
	d.Name = name
	return nil
}

func (f fakeDepts) Delete(_ context.Context, id uint64) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	if _, ok := f.w.depts[id]; !ok {
		return repository.ErrNotFound
	}
	for _, u := range f.w.users {
		if u.DepartmentID == id {
			return repository.ErrInUse
		}
	}
	delete(f.w.depts, id)
	return nil
}

// --- leaves ---

type fakeLeaves struct{ w *world }

func leaveFields(l *model.Leave) map[string]any {
	return map[string]any{
		"id": l.ID, "user": l.UserID, "department": l.DepartmentID, "status": string(l.Status),
		"reason": l.Reason, "fromDate": l.FromDate, "toDate": l.ToDate,
	}
}

func (f fakeLeaves) populated(l *model.Leave) *model.Leave {
	cp := *l
	if u, ok := f.w.users[l.UserID]; ok {
		cp.User = u.Ref()
	}
	if d, ok := f.w.depts[l.DepartmentID]; ok {
		dc := *d
		cp.Department = &dc
	}
	return &cp
}

func (f fakeLeaves) GetByID(ctx context.Context, id uint64) (*model.Leave, error) {
	return f.First(ctx, byID(id))
}

func (f fakeLeaves) First(ctx context.Context, flt query.Filter) (*model.Leave, error) {
	out, _ := f.List(ctx, flt, query.Page{})
	if len(out) == 0 {
		return nil, repository.ErrNotFound
	}
	return out[0], nil
}

func (f fakeLeaves) List(_ context.Context, flt query.Filter, _ query.Page) ([]*model.Leave, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	out := []*model.Leave{}
	for _, id := range ids(f.w.leaves) {
		if l := f.w.leaves[id]; matches(flt, leaveFields(l)) {
			out = append(out, f.populated(l))
		}
	}
	return out, nil
}

func (f fakeLeaves) Count(ctx context.Context, flt query.Filter) (int64, error) {
	out, _ := f.List(ctx, flt, query.Page{})
	return int64(len(out)), nil
}

// overlapping mirrors the repository's overlap query on inclusive bounds.
func overlapping(aFrom, aTo, bFrom, bTo time.Time) bool {
	return !aFrom.After(bTo) && !aTo.Before(bFrom)
}

func (f fakeLeaves) overlaps(l *model.Leave) bool {
	for _, o := range f.w.leaves {
		if o.ID != l.ID && o.UserID == l.UserID && overlapping(o.FromDate, o.ToDate, l.FromDate, l.ToDate) {
			return true
		}
	}
	return false
}

func (f fakeLeaves) Create(_ context.Context, l *model.Leave) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	if _, ok := f.w.users[l.UserID]; !ok {
		return repository.ErrNotFound
	}
	if f.overlaps(l) {
		return repository.ErrLeaveOverlap
	}
	l.ID = f.w.id()
	l.Status = model.LeavePending
	cp := *l
	f.w.leaves[l.ID] = &cp
	return nil
}

func (f fakeLeaves) Update(_ context.Context, l *model.Leave) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	cur, ok := f.w.leaves[l.ID]
	if !ok || cur.UserID != l.UserID {
		return repository.ErrNotFound
	}
	if cur.Status != model.LeavePending {
		return &repository.LockedError{Status: cur.Status}
	}
	if f.overlaps(l) {
		return repository.ErrLeaveOverlap
	}
	cur.FromDate, cur.ToDate, cur.Reason = l.FromDate, l.ToDate, l.Reason
	return nil
}

func (f fakeLeaves) pending(id uint64) (*model.Leave, error) {
	cur, ok := f.w.leaves[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if cur.Status != model.LeavePending {
		return nil, &repository.LockedError{Status: cur.Status}
	}
	return cur, nil
}

func (f fakeLeaves) SetStatus(_ context.Context, id uint64, st model.LeaveStatus) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	cur, err := f.pending(id)
	if err != nil {
		return err
	}
	cur.Status = st
	return nil
}

func (f fakeLeaves) Delete(_ context.Context, id uint64) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	if _, err := f.pending(id); err != nil {
		return err
	}
	delete(f.w.leaves, id)
	return nil
}

func (f fakeLeaves) DeleteByUser(_ context.Context, _ repository.Execer, userID uint64) (int64, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	var n int64
	for id, l := range f.w.leaves {
		if l.UserID == userID {
			delete(f.w.leaves, id)
			n++
		}
	}
	return n, nil
}

// --- reset tokens ---

type fakeTokens struct{ w *world }

func (f fakeTokens) Replace(_ context.Context, userID uint64, hash string, exp time.Time) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	f.w.tokens[userID] = &model.ResetToken{UserID: userID, TokenHash: hash, ExpiresAt: exp}
	return nil
}

func (f fakeTokens) Find(_ context.Context, userID uint64) (*model.ResetToken, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	t, ok := f.w.tokens[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f fakeTokens) Delete(_ context.Context, userID uint64) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	delete(f.w.tokens, userID)
	return nil
}

// --- collaborators ---

type recordingNotifier struct {
	mu     sync.Mutex
	events []queue.MailEvent
}

func (n *recordingNotifier) Notify(ev queue.MailEvent) {
	n.mu.Lock()
	n.events = append(n.events, ev)
	n.mu.Unlock()
}

func (n *recordingNotifier) last() queue.MailEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.events) == 0 {
		return queue.MailEvent{}
	}
	return n.events[len(n.events)-1]
}

type countingSigner struct{ n int }

func (s *countingSigner) Sign(userID uint64, ttl time.Duration) (utils.SessionToken, error) {
	s.n++
	return utils.SessionToken{Token: fmt.Sprintf("tok-%d-%d", userID, s.n), Exp: time.Now().Add(ttl)}, nil
}

// fixture wires every service over one in-memory world.
type fixture struct {
	w        *world
	hasher   utils.Hasher
	sessions *session.MemoryStore
	notifier *recordingNotifier
	signer   *countingSigner
	leaves   *LeaveService
	users    *UserService
	depts    *DepartmentService
	auth     *AuthService
	now      time.Time
}

var testNow = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fx := &fixture{
		w:        newWorld(),
		hasher:   utils.NewHasher(bcrypt.MinCost),
		sessions: session.NewMemoryStore(),
		notifier: &recordingNotifier{},
		signer:   &countingSigner{},
		now:      testNow,
	}
	clock := func() time.Time { return fx.now }
	log := logging.Discard()
	users, depts, leaves, tokens := fakeUsers{fx.w}, fakeDepts{fx.w}, fakeLeaves{fx.w}, fakeTokens{fx.w}

	fx.leaves = NewLeaveService(leaves)
	fx.leaves.now = clock
	fx.users = NewUserService(users, depts, fx.leaves, fx.sessions, fx.hasher, fx.notifier, time.Hour, log)
	fx.depts = NewDepartmentService(depts, users)
	fx.auth = NewAuthService(fx.users, users, tokens, fx.sessions, fx.signer, fx.hasher, fx.notifier,
		AuthConfig{SessionTTL: time.Hour, ResetTokenTTL: 10 * time.Minute, FrontEndURL: "https://app.slms.io/"}, log)
	fx.auth.now = clock
	return fx
}

func (fx *fixture) hash(t *testing.T, pw string) string {
	t.Helper()
	h, err := fx.hasher.Hash(pw)
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func day(s string) time.Time {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}
