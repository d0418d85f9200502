package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slms/leave-service/internal/apperr"
	"github.com/slms/leave-service/internal/model"
	"github.com/slms/leave-service/internal/queue"
)

func TestLogin_ReusesLiveSession(t *testing.T) {
	fx := newFixture(t)
	eng := fx.w.addDept("Engineering")
	u := fx.w.addUser("Sam", model.RoleStaff, eng.ID, fx.hash(t, "pass1234"))
	ctx := context.Background()

	first, err := fx.auth.Login(ctx, "sam@slms.io", "pass1234")
	require.NoError(t, err)
	assert.Equal(t, u.ID, first.User.ID)
	assert.NotEmpty(t, first.Token)

	second, err := fx.auth.Login(ctx, "sam", "pass1234")
	require.NoError(t, err)
	assert.Equal(t, first.Token, second.Token)
	assert.Equal(t, 1, fx.signer.n)

	require.NoError(t, fx.auth.Logout(ctx, u))
	third, err := fx.auth.Login(ctx, u.ContactNumber, "pass1234")
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, third.Token)
}

func TestLogin_Failures(t *testing.T) {
	fx := newFixture(t)
	eng := fx.w.addDept("Engineering")
	u := fx.w.addUser("Sam", model.RoleStaff, eng.ID, fx.hash(t, "pass1234"))
	ctx := context.Background()

	_, err := fx.auth.Login(ctx, "nobody", "pass1234")
	requireMessage(t, err, apperr.KindValidation, apperr.MsgInvalidCredentials)

	_, err = fx.auth.Login(ctx, "sam", "wrong")
	requireMessage(t, err, apperr.KindValidation, apperr.MsgInvalidCredentials)

	u.Status = model.UserInactive
	_, err = fx.auth.Login(ctx, "sam", "pass1234")
	requireMessage(t, err, apperr.KindValidation, apperr.MsgAccountInactive)
	assert.Zero(t, fx.signer.n)
}

func TestResetPasswordFlow(t *testing.T) {
	fx := newFixture(t)
	eng := fx.w.addDept("Engineering")
	u := fx.w.addUser("Sam", model.RoleStaff, eng.ID, fx.hash(t, "old-pass"))
	fx.auth.newToken = func() (string, error) { return "abc123", nil }
	ctx := context.Background()

	_, err := fx.auth.RequestReset(ctx, "ghost@slms.io")
	requireMessage(t, err, apperr.KindValidation, apperr.MsgUserNotExist)

	link, err := fx.auth.RequestReset(ctx, "sam@slms.io")
	require.NoError(t, err)
	assert.Equal(t, "https://app.slms.io/reset?token=abc123&id="+fmt.Sprint(u.ID), link)
	ev := fx.notifier.last()
	assert.Equal(t, queue.MailResetPassword, ev.Type)
	assert.Equal(t, link, ev.Link)
	assert.NotEqual(t, "abc123", fx.w.tokens[u.ID].TokenHash)

	_, err = fx.auth.ResetPassword(ctx, u.ID, "nope", "new-pass")
	requireMessage(t, err, apperr.KindValidation, apperr.MsgInvalidResetToken)

	got, err := fx.auth.ResetPassword(ctx, u.ID, "abc123", "new-pass")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, fx.hasher.Compare(fx.w.users[u.ID].PasswordHash, "new-pass"))

	// consumed
	_, err = fx.auth.ResetPassword(ctx, u.ID, "abc123", "again")
	requireMessage(t, err, apperr.KindValidation, apperr.MsgInvalidResetToken)
}

func TestResetPassword_Expired(t *testing.T) {
	fx := newFixture(t)
	eng := fx.w.addDept("Engineering")
	u := fx.w.addUser("Sam", model.RoleStaff, eng.ID, fx.hash(t, "old-pass"))
	fx.auth.newToken = func() (string, error) { return "abc123", nil }
	ctx := context.Background()

	_, err := fx.auth.RequestReset(ctx, "sam@slms.io")
	require.NoError(t, err)

	fx.now = fx.now.Add(10 * time.Minute)
	_, err = fx.auth.ResetPassword(ctx, u.ID, "abc123", "new-pass")
	requireMessage(t, err, apperr.KindValidation, apperr.MsgInvalidResetToken)
	assert.True(t, fx.hasher.Compare(fx.w.users[u.ID].PasswordHash, "old-pass"))
}

func TestResetPassword_EndsSession(t *testing.T) {
	fx := newFixture(t)
	eng := fx.w.addDept("Engineering")
	u := fx.w.addUser("Sam", model.RoleStaff, eng.ID, fx.hash(t, "old-pass"))
	fx.auth.newToken = func() (string, error) { return "abc123", nil }
	ctx := context.Background()

	_, err := fx.auth.Login(ctx, "sam", "old-pass")
	require.NoError(t, err)
	_, err = fx.auth.RequestReset(ctx, "sam@slms.io")
	require.NoError(t, err)
	_, err = fx.auth.ResetPassword(ctx, u.ID, "abc123", "new-pass")
	require.NoError(t, err)

	_, ok, err := fx.sessions.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateMe(t *testing.T) {
	fx := newFixture(t)
	eng := fx.w.addDept("Engineering")
	u := fx.w.addUser("Sam", model.RoleStaff, eng.ID, fx.hash(t, "pass1234"))
	ctx := context.Background()

	login, err := fx.auth.Login(ctx, "sam", "pass1234")
	require.NoError(t, err)

	in := ProfileInput{Name: "Sam Lee", UserName: "samlee", Email: "sam@slms.io", ContactNumber: u.ContactNumber}
	_, err = fx.auth.UpdateMe(ctx, u, login.Token, "bad", in)
	requireMessage(t, err, apperr.KindValidation, apperr.MsgInvalidPassword)

	got, err := fx.auth.UpdateMe(ctx, u, login.Token, "pass1234", in)
	require.NoError(t, err)
	assert.Equal(t, "samlee", got.UserName)

	e, ok, err := fx.sessions.Get(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, login.Token, e.Token)
	assert.Equal(t, "Sam Lee", e.User.Name)
}
