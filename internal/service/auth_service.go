package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/slms/leave-service/internal/apperr"
	"github.com/slms/leave-service/internal/model"
	"github.com/slms/leave-service/internal/queue"
	"github.com/slms/leave-service/internal/repository"
	"github.com/slms/leave-service/internal/session"
	"github.com/slms/leave-service/internal/utils"
)

// TokenSigner issues session tokens.
type TokenSigner interface {
	Sign(userID uint64, ttl time.Duration) (utils.SessionToken, error)
}

// LoginResult is the body returned by login.
type LoginResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type AuthConfig struct {
	SessionTTL    time.Duration
	ResetTokenTTL time.Duration
	FrontEndURL   string
}

type AuthService struct {
	users    *UserService
	store    UserStore
	tokens   TokenStore
	sessions session.Store
	signer   TokenSigner
	hasher   utils.Hasher
	notifier Notifier
	cfg      AuthConfig
	log      logrus.FieldLogger
	now      func() time.Time
	newToken func() (string, error)
}

func NewAuthService(users *UserService, store UserStore, tokens TokenStore, sessions session.Store,
	signer TokenSigner, hasher utils.Hasher, notifier Notifier, cfg AuthConfig, log logrus.FieldLogger) *AuthService {
	return &AuthService{
		users:    users,
		store:    store,
		tokens:   tokens,
		sessions: sessions,
		signer:   signer,
		hasher:   hasher,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		newToken: func() (string, error) { return utils.RandomHex(32) },
	}
}

// Login checks credentials.  login may be the email, user name or contact
// number.  A user who already holds a live session gets it back unchanged.
func (s *AuthService) Login(ctx context.Context, login, password string) (*LoginResult, error) {
	u, err := s.store.FindByLogin(ctx, login)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Validation(apperr.MsgInvalidCredentials)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !s.hasher.Compare(u.PasswordHash, password) {
		return nil, apperr.Validation(apperr.MsgInvalidCredentials)
	}
	if !u.IsActive() {
		return nil, apperr.Validation(apperr.MsgAccountInactive)
	}

	e, ok, err := s.sessions.Get(ctx, u.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if ok {
		return &LoginResult{Token: e.Token, User: e.User}, nil
	}

	tok, err := s.signer.Sign(u.ID, s.cfg.SessionTTL)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if err := s.sessions.Set(ctx, u.ID, session.Entry{Token: tok.Token, User: u}, s.cfg.SessionTTL); err != nil {
		return nil, apperr.Internal(err)
	}
	return &LoginResult{Token: tok.Token, User: u}, nil
}

// Logout ends actor's session; the token stops working immediately.
func (s *AuthService) Logout(ctx context.Context, actor *model.User) error {
	if err := s.sessions.Remove(ctx, actor.ID); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// RequestReset replaces the reset token of the account owning email and
// returns the reset link, which is also mailed.
func (s *AuthService) RequestReset(ctx context.Context, email string) (string, error) {
	u, err := s.store.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return "", apperr.Validation(apperr.MsgUserNotExist)
	}
	if err != nil {
		return "", apperr.Internal(err)
	}
	raw, err := s.newToken()
	if err != nil {
		return "", apperr.Internal(err)
	}
	hash, err := s.hasher.Hash(raw)
	if err != nil {
		return "", apperr.Internal(err)
	}
	if err := s.tokens.Replace(ctx, u.ID, hash, s.now().UTC().Add(s.cfg.ResetTokenTTL)); err != nil {
		return "", apperr.Internal(err)
	}
	link := fmt.Sprintf("%sreset?token=%s&id=%d", s.cfg.FrontEndURL, raw, u.ID)
	s.notifier.Notify(queue.MailEvent{
		Type: queue.MailResetPassword, Email: u.Email, Name: u.Name, UserName: u.UserName, Link: link,
	})
	return link, nil
}

// ResetPassword consumes a reset token.  Missing, expired and wrong tokens
// all produce the same message.
func (s *AuthService) ResetPassword(ctx context.Context, userID uint64, token, password string) (*model.User, error) {
	invalid := apperr.Validation(apperr.MsgInvalidResetToken)
	t, err := s.tokens.Find(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if t.Expired(s.now()) || !s.hasher.Compare(t.TokenHash, token) {
		return nil, invalid
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if err := s.store.SetPassword(ctx, userID, hash); err != nil {
		return nil, storeErr(err, apperr.MsgUserNotExist)
	}
	if err := s.tokens.Delete(ctx, userID); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("reset token not deleted")
	}
	s.users.dropSession(ctx, userID)
	return s.users.reload(ctx, userID)
}

// UpdateMe edits actor's own profile after re-checking the current
// password, and refreshes the cached session with the new snapshot.
func (s *AuthService) UpdateMe(ctx context.Context, actor *model.User, token, password string, in ProfileInput) (*model.User, error) {
	cur, err := s.store.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, storeErr(err, apperr.MsgUserNotExist)
	}
	if password == "" || !s.hasher.Compare(cur.PasswordHash, password) {
		return nil, apperr.Validation(apperr.MsgInvalidPassword)
	}
	u, err := s.users.Update(ctx, actor, actor.ID, in)
	if err != nil {
		return nil, err
	}
	s.users.refreshSession(ctx, u, token)
	return u, nil
}
