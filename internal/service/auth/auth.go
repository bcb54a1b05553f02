package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/akarpov/contactsbook/internal/apperrors"
	"github.com/akarpov/contactsbook/internal/logger"
	"github.com/akarpov/contactsbook/internal/models"
	"github.com/akarpov/contactsbook/internal/repository"
)

// Short lived cache of resolved users keyed by email
// A miss is not an error, entries expire by TTL only
type SessionCache interface {
	Get(ctx context.Context, email string) (models.UserSnapshot, bool, error)
	Set(ctx context.Context, snapshot models.UserSnapshot) error
}

// Confirmation mail sink
// Enqueue must not block and must not fail the calling operation
type MailDispatcher interface {
	SendConfirmation(to string, username string, token string, host string)
}

// Result of e-mail confirmation
// Confirming an already confirmed account is not an error
type ConfirmResult struct {
	AlreadyConfirmed bool
}

type Config struct {
	// Hasher to use during user registration or login
	// If not set bcrypt with default cost is used
	Hasher PasswordHasher
}

// AuthService orchestrates signup, login, token refresh, e-mail
// confirmation and caller resolution
type AuthService struct {
	codec  *TokenCodec
	hasher PasswordHasher
	users  repository.UserRepo
	cache  SessionCache
	mailer MailDispatcher
	logger logger.Logger
}

func NewService(cfg Config, codec *TokenCodec, users repository.UserRepo, cache SessionCache, mailer MailDispatcher, l logger.Logger) (*AuthService, error) {
	hasher := cfg.Hasher
	if hasher == nil {
		hasher = NewBcryptHasher(bcrypt.DefaultCost)
	}

	if codec == nil || users == nil || cache == nil || mailer == nil {
		return nil, errors.New("codec, user repo, cache and mailer must not be nil")
	}

	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &AuthService{
		codec:  codec,
		hasher: hasher,
		users:  users,
		cache:  cache,
		mailer: mailer,
		logger: l,
	}, nil
}

// Signup creates an unconfirmed account and triggers a confirmation mail
// The mail is dispatched in background, its failure never fails the signup
func (s *AuthService) Signup(ctx context.Context, username string, email string, password string, host string) (models.PublicUser, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return models.PublicUser{}, fmt.Errorf("can't use this as password, Err: %w", err)
	}

	user, err := s.users.CreateUser(ctx, username, email, hash)
	if err != nil {
		return models.PublicUser{}, err
	}

	s.dispatchConfirmation(user.Email, user.Username, host)

	return user.Public(), nil
}

// Login verifies credentials and issues a fresh token pair
// The refresh token is persisted on the account: one active session per account,
// a new login invalidates the previous refresh token
func (s *AuthService) Login(ctx context.Context, email string, password string) (models.TokenPair, error) {
	var pair models.TokenPair

	user, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		return pair, apperrors.ErrEmailInvalid
	case err != nil:
		return pair, err
	}

	if !user.Confirmed {
		return pair, apperrors.ErrEmailNotConfirmed
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return pair, apperrors.ErrPasswordInvalid
	}

	pair, err = s.mintPair(user.Email)
	if err != nil {
		return models.TokenPair{}, err
	}

	persisted, err := s.users.SetRefreshToken(ctx, user.Email, &pair.Refresh.Value)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("can't persist refresh token. Err: %w", err)
	}
	if persisted.RefreshToken == nil || *persisted.RefreshToken != pair.Refresh.Value {
		return models.TokenPair{}, apperrors.ErrStorageInconsistent
	}

	return pair, nil
}

// Refresh rotates the token pair using a valid refresh token
// Rotation is a compare-and-swap: of two concurrent calls with the same token
// only one may succeed. A stale token clears the stored one and forces re-login
func (s *AuthService) Refresh(ctx context.Context, presented string) (models.TokenPair, error) {
	subject, err := s.codec.Verify(presented, ScopeRefresh)
	if err != nil {
		return models.TokenPair{}, apperrors.ErrUnauthorized
	}

	pair, err := s.mintPair(subject)
	if err != nil {
		return models.TokenPair{}, err
	}

	_, err = s.users.RotateRefreshToken(ctx, subject, presented, pair.Refresh.Value)
	switch {
	case err == nil:
		return pair, nil

	case errors.Is(err, apperrors.ErrUserNotFound):
		// Valid signature but the stored token differs: treat the presented
		// token as stolen or superseded and drop the active session
		s.revokeSession(ctx, subject)
		return models.TokenPair{}, apperrors.ErrUnauthorized

	default:
		return models.TokenPair{}, fmt.Errorf("can't rotate refresh token. Err: %w", err)
	}
}

// ResendConfirmation re-sends the confirmation mail for an unconfirmed account
func (s *AuthService) ResendConfirmation(ctx context.Context, email string, host string) error {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	if user.Confirmed {
		return apperrors.ErrEmailAlreadyConfirmed
	}

	s.dispatchConfirmation(user.Email, user.Username, host)

	return nil
}

// ConfirmEmail flips the confirmation flag using an e-mail scoped token
// Confirming twice is safe and reports AlreadyConfirmed instead of failing
func (s *AuthService) ConfirmEmail(ctx context.Context, token string) (ConfirmResult, error) {
	subject, err := s.codec.Verify(token, ScopeEmail)
	if err != nil {
		return ConfirmResult{}, apperrors.ErrVerificationFailed
	}

	user, err := s.users.GetUserByEmail(ctx, subject)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		return ConfirmResult{}, apperrors.ErrVerificationFailed
	case err != nil:
		return ConfirmResult{}, err
	}

	if user.Confirmed {
		return ConfirmResult{AlreadyConfirmed: true}, nil
	}

	if _, err := s.users.ConfirmEmail(ctx, subject); err != nil {
		return ConfirmResult{}, err
	}

	return ConfirmResult{}, nil
}

// ResolveUser resolves the caller from an access token
// This is the hot path: one token verification, then the cache, then at most
// one storage read to repopulate the cache
func (s *AuthService) ResolveUser(ctx context.Context, accessToken string) (models.User, error) {
	subject, err := s.codec.Verify(accessToken, ScopeAccess)
	if err != nil {
		return models.User{}, apperrors.ErrUnauthorized
	}

	snapshot, found, err := s.cache.Get(ctx, subject)
	if err != nil {
		// The cache is an optimization, resolve from storage when it misbehaves
		s.logger.Warn("session cache read failed", "error", err)
	}
	if found {
		return snapshot.User(), nil
	}

	user, err := s.users.GetUserByEmail(ctx, subject)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		return models.User{}, apperrors.ErrUnauthorized
	case err != nil:
		return models.User{}, err
	}

	if err := s.cache.Set(ctx, models.SnapshotFromUser(user)); err != nil {
		s.logger.Warn("session cache write failed", "error", err)
	}

	return user, nil
}

// SetAvatar stores the url of the uploaded avatar on the account
func (s *AuthService) SetAvatar(ctx context.Context, email string, url string) (models.User, error) {
	return s.users.SetAvatarURL(ctx, email, url)
}

func (s *AuthService) mintPair(subject string) (models.TokenPair, error) {
	access, err := s.codec.Mint(subject, ScopeAccess)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("token could not be generated, sorry. %w", err)
	}

	refresh, err := s.codec.Mint(subject, ScopeRefresh)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("token could not be generated, sorry. %w", err)
	}

	return models.TokenPair{Access: access, Refresh: refresh}, nil
}

func (s *AuthService) dispatchConfirmation(email string, username string, host string) {
	token, err := s.codec.Mint(email, ScopeEmail)
	if err != nil {
		s.logger.Error("can't mint confirmation token", "email", email, "error", err)
		return
	}

	s.mailer.SendConfirmation(email, username, token.Value, host)
}

func (s *AuthService) revokeSession(ctx context.Context, email string) {
	if _, err := s.users.SetRefreshToken(ctx, email, nil); err != nil && !errors.Is(err, apperrors.ErrUserNotFound) {
		s.logger.Error("can't revoke refresh token", "email", email, "error", err)
	}
}
