package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/akarpov/contactsbook/internal/apperrors"
	"github.com/akarpov/contactsbook/internal/models"
)

// Scope a token was minted for
// A token is accepted only by operations expecting the same scope
type Scope string

const (
	ScopeAccess  Scope = "access_token"
	ScopeRefresh Scope = "refresh_token"
	ScopeEmail   Scope = "email_token"
)

const (
	defaultSigningMethod = "HS256"
	defaultAccessTTL     = 15 * time.Minute
	defaultRefreshTTL    = 7 * 24 * time.Hour
	defaultEmailTokenTTL = 7 * 24 * time.Hour
)

// MAC algorithms the codec accepts, anything else is a configuration error
var allowedSigningMethods = map[string]bool{
	"HS256": true,
	"HS512": true,
}

type TokenClaims struct {
	jwt.RegisteredClaims
	Scope Scope `json:"scope"`
}

// Token codec config with sensible defaults
type CodecConfig struct {
	// Secret key to sign tokens
	// Required to be set
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm: HS256 or HS512
	// If not set than default is used
	Alg string

	// Per scope token lifetimes
	// If not set than default is used
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	EmailTTL   time.Duration

	// Time source, defaults to time.Now
	// Override in tests only
	Now func() time.Time
}

// TokenCodec mints and verifies signed scoped tokens
// Tokens are self describing: subject, scope, issued at and expiry are embedded
type TokenCodec struct {
	key string
	alg jwt.SigningMethod
	now func() time.Time

	accessTTL  time.Duration
	refreshTTL time.Duration
	emailTTL   time.Duration
}

func NewTokenCodec(cfg CodecConfig) (*TokenCodec, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	if !allowedSigningMethods[cfg.Alg] {
		return nil, fmt.Errorf("signing method %q is not allowed", cfg.Alg)
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTTL, defaultAccessTTL)
	setDefaultDuration(&cfg.RefreshTTL, defaultRefreshTTL)
	setDefaultDuration(&cfg.EmailTTL, defaultEmailTokenTTL)

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &TokenCodec{
		key:        cfg.SecretKey,
		alg:        jwt.GetSigningMethod(cfg.Alg),
		now:        cfg.Now,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		emailTTL:   cfg.EmailTTL,
	}, nil
}

// Mint a signed token for the subject with the scope lifetime
func (c *TokenCodec) Mint(subject string, scope Scope) (models.IssuedToken, error) {
	now := c.now().Truncate(time.Second)
	expiresAt := now.Add(c.ttlForScope(scope))

	token := jwt.NewWithClaims(
		c.alg,
		TokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				Subject:   subject,
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(expiresAt),
			},
			Scope: scope,
		},
	)

	signed, err := token.SignedString([]byte(c.key))
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("error while signing token. Err: %w", err)
	}

	return models.IssuedToken{Value: signed, ExpiresAt: expiresAt}, nil
}

// Verify checks signature, expiry and scope and returns the embedded subject
// Fails with exactly one of apperrors.ErrTokenSignatureInvalid,
// apperrors.ErrTokenExpired or apperrors.ErrTokenScopeInvalid
func (c *TokenCodec) Verify(tokenString string, scope Scope) (subject string, err error) {
	claims := &TokenClaims{}

	_, err = jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (any, error) { return []byte(c.key), nil },
		jwt.WithValidMethods([]string{c.alg.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)

	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", apperrors.ErrTokenExpired
	default:
		// Malformed tokens and wrong signatures look the same to the client
		return "", apperrors.ErrTokenSignatureInvalid
	}

	if claims.Scope != scope {
		return "", apperrors.ErrTokenScopeInvalid
	}

	if claims.Subject == "" {
		return "", apperrors.ErrTokenSignatureInvalid
	}

	return claims.Subject, nil
}

func (c *TokenCodec) ttlForScope(scope Scope) time.Duration {
	switch scope {
	case ScopeRefresh:
		return c.refreshTTL
	case ScopeEmail:
		return c.emailTTL
	default:
		return c.accessTTL
	}
}
