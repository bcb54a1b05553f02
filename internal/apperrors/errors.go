package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")

	ErrEmailInvalid          = errors.New("email is invalid")
	ErrEmailNotConfirmed     = errors.New("email is not confirmed")
	ErrEmailAlreadyConfirmed = errors.New("email is already confirmed")
	ErrPasswordInvalid       = errors.New("password is invalid")

	ErrTokenSignatureInvalid = errors.New("token signature is invalid")
	ErrTokenExpired          = errors.New("token is expired")
	ErrTokenScopeInvalid     = errors.New("token scope is invalid")

	ErrUnauthorized        = errors.New("unauthorized")
	ErrVerificationFailed  = errors.New("verification failed")
	ErrTooManyRequests     = errors.New("too many requests")
	ErrStorageInconsistent = errors.New("storage returned inconsistent data")

	ErrContactNotFound = errors.New("contact not found")
)
