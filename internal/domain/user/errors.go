package user

import "errors"

var (
	ErrInvalidToken            = errors.New("invalid or missing access token")
	ErrUserIdentityMissing     = errors.New("token does not carry a user id")
	ErrManagerAccessRequired   = errors.New("manager access required")
	ErrInsufficientPermissions = errors.New("insufficient permissions")
)
