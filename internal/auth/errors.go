package auth

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("auth: not found")
	ErrAlreadyExists  = errors.New("auth: already exists")
	ErrInvalidInput   = errors.New("auth: invalid input")
	ErrUnauthorized   = errors.New("auth: unauthorized")
	ErrForbidden      = errors.New("auth: forbidden")
	ErrInvalidToken   = errors.New("auth: invalid token")
	ErrTokenExpired   = errors.New("auth: token expired")
	ErrRefreshExpired = errors.New("auth: refresh token expired")

	// ErrTenantInactive is an ErrUnauthorized: a suspended or pending tenant
	// denies login without revealing more than necessary.
	ErrTenantInactive = fmt.Errorf("%w: tenant is not active", ErrUnauthorized)
)
