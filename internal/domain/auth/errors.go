package auth

import "errors"

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidToken    = errors.New("invalid or expired token")
	ErrCompanyRequired = errors.New("company_id claim is missing or invalid")
)
