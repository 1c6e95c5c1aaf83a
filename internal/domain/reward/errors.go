package reward

import "errors"

var (
	ErrDuplicateEvent = errors.New("bonus event already processed")
	ErrInvalidEvent   = errors.New("invalid bonus event")
)
