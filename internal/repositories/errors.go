package repositories

import "errors"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrFundNotFound      = errors.New("fund not found")
	ErrModeratorNotFound = errors.New("moderator not found")
	ErrDuplicateFeedback = errors.New("duplicate feedback event")
	ErrCacheMiss         = errors.New("cache miss")
)
