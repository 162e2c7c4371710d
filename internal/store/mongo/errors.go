package mongo

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrDuplicateEmail       = errors.New("email already registered")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrEntryNotFound        = errors.New("entry not found")
)
