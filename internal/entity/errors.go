package entity

import "errors"

// Domain errors for quiz progress, profiles and derived statistics.
var (
	ErrNotAuthenticated      = errors.New("user not authenticated")
	ErrInvalidUserID         = errors.New("invalid user ID")
	ErrPermissionDenied      = errors.New("permission denied for user")
	ErrProfileNotFound       = errors.New("profile document not found")
	ErrProgressNotFound      = errors.New("progress document not found")
	ErrInvalidBadgeCondition = errors.New("invalid badge condition")
)
