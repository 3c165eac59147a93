package repository

import "time"

// Unsubscribe stops a live document subscription. It is safe to call more than once
// and does not cancel a callback that is already running.
type Unsubscribe func()

// ErrorHandler receives failures of a live subscription.
type ErrorHandler func(err error)

// ReplicatedWrite is a single last-writer-wins update of a replicated profile field.
// Version orders competing writes; WrittenAt is recorded as the profile's lastUpdated.
// Force skips the version comparison but still records Version.
type ReplicatedWrite struct {
	UserID    string
	Field     string
	Value     any
	Version   time.Time
	WrittenAt time.Time
	Force     bool
}
