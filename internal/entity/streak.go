package entity

// StreakRecord is the consecutive-day activity summary owned by the streak subsystem.
type StreakRecord struct {
	UserID        string
	CurrentStreak int64
	BestStreak    int64
	LastActivity  Timestamp
}
