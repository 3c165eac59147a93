package entity

import "time"

// Profile document field names, shared by the repository mapping and migrations.
const (
	FieldEmail                   = "email"
	FieldDisplayName             = "displayName"
	FieldCreatedAt               = "createdAt"
	FieldXPPoints                = "xpPoints"
	FieldLives                   = "lives"
	FieldTotalGoodAnswers        = "totalGoodAnswers"
	FieldTotalQuestionsAttempted = "totalQuestionsAttempted"
	FieldQuizDurations           = "quizDurations"
	FieldTotalQuizzes            = "totalQuizzes"
	FieldLastUpdated             = "lastUpdated"
)

// StatsCounterFields are the counters the metrics calculator expects on a profile.
var StatsCounterFields = []string{
	FieldTotalGoodAnswers,
	FieldTotalQuestionsAttempted,
	FieldQuizDurations,
	FieldTotalQuizzes,
}

// DefaultDisplayName is used when a profile is created for an identity without a name.
const DefaultDisplayName = "User"

// ProfileFields is a partial profile write keyed by document field name.
type ProfileFields map[string]any

// ProfileDocument holds the denormalized per-user aggregate counters.
// Nil counters are absent from the stored document, which is distinct from zero.
type ProfileDocument struct {
	UserID                  string
	Email                   string
	DisplayName             string
	CreatedAt               Timestamp
	XPPoints                *int64
	Lives                   *int64
	TotalGoodAnswers        *int64
	TotalQuestionsAttempted *int64
	QuizDurations           []float64
	TotalQuizzes            *int64
	LastUpdated             Timestamp
	XPPointsSyncedAt        time.Time
	LivesSyncedAt           time.Time
	UpdateTime              time.Time
}

// MissingCounters lists the stats counters absent from the profile, in
// StatsCounterFields order. A nil profile is missing all of them.
func (p *ProfileDocument) MissingCounters() []string {
	if p == nil {
		return append([]string(nil), StatsCounterFields...)
	}
	var missing []string
	if p.TotalGoodAnswers == nil {
		missing = append(missing, FieldTotalGoodAnswers)
	}
	if p.TotalQuestionsAttempted == nil {
		missing = append(missing, FieldTotalQuestionsAttempted)
	}
	if p.QuizDurations == nil {
		missing = append(missing, FieldQuizDurations)
	}
	if p.TotalQuizzes == nil {
		missing = append(missing, FieldTotalQuizzes)
	}
	return missing
}

// GoodAnswers returns the correct-answer counter, zero when absent.
func (p *ProfileDocument) GoodAnswers() int64 {
	return derefInt(p, func(p *ProfileDocument) *int64 { return p.TotalGoodAnswers })
}

// QuestionsAttempted returns the attempted-question counter, zero when absent.
func (p *ProfileDocument) QuestionsAttempted() int64 {
	return derefInt(p, func(p *ProfileDocument) *int64 { return p.TotalQuestionsAttempted })
}

// XP returns the replicated experience total, zero when absent.
func (p *ProfileDocument) XP() int64 {
	return derefInt(p, func(p *ProfileDocument) *int64 { return p.XPPoints })
}

// Durations returns the recorded quiz durations, never nil.
func (p *ProfileDocument) Durations() []float64 {
	if p == nil || p.QuizDurations == nil {
		return []float64{}
	}
	return p.QuizDurations
}

// SyncedAt returns the last replication version stored for a replicated field.
func (p *ProfileDocument) SyncedAt(field string) time.Time {
	if p == nil {
		return time.Time{}
	}
	switch field {
	case FieldXPPoints:
		return p.XPPointsSyncedAt
	case FieldLives:
		return p.LivesSyncedAt
	default:
		return time.Time{}
	}
}

// SyncVersionField names the companion field holding a replicated field's version.
func SyncVersionField(field string) string {
	return field + "SyncedAt"
}

// NewStatsProfile builds the zeroed profile created for an identity without one.
func NewStatsProfile(identity Identity, now time.Time) *ProfileDocument {
	zero := func() *int64 { v := int64(0); return &v }
	name := identity.DisplayName
	if name == "" {
		name = DefaultDisplayName
	}
	return &ProfileDocument{
		UserID:                  identity.UserID,
		Email:                   identity.Email,
		DisplayName:             name,
		CreatedAt:               NewTimestamp(now),
		TotalGoodAnswers:        zero(),
		TotalQuestionsAttempted: zero(),
		QuizDurations:           []float64{},
		TotalQuizzes:            zero(),
	}
}

func derefInt(p *ProfileDocument, get func(*ProfileDocument) *int64) int64 {
	if p == nil {
		return 0
	}
	if v := get(p); v != nil {
		return *v
	}
	return 0
}
