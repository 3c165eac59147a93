package mapping

import (
	"github.com/eslsoft/quizstats/internal/entity"
	"github.com/eslsoft/quizstats/internal/usecase"
)

// SyncValueRequest carries one authoritative value to replicate.
type SyncValueRequest struct {
	UserID string `json:"userId"`
	Value  *int64 `json:"value" validate:"required,gte=0"`
}

// UserRequest targets a user; an empty id means the caller.
type UserRequest struct {
	UserID string `json:"userId"`
}

type SyncOutcomeResponse struct {
	UserID  string `json:"userId"`
	Outcome string `json:"outcome"`
}

type SyncReport struct {
	UserID        string `json:"userId"`
	XP            int64  `json:"xp"`
	Hearts        int64  `json:"hearts"`
	XPOutcome     string `json:"xpOutcome"`
	HeartsOutcome string `json:"heartsOutcome"`
}

type ProgressUpdate struct {
	UserID           string `json:"userId"`
	TotalXP          int64  `json:"totalXP"`
	HeartsCount      int64  `json:"heartsCount"`
	CompletedQuizzes int    `json:"completedQuizzes"`
	UpdateTime       string `json:"updateTime"`
}

type Profile struct {
	UserID                  string    `json:"userId"`
	Email                   string    `json:"email,omitempty"`
	DisplayName             string    `json:"displayName,omitempty"`
	CreatedAt               string    `json:"createdAt,omitempty"`
	XPPoints                *int64    `json:"xpPoints,omitempty"`
	Lives                   *int64    `json:"lives,omitempty"`
	TotalGoodAnswers        *int64    `json:"totalGoodAnswers,omitempty"`
	TotalQuestionsAttempted *int64    `json:"totalQuestionsAttempted,omitempty"`
	QuizDurations           []float64 `json:"quizDurations,omitempty"`
	TotalQuizzes            *int64    `json:"totalQuizzes,omitempty"`
	LastUpdated             string    `json:"lastUpdated,omitempty"`
}

func ToSyncReport(in usecase.SyncReport) SyncReport {
	return SyncReport{
		UserID:        in.UserID,
		XP:            in.XP,
		Hearts:        in.Hearts,
		XPOutcome:     string(in.XPOutcome),
		HeartsOutcome: string(in.HeartsOutcome),
	}
}

func ToProgressUpdate(in *entity.ProgressDocument, completed int) *ProgressUpdate {
	return &ProgressUpdate{
		UserID:           in.UserID,
		TotalXP:          in.XP(),
		HeartsCount:      in.Hearts(),
		CompletedQuizzes: completed,
		UpdateTime:       formatTime(in.UpdateTime),
	}
}

func ToProfile(in *entity.ProfileDocument) *Profile {
	if in == nil {
		return nil
	}
	return &Profile{
		UserID:                  in.UserID,
		Email:                   in.Email,
		DisplayName:             in.DisplayName,
		CreatedAt:               formatTimestamp(in.CreatedAt),
		XPPoints:                in.XPPoints,
		Lives:                   in.Lives,
		TotalGoodAnswers:        in.TotalGoodAnswers,
		TotalQuestionsAttempted: in.TotalQuestionsAttempted,
		QuizDurations:           in.QuizDurations,
		TotalQuizzes:            in.TotalQuizzes,
		LastUpdated:             formatTimestamp(in.LastUpdated),
	}
}

func formatTimestamp(ts entity.Timestamp) string {
	if !ts.Valid {
		return ""
	}
	return entity.FormatISO(ts.Time)
}
