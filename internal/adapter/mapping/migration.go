package mapping

import (
	"github.com/samber/lo"

	"github.com/eslsoft/quizstats/internal/entity"
	"github.com/eslsoft/quizstats/internal/usecase"
)

type EnsureFieldsResponse struct {
	Created     bool     `json:"created"`
	AddedFields []string `json:"addedFields"`
}

type BackfillResponse struct {
	TotalQuizzes int `json:"totalQuizzes"`
}

type MigrationResponse struct {
	EnsureFieldsResponse
	BackfilledQuizzes int `json:"backfilledQuizzes"`
}

type DataIssue struct {
	Location string `json:"location"`
	Message  string `json:"message"`
}

type Diagnosis struct {
	UserID         string      `json:"userId"`
	Email          string      `json:"email,omitempty"`
	ProfileExists  bool        `json:"profileExists"`
	ProgressExists bool        `json:"progressExists"`
	Healthy        bool        `json:"healthy"`
	MissingFields  []string    `json:"missingFields"`
	Profile        *Profile    `json:"profile,omitempty"`
	TotalXP        *int64      `json:"totalXP,omitempty"`
	HeartsCount    *int64      `json:"heartsCount,omitempty"`
	DataIssues     []DataIssue `json:"dataIssues"`
}

func ToEnsureFields(in usecase.EnsureFieldsResult) EnsureFieldsResponse {
	return EnsureFieldsResponse{
		Created:     in.Created,
		AddedFields: lo.Ternary(in.AddedFields == nil, []string{}, in.AddedFields),
	}
}

func ToMigration(in usecase.MigrationResult) *MigrationResponse {
	return &MigrationResponse{
		EnsureFieldsResponse: ToEnsureFields(in.EnsureFieldsResult),
		BackfilledQuizzes:    in.BackfilledQuizzes,
	}
}

func ToDiagnosis(in *entity.Diagnosis) *Diagnosis {
	out := &Diagnosis{
		UserID:         in.UserID,
		Email:          in.Email,
		ProfileExists:  in.ProfileExists,
		ProgressExists: in.ProgressExists,
		Healthy:        in.Healthy(),
		MissingFields:  lo.Ternary(in.MissingFields == nil, []string{}, in.MissingFields),
		Profile:        ToProfile(in.Profile),
		DataIssues: lo.Map(in.DataIssues, func(d entity.DataIssue, _ int) DataIssue {
			return DataIssue{Location: d.Location, Message: d.Message}
		}),
	}
	if in.Progress != nil {
		out.TotalXP = in.Progress.TotalXP
		out.HeartsCount = in.Progress.HeartsCount
	}
	return out
}
