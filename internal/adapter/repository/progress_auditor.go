package repository

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/eslsoft/quizstats/internal/entity"
	"github.com/eslsoft/quizstats/internal/infrastructure/docstore"
	"github.com/eslsoft/quizstats/internal/repository"
)

//go:embed schemas/progress.schema.json
var progressSchemaJSON []byte

const progressSchemaURL = "schema://quizstats/progress.schema.json"

type progressAuditor struct {
	store      docstore.Store
	collection string
	schema     *jsonschema.Schema
	printer    *message.Printer
}

// NewProgressAuditor compiles the embedded progress schema.
func NewProgressAuditor(store docstore.Store, collections Collections) (repository.ProgressAuditor, error) {
	schema, err := compileProgressSchema()
	if err != nil {
		return nil, err
	}
	return &progressAuditor{
		store:      store,
		collection: collections.withDefaults().Progress,
		schema:     schema,
		printer:    message.NewPrinter(language.English),
	}, nil
}

func compileProgressSchema() (*jsonschema.Schema, error) {
	var parsed any
	if err := json.Unmarshal(progressSchemaJSON, &parsed); err != nil {
		return nil, fmt.Errorf("parse progress schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(progressSchemaURL, parsed); err != nil {
		return nil, fmt.Errorf("add progress schema: %w", err)
	}
	schema, err := c.Compile(progressSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile progress schema: %w", err)
	}
	return schema, nil
}

func (a *progressAuditor) Audit(ctx context.Context, userID string) ([]entity.DataIssue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap, err := a.store.Get(ctx, docstore.Doc(a.collection, userID))
	if err != nil {
		return nil, fmt.Errorf("audit progress: %w", translateStoreError(err, entity.ErrProgressNotFound))
	}
	if !snap.Exists {
		return nil, entity.ErrProgressNotFound
	}

	var issues []entity.DataIssue
	if err := a.schema.Validate(map[string]any(snap.Data)); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			return nil, fmt.Errorf("validate progress: %w", err)
		}
		issues = append(issues, a.flatten(ve)...)
	}
	issues = append(issues, timestampIssues(snap.Data)...)

	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Location < issues[j].Location })
	return issues, nil
}

// flatten reports the leaf causes, which name the offending values.
func (a *progressAuditor) flatten(ve *jsonschema.ValidationError) []entity.DataIssue {
	if len(ve.Causes) == 0 {
		return []entity.DataIssue{{
			Location: "/" + strings.Join(ve.InstanceLocation, "/"),
			Message:  ve.ErrorKind.LocalizedString(a.printer),
		}}
	}
	var issues []entity.DataIssue
	for _, cause := range ve.Causes {
		issues = append(issues, a.flatten(cause)...)
	}
	return issues
}

// timestampIssues finds attempt dates that are present but cannot be read as a
// point in time. The schema only checks their JSON type.
func timestampIssues(data map[string]any) []entity.DataIssue {
	var issues []entity.DataIssue
	eachMap(data, "difficulties", func(di int, d map[string]any) {
		eachMap(d, "categories", func(ci int, c map[string]any) {
			eachMap(c, "quizzes", func(qi int, q map[string]any) {
				ts := entity.ParseTimestamp(q["lastAttemptDate"])
				if ts.Present && !ts.Valid {
					issues = append(issues, entity.DataIssue{
						Location: fmt.Sprintf("/difficulties/%d/categories/%d/quizzes/%d/lastAttemptDate", di, ci, qi),
						Message:  fmt.Sprintf("unparseable timestamp %q", ts.String()),
					})
				}
			})
		})
	})
	return issues
}
