package repository

import (
	"errors"
	"fmt"

	"github.com/eslsoft/quizstats/internal/entity"
	"github.com/eslsoft/quizstats/internal/infrastructure/docstore"
)

// translateStoreError maps document store failures onto domain errors.
func translateStoreError(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, docstore.ErrNotFound):
		return notFound
	case errors.Is(err, docstore.ErrInvalidRef):
		return fmt.Errorf("%w: %v", entity.ErrInvalidUserID, err)
	default:
		return err
	}
}
