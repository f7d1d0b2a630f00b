package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/sma-scheduling-api/pkg/errors"
	"github.com/noah-isme/sma-scheduling-api/pkg/validation"
)

// transactor runs a unit of work in one transaction carried by ctx.
type transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// inlineTransactor executes the unit of work directly. Used when no database transactor is wired.
type inlineTransactor struct{}

func (inlineTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type subjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type rosterCounter interface {
	CountActiveByClass(ctx context.Context, classID string) (int, error)
}

func internalError(err error, message string) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// validationError carries the translated per-field messages in Details.
func validationError(err error, message string) *appErrors.Error {
	appErr := appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	if fields := validation.Fields(err); len(fields) > 0 {
		appErr.Details = make(map[string]interface{}, len(fields))
		for field, msg := range fields {
			appErr.Details[field] = msg
		}
	}
	return appErr
}

// lookupError turns sql.ErrNoRows into ENTITY_NOT_FOUND and anything else into INTERNAL_ERROR.
func lookupError(err error, kind, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.NotFound(kind, id)
	}
	return internalError(err, "failed to load "+kind)
}

func paginate(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}

func defaultValidator(v *validator.Validate) *validator.Validate {
	if v == nil {
		return validation.Validator()
	}
	return v
}
