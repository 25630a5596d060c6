package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/amizuno/winscope/internal/types"
)

// ErrRecordNotFound indicates no pipeline record exists for an identity
type ErrRecordNotFound struct {
	ID string
}

func (e *ErrRecordNotFound) Error() string {
	return fmt.Sprintf("pipeline record not found: %s", e.ID)
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var notFound *ErrRecordNotFound
	var invalid *ErrValidation
	var transition *types.InvalidTransitionError
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.As(err, &transition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
