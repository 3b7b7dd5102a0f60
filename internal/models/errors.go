package models

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable machine-readable error messages. Callers branch on these, so
// they are enums, never free-form sentences.
const (
	ErrTaskNotFound            = "TASK_NOT_FOUND"
	ErrClassificationNotFound  = "CLASSIFICATION_NOT_FOUND"
	ErrTooFewAnnotations       = "TOO_FEW_ANNOTATIONS"
	ErrTooMuchAnnotations      = "TOO_MUCH_ANNOTATIONS"
	ErrRelationSrcNotFound     = "RELATION_SRC_NOT_FOUND"
	ErrRelationDestNotFound    = "RELATION_DEST_NOT_FOUND"
	ErrRelationLabelNotFound   = "RELATION_LABEL_NOT_FOUND"
	ErrTooFewRelations         = "TOO_FEW_RELATIONS_ANNOTATED"
	ErrTooManyRelations        = "TOO_MANY_RELATIONS_ANNOTATED"
	ErrProjectNotFound         = "PROJECT_NOT_FOUND"
	ErrItemNotFound            = "ITEM_NOT_FOUND"
	ErrFilterFieldNotFound     = "FILTER_FIELD_NOT_FOUND"
	ErrFilterOperatorNotFound  = "FILTER_OPERATOR_NOT_FOUND"
	ErrDuplicateUUID           = "DUPLICATE_UUID"
)

// APIError is the user-facing error payload: a stable enum message plus
// optional free-form details. Code is the HTTP-equivalent status.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Infos   string `json:"infos,omitempty"`
}

func (e *APIError) Error() string {
	if e.Infos == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Infos)
}

// NewValidationError builds a client-caused, non-retryable 400.
func NewValidationError(message, infos string) *APIError {
	return &APIError{Code: http.StatusBadRequest, Message: message, Infos: infos}
}

// NewNotFoundError builds a 404 for an absent referenced resource.
func NewNotFoundError(message, infos string) *APIError {
	return &APIError{Code: http.StatusNotFound, Message: message, Infos: infos}
}

// NewDuplicateError builds a 409 so import tooling can branch on
// duplicate identities.
func NewDuplicateError(message, infos string) *APIError {
	return &APIError{Code: http.StatusConflict, Message: message, Infos: infos}
}

// AsAPIError unwraps err into an *APIError when it is one.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
