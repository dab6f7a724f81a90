package contract

import "errors"

var (
	ErrModelInvoke      = errors.New("model invoke failed")
	ErrSchemaViolation  = errors.New("model response violates schema")
	ErrPromptMissing    = errors.New("required prompt is missing")
	ErrValidation       = errors.New("validation failed")
	ErrDocumentNotFound = errors.New("document not found")
	ErrToolNotFound     = errors.New("tool not found")
)
