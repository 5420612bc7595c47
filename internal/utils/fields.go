package utils

// Structured log field names shared across packages.
const (
	FieldComponent = "component"
	FieldJobID     = "job_id"
	FieldVATNumber = "vat_number"
	FieldPosition  = "position"
	FieldTotal     = "total"
	FieldAttempt   = "attempt"
	FieldKind      = "error_kind"
	FieldToken     = "error_token"
	FieldOutcome   = "outcome"
	FieldPath      = "path"
	FieldHost      = "host"
	FieldPort      = "port"
)
