package server

const (
	HealthEndpoint  = "/health"
	MetricsEndpoint = "/metrics"
	BatchesPath     = "/batches"
)

// Responses are generated via structs and use lowerCamelCase JSON fields.

const (
	StatusHealthy = "healthy"
	StatusPending = "pending"
)

const (
	MessageJobQueued          = "Batch queued for processing"
	MessageInvalidRequestBody = "Invalid request body"
	MessageBatchEmpty         = "You didn't provide any VAT numbers to check!"
	MessageBatchInProgress    = "A batch is already running; wait for it to finish"
	MessageInvalidToken       = "Invalid token"
)

const (
	ErrorCodeInvalidRequestBody = "invalid_request_body"
	ErrorCodeValidationFailed   = "validation_failed"
	ErrorCodeBatchInProgress    = "batch_in_progress"
)

const (
	JobNotFoundMessageFmt = "Job %s not found"
)
