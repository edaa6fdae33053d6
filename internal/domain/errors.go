package domain

import "errors"

// Sentinel errors used throughout the application. Handlers translate
// these to HTTP status codes via a single mapError function.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict: request_id already in flight for this channel")
	ErrInvalidRequestID  = errors.New("request_id must be a UUID")
	ErrInvalidClientID   = errors.New("client_id must be a UUID")
	ErrNoChannels        = errors.New("at least one channel must be specified")
	ErrUnknownChannel    = errors.New("channel is not registered with the pipeline")
	ErrInvalidRecipient  = errors.New("recipient is missing required fields for the channel")
	ErrInvalidContent    = errors.New("content is missing required fields for the channel")
	ErrBatchTooLarge     = errors.New("batch exceeds maximum size")
	ErrBatchEmpty        = errors.New("batch must contain at least one recipient")
	ErrNotRetryable      = errors.New("notification is not in a failed state")
	ErrTransactionFailed = errors.New("store transaction failed")
)
