package domain

import "errors"

var (
	// Common domain errors
	ErrLinkParse             = errors.New("unrecognized message link")
	ErrCapabilityUnavailable = errors.New("no usable client for capability")
	ErrNotFound              = errors.New("source message not found")
	ErrTransferFailed        = errors.New("transfer failed")
	ErrQuotaExceeded         = errors.New("requested count exceeds quota")
	ErrAlreadyActive         = errors.New("user already has an active job")
	ErrNoActiveJob           = errors.New("no active job for user")
	ErrFlowNotActive         = errors.New("no conversation flow in progress")
	ErrInvalidArgument       = errors.New("invalid argument")
)
