package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrAuditInProgress is returned when an audit is requested while one is running
	ErrAuditInProgress = errors.New("ledger audit already in progress")
)
