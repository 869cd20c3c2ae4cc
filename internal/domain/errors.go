package domain

import (
	"fmt"
)

// ConfigurationError reports an invalid position or rebalancer setting.
// It is raised before any venue call is made.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// PoolNotFoundError is returned when the venue has no data for a pool.
type PoolNotFoundError struct {
	PoolID PoolID
}

func (e *PoolNotFoundError) Error() string {
	return fmt.Sprintf("pool %s not found", e.PoolID)
}

// TransactionError wraps a failed submission or confirmation of an on-chain operation.
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s transaction failed", e.Op)
	}
	return fmt.Sprintf("%s transaction failed: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

// StageError tags an error with the rebalance stage it happened in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("rebalance failed at %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
