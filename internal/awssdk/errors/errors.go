package errors

import (
	goerrors "errors"
	"fmt"

	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// ConflictError indicates a uniqueness/conditional conflict; callers should not blindly retry.
type ConflictError struct{ Cause error }

func (e *ConflictError) Error() string { return fmt.Sprintf("conflict: %v", e.Cause) }
func (e *ConflictError) Unwrap() error { return e.Cause }

// RetryableError indicates the request may succeed on retry with backoff.
type RetryableError struct{ Cause error }

func (e *RetryableError) Error() string { return fmt.Sprintf("retryable: %v", e.Cause) }
func (e *RetryableError) Unwrap() error { return e.Cause }

// OpError is a generic wrapper for unexpected failures.
type OpError struct{ Cause error }

func (e *OpError) Error() string { return fmt.Sprintf("op error: %v", e.Cause) }
func (e *OpError) Unwrap() error { return e.Cause }

// Classify maps smithy errors from DynamoDB, CloudFormation and STS onto
// ConflictError, RetryableError or OpError. Errors that are already
// classified are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var (
		conflict  *ConflictError
		retryable *RetryableError
		op        *OpError
	)
	if goerrors.As(err, &conflict) || goerrors.As(err, &retryable) || goerrors.As(err, &op) {
		return err
	}
	var canceled *dbtypes.TransactionCanceledException
	if goerrors.As(err, &canceled) {
		return classifyCancellation(err, canceled.CancellationReasons)
	}
	var api smithy.APIError
	if goerrors.As(err, &api) {
		switch api.ErrorCode() {
		case "ConditionalCheckFailedException", "AlreadyExistsException":
			return &ConflictError{Cause: err}
		case "ProvisionedThroughputExceededException", "ThrottlingException", "Throttling",
			"RequestLimitExceeded", "TransactionInProgressException", "TransactionConflictException":
			return &RetryableError{Cause: err}
		}
	}
	return &OpError{Cause: err}
}

// classifyCancellation looks at the per-item reasons of a cancelled
// transaction. Only a failed condition is a conflict; throttling and
// contention with another transaction are retryable.
func classifyCancellation(err error, reasons []dbtypes.CancellationReason) error {
	retryable := false
	for _, r := range reasons {
		if r.Code == nil {
			continue
		}
		switch *r.Code {
		case "ConditionalCheckFailed":
			return &ConflictError{Cause: err}
		case "ThrottlingError", "ProvisionedThroughputExceeded", "TransactionConflict", "RequestLimitExceeded":
			retryable = true
		}
	}
	if retryable {
		return &RetryableError{Cause: err}
	}
	return &OpError{Cause: err}
}

// IsConflict reports whether err classifies as a ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return goerrors.As(Classify(err), &c)
}

// IsRetryable reports whether err classifies as a RetryableError.
func IsRetryable(err error) bool {
	var r *RetryableError
	return goerrors.As(Classify(err), &r)
}
