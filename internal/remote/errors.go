package remote

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/aws/smithy-go"

	"github.com/helpmebuyapp/helpmebuy/internal/model"
)

// Error represents a remote operation error with context about the call
// that failed. Every Error matches model.ErrRemote; errors caused by
// connectivity, timeouts or throttling also match model.ErrRemoteUnavailable.
type Error struct {
	// Op is the operation that failed (e.g., "put", "get", "scan")
	Op string

	// Table is the DynamoDB table name
	Table string

	// ID is the list id, zero for table-wide operations
	ID int

	// Err is the underlying error from the AWS SDK or the codec
	Err error

	unavailable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("dynamodb.%s %s id=%d: %v", e.Op, e.Table, e.ID, e.Err)
	}
	return fmt.Sprintf("dynamodb.%s %s: %v", e.Op, e.Table, e.Err)
}

// Unwrap returns the sentinels the error matches followed by the cause.
func (e *Error) Unwrap() []error {
	if e.unavailable {
		return []error{model.ErrRemote, model.ErrRemoteUnavailable, e.Err}
	}
	return []error{model.ErrRemote, e.Err}
}

func newError(op, table string, id int, err error) *Error {
	return &Error{
		Op:          op,
		Table:       table,
		ID:          id,
		Err:         err,
		unavailable: isUnavailable(err),
	}
}

// throttleCodes are service error codes treated as "try again later".
var throttleCodes = map[string]bool{
	"ThrottlingException":                    true,
	"ProvisionedThroughputExceededException": true,
	"RequestLimitExceeded":                   true,
	"ServiceUnavailable":                     true,
	"InternalServerError":                    true,
	"InternalFailure":                        true,
}

// isUnavailable classifies err as a connectivity-class failure.
func isUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}

	var canceled *smithy.CanceledError
	if errors.As(err, &canceled) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return throttleCodes[apiErr.ErrorCode()]
	}
	return false
}
