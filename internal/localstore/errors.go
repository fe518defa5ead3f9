package localstore

import "github.com/helpmebuyapp/helpmebuy/internal/model"

// storeError reports a failed local store operation. It matches both
// model.ErrLocalStore and the underlying cause.
type storeError struct {
	op  string
	err error
}

func (e *storeError) Error() string {
	return "failed to " + e.op + ": " + e.err.Error()
}

func (e *storeError) Unwrap() []error {
	return []error{model.ErrLocalStore, e.err}
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &storeError{op: op, err: err}
}
