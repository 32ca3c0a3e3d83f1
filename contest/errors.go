package contest

import (
	"errors"
	"fmt"
)

var (
	ErrConfigurationMissing = errors.New("contest settings have not been written yet")
	ErrQuotaExhausted       = errors.New("no votes or refreshes remaining today")
	ErrCredentialMissing    = errors.New("content hosting credential is not configured")
	ErrInvalidCredential    = errors.New("content hosting credential is invalid")
	ErrVotingClosed         = errors.New("voting is not open")
	ErrInvalidWindow        = errors.New("voting end time must be after the start time")
)

// RemoteOperationError marks a failed call to storage, identity or hosting.
// These are transient: nothing retries them, the caller re-triggers the action.
type RemoteOperationError struct {
	Op  string
	Err error
}

func (e *RemoteOperationError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *RemoteOperationError) Unwrap() error {
	return e.Err
}

func Remote(op string, err error) error {
	if err == nil {
		return nil
	}
	return &RemoteOperationError{Op: op, Err: err}
}

func IsRemote(err error) bool {
	var remote *RemoteOperationError
	return errors.As(err, &remote)
}

// VotingClosedError carries the window status that blocked the action.
type VotingClosedError struct {
	Status VotingStatus
}

func (e *VotingClosedError) Error() string {
	return fmt.Sprintf("voting is not open: %s", e.Status)
}

func (e *VotingClosedError) Is(target error) bool {
	return target == ErrVotingClosed
}
