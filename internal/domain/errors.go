package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched by every missing-record error.
	ErrNotFound = errors.New("not found")
	// ErrValidation is matched by every malformed-input error.
	ErrValidation = errors.New("validation failed")
	// ErrStorage is matched by every StorageError.
	ErrStorage = errors.New("storage failure")

	ErrUserNotFound             = fmt.Errorf("user %w", ErrNotFound)
	ErrQuestionNotFound         = fmt.Errorf("question %w", ErrNotFound)
	ErrLessonNotFound           = fmt.Errorf("lesson %w", ErrNotFound)
	ErrAnswerNotFound           = fmt.Errorf("answer %w", ErrNotFound)
	ErrLeaderboardEntryNotFound = fmt.Errorf("leaderboard entry %w", ErrNotFound)
	ErrProgressNotFound         = fmt.Errorf("progress record %w", ErrNotFound)

	// ErrEmptySubmission rejects blank submitted values before any write.
	ErrEmptySubmission = fmt.Errorf("%w: submitted answer is empty", ErrValidation)
	// ErrMissingID rejects blank user or question ids.
	ErrMissingID = fmt.Errorf("%w: user_id and question_id are required", ErrValidation)
	// ErrInvalidProgressRange rejects ranges outside 0..100 or with min > max.
	ErrInvalidProgressRange = fmt.Errorf("%w: progress range must satisfy 0 <= min <= max <= 100", ErrValidation)
)

// StorageError wraps a failure from an underlying store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// WrapStorage returns nil for nil errors, passes domain errors through and wraps the rest.
func WrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) || errors.Is(err, ErrStorage) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
