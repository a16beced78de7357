package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

var (
	ErrInvalidConfig      = errors.New("storage: bucket and region are required")
	ErrLoadConfig         = errors.New("storage: failed to load AWS configuration")
	ErrInvalidObjectID    = errors.New("storage: invalid object id")
	ErrDuplicateObjectID  = errors.New("storage: duplicate object id")
	ErrAccessDenied       = errors.New("storage: access denied")
	ErrBucketNotFound     = errors.New("storage: bucket not found")
	ErrServiceUnavailable = errors.New("storage: service unavailable")
	ErrOperationCanceled  = errors.New("storage: operation canceled")
	ErrOperationFailed    = errors.New("storage: operation failed")

	ErrTooManyFiles    = errors.New("storage: too many files")
	ErrFileTooLarge    = errors.New("storage: file too large")
	ErrUnsupportedType = errors.New("storage: unsupported file type")
	ErrEmptyFile       = errors.New("storage: empty file")
)

func classify(err error, op string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", ErrOperationCanceled, op, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return fmt.Errorf("%w: %s", ErrAccessDenied, op)
		case "NoSuchBucket":
			return ErrBucketNotFound
		case "SlowDown", "ServiceUnavailable":
			return fmt.Errorf("%w: %s", ErrServiceUnavailable, op)
		}
	}
	return fmt.Errorf("%w: %s: %w", ErrOperationFailed, op, err)
}
