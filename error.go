package mediarouter

import (
	"errors"
	"fmt"
)

var (
	ErrInternal             = errors.New("media: internal storage error")
	ErrInvalidConfig        = errors.New("media: invalid configuration")
	ErrInvalidKey           = errors.New("media: invalid key name")
	ErrNotFound             = errors.New("media: file not found")
	ErrInvalidProvider      = errors.New("media: invalid storage provider")
	ErrRecordNotFound       = errors.New("media: record not found")
	ErrTransformFailed      = errors.New("media: transform failed")
	ErrUnsupportedMediaType = errors.New("media: unsupported media type")
	ErrInvalidInput         = errors.New("media: invalid input")
)

// TransformError is returned when a file cannot be turned into upload-ready artifacts.
// It always matches ErrTransformFailed.
type TransformError struct {
	Op  string
	Err error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("media: transform %s: %v", e.Op, e.Err)
}

func (e *TransformError) Unwrap() []error {
	return []error{ErrTransformFailed, e.Err}
}

// ProviderError carries the provider slot a backend failure happened on.
type ProviderError struct {
	Provider ProviderID
	Op       string
	Key      string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("media: %s on %s: %v", e.Op, e.Provider, e.Err)
	}
	return fmt.Sprintf("media: %s %q on %s: %v", e.Op, e.Key, e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// UploadError describes a failed upload. RollbackErr is set when the
// cleanup of already written objects failed as well.
type UploadError struct {
	Stage       Stage
	Provider    ProviderID
	Err         error
	RollbackErr error
}

func (e *UploadError) Error() string {
	msg := fmt.Sprintf("media: upload failed while %s: %v", e.Stage, e.Err)
	if e.RollbackErr != nil {
		msg += fmt.Sprintf(" (rollback on %s failed: %v)", e.Provider, e.RollbackErr)
	}
	return msg
}

func (e *UploadError) Unwrap() []error {
	if e.RollbackErr == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.RollbackErr}
}

// UserMessage translates an error into a message that is safe to show to end users.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedMediaType):
		return "This file type is not supported."
	case errors.Is(err, ErrTransformFailed):
		return "The file could not be read. Please check it and try again."
	case errors.Is(err, ErrInvalidInput):
		return "The upload request is invalid."
	case errors.Is(err, ErrRecordNotFound), errors.Is(err, ErrNotFound):
		return "Media not found."
	case errors.Is(err, ErrInvalidProvider):
		return "The media storage location is unknown."
	}

	var uploadErr *UploadError
	if errors.As(err, &uploadErr) {
		switch uploadErr.Stage {
		case StageUploading:
			return "Upload failed. Please try again."
		case StageSavingMetadata:
			return "The media could not be saved. Please try again."
		}
	}

	return "Something went wrong. Please try again."
}
