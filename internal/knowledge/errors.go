package knowledge

import (
	"errors"
	"fmt"
)

// ErrNoValidContent is returned by Combine when nothing processed successfully.
var ErrNoValidContent = errors.New("no valid content to combine")

// ErrUnprocessed is returned when exporting a document that did not combine.
var ErrUnprocessed = errors.New("cannot export unprocessed content")

// ProcessingError records why one item or the combine step failed.
type ProcessingError struct {
	ContentID string
	Message   string
	Cause     error
}

func (e *ProcessingError) Error() string {
	prefix := "processing failed"
	if e.ContentID != "" {
		prefix = fmt.Sprintf("processing %s failed", e.ContentID)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *ProcessingError) Unwrap() error {
	return e.Cause
}
