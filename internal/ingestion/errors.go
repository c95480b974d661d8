package ingestion

import "fmt"

// UnsupportedFormatError is returned for files whose extension has no parser.
type UnsupportedFormatError struct {
	Filename  string
	Extension string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Extension == "" {
		return fmt.Sprintf("unsupported file type: %s has no extension", e.Filename)
	}
	return fmt.Sprintf("unsupported file type: %s", e.Extension)
}
