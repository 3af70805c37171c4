package reports

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned for a zero batch date or a non-positive cutoff.
var ErrInvalidInput = errors.New("invalid input")

// DataAccessError reports that the store was unreachable or the query failed.
type DataAccessError struct {
	Op  string
	Err error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("data access: %s: %v", e.Op, e.Err)
}

func (e *DataAccessError) Unwrap() error { return e.Err }

// DataShapeError reports a result set that does not have the expected shape.
type DataShapeError struct {
	Column string
	Row    int
	Reason string
}

func (e *DataShapeError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("data shape: row %d: column %q %s", e.Row, e.Column, e.Reason)
	}
	return fmt.Sprintf("data shape: column %q %s", e.Column, e.Reason)
}

// DocumentWriteError reports that the output document could not be written.
type DocumentWriteError struct {
	Path string
	Err  error
}

func (e *DocumentWriteError) Error() string {
	return fmt.Sprintf("document write %s: %v", e.Path, e.Err)
}

func (e *DocumentWriteError) Unwrap() error { return e.Err }

// ErrorKind names the error class of err for logs and API responses.
func ErrorKind(err error) string {
	var (
		access *DataAccessError
		shape  *DataShapeError
		write  *DocumentWriteError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &access):
		return "DataAccessError"
	case errors.As(err, &shape):
		return "DataShapeError"
	case errors.As(err, &write):
		return "DocumentWriteError"
	case errors.Is(err, ErrInvalidInput):
		return "InvalidInput"
	default:
		return "Error"
	}
}
