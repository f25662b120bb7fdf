package provider

import (
	"errors"
	"fmt"
)

// Error categories. Match them with errors.Is; use errors.As on the typed
// errors below for the details.
var (
	ErrInvalidIndex    = errors.New("invalid stream index")
	ErrWrongStreamKind = errors.New("wrong stream kind")
	ErrBackend         = errors.New("backend failure")
)

// IndexError reports a stream index outside the container's stream list.
type IndexError struct {
	Index int
	Path  string
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %d is not in the file %s", e.Index, e.Path)
}

func (e *IndexError) Is(target error) bool {
	return target == ErrInvalidIndex
}

// StreamKindError reports a stream that exists but is not a video stream.
type StreamKindError struct {
	Index int
	Kind  StreamKind
}

// Label is the textual kind: audio, data, subtitle, attachment, nb or unknown.
func (e *StreamKindError) Label() string {
	return e.Kind.String()
}

func (e *StreamKindError) Error() string {
	return fmt.Sprintf("index %d is not a video stream, it is an %q stream", e.Index, e.Label())
}

func (e *StreamKindError) Is(target error) bool {
	return target == ErrWrongStreamKind
}

// BackendError wraps a failure of the decoding backend. Its message is the
// backend's own message.
type BackendError struct {
	Op   string
	Path string
	Err  error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func (e *BackendError) Is(target error) bool {
	return target == ErrBackend
}

func backendError(op, path string, err error) error {
	return &BackendError{Op: op, Path: path, Err: err}
}
