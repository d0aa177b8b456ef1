package bing

import (
	"errors"
	"fmt"
)

// ErrNoImagesFound reports a well-formed archive response with an empty image
// list.
var ErrNoImagesFound = errors.New("image archive returned no images")

// TransportError wraps a network, HTTP, or response-decoding failure. It is
// never fatal; callers schedule a retry and keep the current picture.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IOError reports a local filesystem failure while persisting a download.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("write image to %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
