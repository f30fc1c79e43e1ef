package rendition

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrTemplateNotFound = errors.New(`template not found`)
var ErrInvalidArguments = errors.New(`please provide the template path and name`)
var ErrRendererNotRegistered = errors.New(`renderer not registered`)

// Used for exposing a desired status code when writing the response to an HTTP request.
type Codeable interface {
	Code() int
}

type CodeableError struct {
	msg  string
	code int
	err  error
}

func (self *CodeableError) Code() int {
	if self.code == 0 {
		return http.StatusInternalServerError
	} else {
		return self.code
	}
}

func (self *CodeableError) Error() string {
	if self.msg == `` && self.err != nil {
		return self.err.Error()
	}

	return self.msg
}

func (self *CodeableError) Unwrap() error {
	return self.err
}

func ErrorCode(msg string, code int) error {
	return &CodeableError{
		msg:  msg,
		code: code,
	}
}

// Wrap an existing error such that it reports the given status code.  The original
// error remains reachable via errors.Is and errors.As.
func WithCode(err error, code int) error {
	if err == nil {
		return nil
	}

	var existing *CodeableError

	if errors.As(err, &existing) && existing.code == code {
		return err
	}

	return &CodeableError{
		err:  err,
		code: code,
	}
}

// Return the HTTP status code carried by the given error, or the fallback if
// the error does not carry one.
func StatusCode(err error, fallback int) int {
	var codeable Codeable

	if errors.As(err, &codeable) {
		return codeable.Code()
	}

	return fallback
}

// Logged when a renderer is registered for an extension that already has one.
// The existing renderer is kept.
type RendererConflictError struct {
	Ext string
}

func (self *RendererConflictError) Error() string {
	return fmt.Sprintf("%q has been already registered", self.Ext)
}
