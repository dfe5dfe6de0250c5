package common

import (
	"fmt"
	"strings"
)

// ErrorKind classifies a DetailedError
type ErrorKind string

const (
	// TransportError connection refused, timeout, DNS failure...
	TransportError ErrorKind = "transport"
	// DecodeError the body is not JSON or does not have the expected shape
	DecodeError ErrorKind = "decode"
	// ProtocolError the remote API answered with an unexpected HTTP or API status
	ProtocolError ErrorKind = "protocol"
	// PersistenceError writing the export to disk or to a sink failed
	PersistenceError ErrorKind = "persistence"
)

// DetailedError carries as much diagnostic context as available for a failed step
type DetailedError struct {
	Kind            ErrorKind `json:"kind"`
	Status          int       `json:"status"`              // Http status code, 0 when no response was received
	APIStatus       *int      `json:"apiStatus,omitempty"` // status field of the LibreView envelope
	ID              string    `json:"id"`                  // run id, so a failure can be matched with the log
	Code            string    `json:"code"`
	Message         string    `json:"message"`
	InternalMessage string    `json:"-"` // underlying cause, only for logging
	RawBody         string    `json:"-"`
}

// SetInternalMessage set the internal message that we will use for logging
func (d DetailedError) SetInternalMessage(internal error) DetailedError {
	d.InternalMessage = internal.Error()
	return d
}

// WithAPIStatus returns a copy of the error holding the envelope status
func (d DetailedError) WithAPIStatus(status int) DetailedError {
	d.APIStatus = &status
	return d
}

func (d *DetailedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s error [%s]: %s", d.Kind, d.Code, d.Message)
	if d.Status != 0 {
		fmt.Fprintf(&b, " (http status %d)", d.Status)
	}
	if d.APIStatus != nil {
		fmt.Fprintf(&b, " (api status %d)", *d.APIStatus)
	}
	if d.InternalMessage != "" {
		fmt.Fprintf(&b, ": %s", d.InternalMessage)
	}
	return b.String()
}

// Is matches on kind and code so that errors.Is can be used against the templates
func (d *DetailedError) Is(target error) bool {
	t, ok := target.(*DetailedError)
	if !ok {
		return false
	}
	return d.Kind == t.Kind && d.Code == t.Code
}
