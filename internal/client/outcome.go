package client

import (
	"encoding/json"

	appErrors "github.com/itqan-app/itqan-console/pkg/errors"
)

// FailureKind classifies why a pipeline call did not succeed.
type FailureKind string

const (
	// FailureNone marks a successful outcome.
	FailureNone FailureKind = ""
	// FailureRejected is a logical failure inside a 2xx envelope, e.g.
	// "entity not in pending state".
	FailureRejected FailureKind = "rejected"
	// FailureValidation is an HTTP 422 with field-level messages.
	FailureValidation FailureKind = "validation"
	// FailureUnauthenticated is an HTTP 401.
	FailureUnauthenticated FailureKind = "unauthenticated"
	// FailureNotFound is an HTTP 404.
	FailureNotFound FailureKind = "not_found"
	// FailureTransport is any other non-2xx status.
	FailureTransport FailureKind = "transport"
	// FailureNetwork means no response reached the console at all.
	FailureNetwork FailureKind = "network_error"
)

// Outcome is the uniform result of every pipeline call. It is created per
// call and discarded once the caller consumed it; the pipeline never
// returns a bare error.
type Outcome struct {
	Success     bool
	Kind        FailureKind
	HTTPStatus  int
	Message     string
	Payload     json.RawMessage
	FieldErrors map[string]string
}

// Decode unmarshals the payload into dest.
func (o *Outcome) Decode(dest interface{}) error {
	if len(o.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(o.Payload, dest)
}

// Err maps a failed outcome onto the console error taxonomy. Successful
// outcomes yield nil.
func (o *Outcome) Err() error {
	if o == nil || o.Success {
		return nil
	}
	var base *appErrors.Error
	switch o.Kind {
	case FailureRejected:
		base = appErrors.ErrRejected
	case FailureValidation:
		base = appErrors.ErrValidation
	case FailureUnauthenticated:
		base = appErrors.ErrUnauthenticated
	case FailureNotFound:
		base = appErrors.ErrNotFound
	case FailureNetwork:
		base = appErrors.ErrNetwork
	default:
		base = appErrors.ErrTransport
	}
	err := appErrors.Clone(base, o.Message)
	if o.HTTPStatus != 0 {
		err.Status = o.HTTPStatus
	}
	return err
}

func success(status int, payload json.RawMessage, message string) *Outcome {
	return &Outcome{Success: true, HTTPStatus: status, Payload: payload, Message: message}
}

func failure(kind FailureKind, status int, message string) *Outcome {
	return &Outcome{Kind: kind, HTTPStatus: status, Message: message}
}
