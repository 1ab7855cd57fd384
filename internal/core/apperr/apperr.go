// Package apperr defines the typed errors surfaced by the service and their HTTP mapping.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Msg == "" {
		return "invalid " + e.Field
	}
	return e.Field + ": " + e.Msg
}

// Invalid is a shorthand for a ValidationError on field.
func Invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

type GeocodeReason string

const (
	GeocodeInvalidInput        GeocodeReason = "invalid_input"
	GeocodeNotFound            GeocodeReason = "not_found"
	GeocodeProviderUnavailable GeocodeReason = "provider_unavailable"
)

type GeocodeError struct {
	Reason  GeocodeReason
	Address string
	Err     error
}

func (e *GeocodeError) Error() string {
	switch e.Reason {
	case GeocodeNotFound:
		return fmt.Sprintf("address %q not found", e.Address)
	case GeocodeInvalidInput:
		if e.Err != nil {
			return e.Err.Error()
		}
		return "invalid address"
	default:
		if e.Err != nil {
			return "geocoding provider unavailable: " + e.Err.Error()
		}
		return "geocoding provider unavailable"
	}
}

func (e *GeocodeError) Unwrap() error { return e.Err }

type AggregationReason string

const (
	AllSourcesFailed AggregationReason = "all_sources_failed"
	Timeout          AggregationReason = "timeout"
)

type AggregationError struct {
	Reason AggregationReason
	Failed []string
	Err    error
}

func (e *AggregationError) Error() string {
	switch e.Reason {
	case Timeout:
		return "product search timed out"
	default:
		if len(e.Failed) == 0 {
			return "all product sources failed"
		}
		return "all product sources failed: " + strings.Join(e.Failed, ", ")
	}
}

func (e *AggregationError) Unwrap() error { return e.Err }

// Status maps err to an HTTP status and a client-safe detail message.
func Status(err error) (int, string) {
	if err == nil {
		return http.StatusOK, ""
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, ve.Error()
	}

	var ge *GeocodeError
	if errors.As(err, &ge) {
		switch ge.Reason {
		case GeocodeInvalidInput:
			return http.StatusBadRequest, ge.Error()
		case GeocodeNotFound:
			return http.StatusNotFound, ge.Error()
		default:
			return http.StatusBadGateway, "geocoding provider unavailable"
		}
	}

	var nf *NotFoundError
	if errors.As(err, &nf) {
		return http.StatusNotFound, nf.Error()
	}

	var ae *AggregationError
	if errors.As(err, &ae) {
		if ae.Reason == Timeout {
			return http.StatusGatewayTimeout, ae.Error()
		}
		return http.StatusBadGateway, ae.Error()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "request timed out"
	}
	if errors.Is(err, context.Canceled) {
		return http.StatusRequestTimeout, "request canceled"
	}
	return http.StatusInternalServerError, "internal server error"
}
