package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "landtrust/pkg/domain-errors"
	"landtrust/pkg/requestcontext"
)

// DecodeJSON decodes exactly one JSON value from the request body. On
// failure it writes the error response and returns nil, false.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	ctx := r.Context()
	var req T
	dec := json.NewDecoder(r.Body)
	err := dec.Decode(&req)
	if err == nil && dec.More() {
		err = errTrailingData
	}
	if err == nil {
		return &req, true
	}

	logger.WarnContext(ctx, "failed to decode request body",
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		WriteError(w, dErrors.New(dErrors.CodeRequestTooLarge, "request body too large"))
	case errors.Is(err, io.EOF):
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body is required"))
	case errors.Is(err, errTrailingData):
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body must hold a single JSON object"))
	default:
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
	}
	return nil, false
}

var errTrailingData = errors.New("trailing data after JSON value")

// Validatable is implemented by request types that support validation.
type Validatable interface {
	Validate() error
}

// Normalizable is implemented by request types that support normalization.
type Normalizable interface {
	Normalize()
}

// PrepareRequest normalizes, then validates, a request.
func PrepareRequest(req any) error {
	if n, ok := req.(Normalizable); ok {
		n.Normalize()
	}
	if v, ok := req.(Validatable); ok {
		return v.Validate()
	}
	return nil
}

// DecodeAndPrepare decodes, normalizes and validates a request body.
// Validation errors that are not domain errors are reported as
// validation_error.
//
//	desc, ok := httputil.DecodeAndPrepare[identity.Descriptor](w, r, h.logger)
//	if !ok {
//	    return
//	}
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	req, ok := DecodeJSON[T](w, r, logger)
	if !ok {
		return nil, false
	}

	if err := PrepareRequest(req); err != nil {
		ctx := r.Context()
		logger.WarnContext(ctx, "invalid request",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		if dErrors.CodeOf(err) != "" {
			WriteError(w, err)
		} else {
			WriteError(w, dErrors.New(dErrors.CodeValidation, err.Error()))
		}
		return nil, false
	}

	return req, true
}
