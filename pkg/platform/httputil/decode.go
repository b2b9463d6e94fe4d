package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "seqrpay/pkg/domain-errors"
)

const maxBodyBytes = 64 << 10

// DecodeJSON reads a size-capped JSON body into T, rejecting unknown fields.
// On failure it writes a bad_request response and returns false.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	var req T
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		logger.WarnContext(ctx, "failed to decode request body",
			"error", err,
			"request_id", requestID,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}
	return &req, true
}

// Normalizer is implemented by requests that tidy their fields after decoding.
type Normalizer interface {
	Normalize()
}

// Validator is implemented by requests that check themselves.
type Validator interface {
	Validate() error
}

// DecodeAndPrepare decodes the body into T, then runs Normalize and Validate
// when T implements them. A validation error keeps its domain code; an
// uncoded one is reported as validation_error.
//
//	req, ok := httputil.DecodeAndPrepare[signer.Request](w, r, h.logger, ctx, requestID)
//	if !ok {
//	    return
//	}
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	req, ok := DecodeJSON[T](w, r, logger, ctx, requestID)
	if !ok {
		return nil, false
	}
	if n, ok := any(req).(Normalizer); ok {
		n.Normalize()
	}
	v, ok := any(req).(Validator)
	if !ok {
		return req, true
	}
	if err := v.Validate(); err != nil {
		logger.WarnContext(ctx, "request rejected",
			"error", err,
			"request_id", requestID,
		)
		var coded *dErrors.Error
		if !errors.As(err, &coded) {
			err = dErrors.New(dErrors.CodeValidation, err.Error())
		}
		WriteError(w, err)
		return nil, false
	}
	return req, true
}
