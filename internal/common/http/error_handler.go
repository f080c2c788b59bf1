package http

import (
	"net/http"
	"strconv"

	commonerrors "github.com/avelichko/taskdeck/backend/internal/common/errors"
	"github.com/avelichko/taskdeck/backend/internal/common/logger"
	"github.com/avelichko/taskdeck/backend/internal/observability/metrics"
)

type ErrorHandler struct {
	log        *logger.Logger
	production bool
}

func NewErrorHandler(log *logger.Logger, production bool) *ErrorHandler {
	return &ErrorHandler{log: log, production: production}
}

// HandleError is the single outermost rendering point for errors that escape
// handlers. Domain errors keep their taxonomy status and code; anything else
// becomes an opaque 500. Callers outside production get the underlying error
// text for debugging; production callers only ever see the trace id.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	ctx := r.Context()
	traceID := TraceIDFromContext(ctx)

	if domainErr, ok := commonerrors.AsDomainError(err); ok {
		h.handleDomainError(w, r, domainErr, traceID)
		return
	}

	h.log.WithFields(ctx, logger.Fields{
		"error":  err.Error(),
		"action": "unhandled_error",
	}).Errorf("unhandled error: %v", err)

	metrics.HTTPErrorsTotal.WithLabelValues(
		strconv.Itoa(http.StatusInternalServerError),
		r.URL.Path,
		r.Method,
	).Inc()

	message := "internal server error"
	if !h.production {
		message = err.Error()
	}
	WriteErrorEnvelope(w, http.StatusInternalServerError, CodeUnknown, message, nil, traceID)
}

func (h *ErrorHandler) handleDomainError(w http.ResponseWriter, r *http.Request, err commonerrors.DomainError, traceID string) {
	if traceID != "" && err.TraceID() == "" {
		err = err.WithTraceID(traceID)
	}

	status := err.HTTPStatus()
	message := err.Message()
	if !h.production && err.Unwrap() != nil {
		message = err.Error()
	}

	if h.log.ShouldLog(logger.DEBUG) {
		h.log.WithFields(r.Context(), logger.Fields{
			"error_code": err.Code(),
			"category":   string(err.Category()),
			"status":     status,
			"action":     "domain_error",
		}).Debugf("domain error: %s", err.Error())
	}

	metrics.DomainErrorsTotal.WithLabelValues(
		string(err.Category()),
		err.Code(),
		strconv.Itoa(status),
	).Inc()

	metrics.HTTPErrorsTotal.WithLabelValues(
		strconv.Itoa(status),
		r.URL.Path,
		r.Method,
	).Inc()

	WriteErrorEnvelope(w, status, err.Code(), message, nil, err.TraceID())
}
