package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/avelichko/taskdeck/backend/internal/common/constants"
	commonerrors "github.com/avelichko/taskdeck/backend/internal/common/errors"
	"github.com/avelichko/taskdeck/backend/internal/common/logger"
)

func handleErr(t *testing.T, production bool, err error) (*httptest.ResponseRecorder, ErrorEnvelope) {
	t.Helper()

	h := NewErrorHandler(logger.NewDiscard(), production)
	req := httptest.NewRequest(http.MethodGet, "/api/cards", nil)
	ctx := context.WithValue(req.Context(), constants.TraceIDKey, "trace-123")
	rec := httptest.NewRecorder()

	h.HandleError(rec, req.WithContext(ctx), err)

	var env ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return rec, env
}

func TestDomainErrorKeepsTaxonomy(t *testing.T) {
	rec, env := handleErr(t, true, commonerrors.ErrForbidden)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d", rec.Code)
	}
	if env.Code != "FORBIDDEN" {
		t.Errorf("code = %q", env.Code)
	}
	if env.TraceID != "trace-123" {
		t.Errorf("trace id = %q", env.TraceID)
	}
}

func TestUnknownErrorIsOpaqueInProduction(t *testing.T) {
	rec, env := handleErr(t, true, errors.New("pq: relation does not exist"))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
	if strings.Contains(env.Message, "relation") {
		t.Errorf("production message leaks internals: %q", env.Message)
	}
	if env.TraceID != "trace-123" {
		t.Errorf("trace id = %q", env.TraceID)
	}
}

func TestUnknownErrorIsVerboseOutsideProduction(t *testing.T) {
	_, env := handleErr(t, false, errors.New("pq: relation does not exist"))

	if !strings.Contains(env.Message, "relation does not exist") {
		t.Errorf("development message should carry the cause: %q", env.Message)
	}
}

func TestWrappedDomainErrorHidesCauseInProduction(t *testing.T) {
	err := commonerrors.ErrPersistence.WithCause(errors.New("connection refused"))
	rec, env := handleErr(t, true, err)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
	if env.Code != "PERSISTENCE_ERROR" {
		t.Errorf("code = %q", env.Code)
	}
	if strings.Contains(env.Message, "connection refused") {
		t.Errorf("production message leaks cause: %q", env.Message)
	}
}

func TestNilErrorWritesNothing(t *testing.T) {
	h := NewErrorHandler(logger.NewDiscard(), true)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	h.HandleError(rec, req, nil)

	if rec.Body.Len() != 0 {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}
