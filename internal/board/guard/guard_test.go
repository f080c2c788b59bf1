package guard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/avelichko/taskdeck/backend/internal/common/constants"
	commonerrors "github.com/avelichko/taskdeck/backend/internal/common/errors"
	commonhttp "github.com/avelichko/taskdeck/backend/internal/common/http"
	"github.com/avelichko/taskdeck/backend/internal/common/logger"
	"github.com/avelichko/taskdeck/backend/internal/session"
)

type mockChecker struct {
	existsFunc func(ctx context.Context, userID, boardID int64) (bool, error)
	calls      int
}

func (m *mockChecker) Exists(ctx context.Context, userID, boardID int64) (bool, error) {
	m.calls++
	return m.existsFunc(ctx, userID, boardID)
}

func runGuard(t *testing.T, checker *mockChecker, authenticated bool, boardHeader string) (*httptest.ResponseRecorder, bool) {
	t.Helper()

	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		if id, ok := BoardIDFromContext(r.Context()); !ok || id == 0 {
			t.Error("admitted request must carry the board id")
		}
		w.WriteHeader(http.StatusOK)
	})

	g := New(checker, commonhttp.NewErrorHandler(logger.NewDiscard(), true))

	req := httptest.NewRequest(http.MethodGet, "/api/cards", nil)
	if authenticated {
		req = req.WithContext(session.WithUserID(req.Context(), 7))
	}
	if boardHeader != "" {
		req.Header.Set(constants.BoardIDHeader, boardHeader)
	}
	rec := httptest.NewRecorder()
	g.Middleware(next).ServeHTTP(rec, req)
	return rec, reached
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) commonhttp.ErrorEnvelope {
	t.Helper()
	var env commonhttp.ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return env
}

func TestGuardAdmitsMember(t *testing.T) {
	checker := &mockChecker{existsFunc: func(_ context.Context, userID, boardID int64) (bool, error) {
		if userID != 7 || boardID != 42 {
			t.Errorf("checked (%d, %d)", userID, boardID)
		}
		return true, nil
	}}

	rec, reached := runGuard(t, checker, true, "42")
	if rec.Code != http.StatusOK || !reached {
		t.Fatalf("expected pass-through, got status %d reached=%v", rec.Code, reached)
	}
}

func TestGuardAnonymousIs401(t *testing.T) {
	checker := &mockChecker{existsFunc: func(context.Context, int64, int64) (bool, error) {
		return true, nil
	}}

	rec, reached := runGuard(t, checker, false, "42")
	if rec.Code != http.StatusUnauthorized || reached {
		t.Fatalf("expected 401 without pass-through, got %d reached=%v", rec.Code, reached)
	}
	if checker.calls != 0 {
		t.Error("membership must not be checked before identity")
	}
	if env := decodeEnvelope(t, rec); env.Code != "UNAUTHENTICATED" {
		t.Errorf("code = %q", env.Code)
	}
}

func TestGuardMissingBoardHeaderIs400(t *testing.T) {
	checker := &mockChecker{existsFunc: func(context.Context, int64, int64) (bool, error) {
		return true, nil
	}}

	rec, reached := runGuard(t, checker, true, "")
	if rec.Code != http.StatusBadRequest || reached {
		t.Fatalf("expected 400, got %d reached=%v", rec.Code, reached)
	}
	if checker.calls != 0 {
		t.Error("membership must not be checked without a board id")
	}
	if env := decodeEnvelope(t, rec); env.Code != "MISSING_BOARD_ID" {
		t.Errorf("code = %q", env.Code)
	}
}

func TestGuardNonIntegerBoardHeaderIs400(t *testing.T) {
	checker := &mockChecker{existsFunc: func(context.Context, int64, int64) (bool, error) {
		return true, nil
	}}

	rec, reached := runGuard(t, checker, true, "not-a-number")
	if rec.Code != http.StatusBadRequest || reached {
		t.Fatalf("expected 400, got %d reached=%v", rec.Code, reached)
	}
	if env := decodeEnvelope(t, rec); env.Code != "INVALID_BOARD_ID" {
		t.Errorf("code = %q", env.Code)
	}
}

func TestGuardNonMemberIs403(t *testing.T) {
	checker := &mockChecker{existsFunc: func(context.Context, int64, int64) (bool, error) {
		return false, nil
	}}

	rec, reached := runGuard(t, checker, true, "42")
	if rec.Code != http.StatusForbidden || reached {
		t.Fatalf("expected 403, got %d reached=%v", rec.Code, reached)
	}
	if env := decodeEnvelope(t, rec); env.Code != "FORBIDDEN" {
		t.Errorf("code = %q", env.Code)
	}
}

func TestGuardStoreFailureIs500(t *testing.T) {
	checker := &mockChecker{existsFunc: func(context.Context, int64, int64) (bool, error) {
		return false, commonerrors.ErrPersistence.WithCause(errors.New("connection reset"))
	}}

	rec, reached := runGuard(t, checker, true, "42")
	if rec.Code != http.StatusInternalServerError || reached {
		t.Fatalf("expected 500, got %d reached=%v", rec.Code, reached)
	}
}

func TestGuardChecksEveryRequest(t *testing.T) {
	allowed := true
	checker := &mockChecker{existsFunc: func(context.Context, int64, int64) (bool, error) {
		return allowed, nil
	}}

	if rec, _ := runGuard(t, checker, true, "42"); rec.Code != http.StatusOK {
		t.Fatalf("first request: %d", rec.Code)
	}

	// Revoked membership must take effect immediately.
	allowed = false
	if rec, _ := runGuard(t, checker, true, "42"); rec.Code != http.StatusForbidden {
		t.Fatalf("second request after revocation: %d", rec.Code)
	}
}
