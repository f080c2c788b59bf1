package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/avelichko/taskdeck/backend/internal/auth/service"
	commonerrors "github.com/avelichko/taskdeck/backend/internal/common/errors"
	commonhttp "github.com/avelichko/taskdeck/backend/internal/common/http"
	"github.com/avelichko/taskdeck/backend/internal/common/logger"
	userdomain "github.com/avelichko/taskdeck/backend/internal/user/domain"
)

type mockAuthService struct {
	registerFunc func(ctx context.Context, email, password string) (*userdomain.User, *service.TokenPair, error)
	loginFunc    func(ctx context.Context, email, password string) (*userdomain.User, *service.TokenPair, error)
	refreshFunc  func(ctx context.Context, refreshToken string) (*service.TokenPair, error)
	logoutFunc   func(ctx context.Context, refreshToken string) error
}

func (m *mockAuthService) Register(ctx context.Context, email, password string) (*userdomain.User, *service.TokenPair, error) {
	return m.registerFunc(ctx, email, password)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*userdomain.User, *service.TokenPair, error) {
	return m.loginFunc(ctx, email, password)
}

func (m *mockAuthService) Refresh(ctx context.Context, refreshToken string) (*service.TokenPair, error) {
	return m.refreshFunc(ctx, refreshToken)
}

func (m *mockAuthService) Logout(ctx context.Context, refreshToken string) error {
	return m.logoutFunc(ctx, refreshToken)
}

func newAuthMux(svc *mockAuthService) *http.ServeMux {
	mux := http.NewServeMux()
	NewHandler(svc, commonhttp.NewErrorHandler(logger.NewDiscard(), true)).Register(mux)
	return mux
}

func postJSON(mux *http.ServeMux, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestRegisterEndpoint(t *testing.T) {
	svc := &mockAuthService{
		registerFunc: func(_ context.Context, email, password string) (*userdomain.User, *service.TokenPair, error) {
			return &userdomain.User{ID: 5, Email: email},
				&service.TokenPair{AccessToken: "at", RefreshToken: "rt"}, nil
		},
	}

	rec := postJSON(newAuthMux(svc), "/api/auth/register", `{"email":"a@b.com","password":"password123"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp tokenResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.AccessToken != "at" || resp.RefreshToken != "rt" {
		t.Errorf("tokens = %+v", resp)
	}
	if resp.User == nil || resp.User.ID != 5 {
		t.Errorf("user = %+v", resp.User)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := &mockAuthService{
		registerFunc: func(context.Context, string, string) (*userdomain.User, *service.TokenPair, error) {
			t.Fatal("service must not be reached on invalid input")
			return nil, nil, nil
		},
	}
	mux := newAuthMux(svc)

	cases := []string{
		`{"email":"not-an-email","password":"password123"}`,
		`{"email":"a@b.com","password":"short"}`,
		`{"email":"a@b.com"}`,
		`{not json`,
	}
	for _, body := range cases {
		if rec := postJSON(mux, "/api/auth/register", body); rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d", body, rec.Code)
		}
	}
}

func TestLoginFailureKeepsTaxonomy(t *testing.T) {
	svc := &mockAuthService{
		loginFunc: func(context.Context, string, string) (*userdomain.User, *service.TokenPair, error) {
			return nil, nil, commonerrors.ErrInvalidCredentials
		},
	}

	rec := postJSON(newAuthMux(svc), "/api/auth/login", `{"email":"a@b.com","password":"password123"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}

	var env commonhttp.ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Code != "INVALID_CREDENTIALS" {
		t.Errorf("code = %q", env.Code)
	}
}

func TestRefreshEndpoint(t *testing.T) {
	svc := &mockAuthService{
		refreshFunc: func(_ context.Context, refreshToken string) (*service.TokenPair, error) {
			if refreshToken != "old-token" {
				t.Errorf("token = %q", refreshToken)
			}
			return &service.TokenPair{AccessToken: "at2", RefreshToken: "rt2"}, nil
		},
	}

	rec := postJSON(newAuthMux(svc), "/api/auth/refresh", `{"refresh_token":"old-token"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRefreshMissingToken(t *testing.T) {
	svc := &mockAuthService{
		refreshFunc: func(context.Context, string) (*service.TokenPair, error) {
			t.Fatal("service must not be reached without a token")
			return nil, nil
		},
	}

	if rec := postJSON(newAuthMux(svc), "/api/auth/refresh", `{}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestLogoutEndpoint(t *testing.T) {
	svc := &mockAuthService{
		logoutFunc: func(context.Context, string) error { return nil },
	}

	if rec := postJSON(newAuthMux(svc), "/api/auth/logout", `{"refresh_token":"rt"}`); rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAuthRoutesRejectGet(t *testing.T) {
	mux := newAuthMux(&mockAuthService{})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/login", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}
