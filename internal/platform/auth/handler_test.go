package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

type fakeAccountStore struct {
	byID map[string]*Account
}

func (f *fakeAccountStore) GetAccount(_ context.Context, id string) (*Account, error) {
	a, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccountStore) CreateAccount(_ context.Context, a *Account) error {
	cp := *a
	f.byID[a.ID] = &cp
	return nil
}

func newAuthRouter(t *testing.T) (*gin.Engine, *fakeAccountStore, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	accounts := &fakeAccountStore{byID: map[string]*Account{}}
	svc := NewServiceWithStores([]byte("test-secret"), accounts, newFakePrincipalStore(0))

	r := gin.New()
	api := r.Group("/api/v1")
	admin := api.Group("", RequireAuth(svc), RequireRole(RoleAdmin))
	RegisterRoutes(api, admin, svc)
	return r, accounts, svc
}

func doJSON(r *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterRejectsAnonymousCaller(t *testing.T) {
	r, accounts, _ := newAuthRouter(t)

	w := doJSON(r, http.MethodPost, "/api/v1/auth/register", `{"id":"mallory","password":"pw"}`, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("register without token: status %d, want 401", w.Code)
	}
	if _, ok := accounts.byID["mallory"]; ok {
		t.Fatalf("unauthenticated register must not create an account")
	}
}

func TestRegisterRejectsWorkerToken(t *testing.T) {
	r, accounts, svc := newAuthRouter(t)

	workerTok, err := svc.AuthenticateAnonymous(context.Background(), "010-9999")
	if err != nil {
		t.Fatalf("anonymous auth: %v", err)
	}
	w := doJSON(r, http.MethodPost, "/api/v1/auth/register", `{"id":"mallory","password":"pw"}`, workerTok)
	if w.Code != http.StatusForbidden {
		t.Fatalf("register with worker token: status %d, want 403", w.Code)
	}
	if _, ok := accounts.byID["mallory"]; ok {
		t.Fatalf("worker register must not create an account")
	}
}

func TestRegisterAllowsAdminToken(t *testing.T) {
	r, accounts, svc := newAuthRouter(t)

	// 初代管理者はブートストラップ経由
	if err := svc.EnsureAdmin(context.Background(), "admin", "secret"); err != nil {
		t.Fatalf("bootstrap admin: %v", err)
	}
	if err := svc.EnsureAdmin(context.Background(), "admin", "secret"); err != nil {
		t.Fatalf("bootstrap must be repeatable: %v", err)
	}

	w := doJSON(r, http.MethodPost, "/api/v1/auth/login", `{"id":"admin","password":"secret"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login: status %d body=%s", w.Code, w.Body.String())
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.Token == "" {
		t.Fatalf("login response: %v %s", err, w.Body.String())
	}

	w = doJSON(r, http.MethodPost, "/api/v1/auth/register", `{"id":"second","password":"pw"}`, body.Token)
	if w.Code != http.StatusCreated {
		t.Fatalf("admin register: status %d body=%s", w.Code, w.Body.String())
	}
	if acct := accounts.byID["second"]; acct == nil || acct.Role != RoleAdmin {
		t.Fatalf("expected second admin account, got %+v", acct)
	}
}
