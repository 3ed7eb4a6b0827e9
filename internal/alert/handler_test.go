package alert

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type fakeAlertStore struct {
	byID map[string]*Alert
}

func (f *fakeAlertStore) Insert(_ context.Context, a *Alert) error {
	cp := *a
	f.byID[a.ID] = &cp
	return nil
}

func (f *fakeAlertStore) ListAll(context.Context) ([]Alert, error) {
	var out []Alert
	for _, a := range f.byID {
		out = append(out, *a)
	}
	return out, nil
}

func (f *fakeAlertStore) Resolve(_ context.Context, id string) error {
	a, ok := f.byID[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	a.ResolvedAt = &now
	return nil
}

func newAlertRouter(store *fakeAlertStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r.Group(""), r.Group(""), store)
	return r
}

func TestResolveUnknownAlertReturns404(t *testing.T) {
	store := &fakeAlertStore{byID: map[string]*Alert{}}
	r := newAlertRouter(store)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/alerts/NOPE/resolve", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("resolve unknown id: status %d, want 404", w.Code)
	}
}

func TestResolveExistingAlert(t *testing.T) {
	store := &fakeAlertStore{byID: map[string]*Alert{
		"A1": {ID: "A1", PrincipalPhone: "010-1234", DisplayName: "作業者A"},
	}}
	r := newAlertRouter(store)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/alerts/A1/resolve", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("resolve existing id: status %d body=%s", w.Code, w.Body.String())
	}
	if store.byID["A1"].ResolvedAt == nil {
		t.Fatalf("expected resolved_at to be stamped")
	}
}
