package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

type fakePrincipalStore struct {
	mu       sync.Mutex
	byID     map[string]*Principal
	ids      []string // 挿入順とは別に id 昇順を保つ
	bumpErrs map[string]error
}

func newFakePrincipalStore(n int) *fakePrincipalStore {
	f := &fakePrincipalStore{byID: map[string]*Principal{}, bumpErrs: map[string]error{}}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("P%04d", i)
		f.byID[id] = &Principal{ID: id, Phone: fmt.Sprintf("010-%04d", i), TokenVersion: 1}
		f.ids = append(f.ids, id)
	}
	return f
}

func (f *fakePrincipalStore) PrincipalByPhone(_ context.Context, phone string) (*Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.byID {
		if p.Phone == phone {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakePrincipalStore) PrincipalByID(_ context.Context, id string) (*Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakePrincipalStore) CreatePrincipal(_ context.Context, p *Principal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[p.ID] = &Principal{ID: p.ID, Phone: p.Phone, TokenVersion: 1}
	f.ids = append(f.ids, p.ID)
	return nil
}

func (f *fakePrincipalStore) ListPrincipalPage(_ context.Context, afterID string, limit int) ([]Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Principal
	for _, id := range f.ids {
		if id <= afterID {
			continue
		}
		out = append(out, *f.byID[id])
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakePrincipalStore) BumpTokenVersion(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.bumpErrs[id]; err != nil {
		return err
	}
	p, ok := f.byID[id]
	if !ok {
		return ErrNotFound
	}
	p.TokenVersion++
	return nil
}

func TestListPrincipalsPaging(t *testing.T) {
	f := newFakePrincipalStore(5)
	r := NewRevoker(f)

	page1, next, err := r.ListPrincipals(context.Background(), 2, "")
	if err != nil {
		t.Fatalf("list page1: %v", err)
	}
	if len(page1) != 2 || next == "" {
		t.Fatalf("expected full page with next token, got %d items next=%q", len(page1), next)
	}

	page2, _, err := r.ListPrincipals(context.Background(), 2, next)
	if err != nil {
		t.Fatalf("list page2: %v", err)
	}
	if len(page2) != 2 {
		t.Fatalf("expected 2 items on page2, got %d", len(page2))
	}
	if page2[0].ID == page1[1].ID {
		t.Fatalf("pages overlap at %s", page2[0].ID)
	}
}

func TestRevokeAllCountsAndContinuesOnFailure(t *testing.T) {
	f := newFakePrincipalStore(7)
	f.bumpErrs["P0003"] = errors.New("store unavailable")
	r := NewRevoker(f)

	revoked, err := r.RevokeAll(context.Background())
	if err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	if revoked != 6 {
		t.Fatalf("expected 6 revoked, got %d", revoked)
	}
	// 失敗した1件以外はversionが進んでいること
	for _, id := range f.ids {
		want := int64(2)
		if id == "P0003" {
			want = 1
		}
		if f.byID[id].TokenVersion != want {
			t.Fatalf("principal %s: version %d, want %d", id, f.byID[id].TokenVersion, want)
		}
	}
}

func TestRevokeAllIsIdempotentlySafe(t *testing.T) {
	f := newFakePrincipalStore(3)
	r := NewRevoker(f)

	if _, err := r.RevokeAll(context.Background()); err != nil {
		t.Fatalf("first revoke: %v", err)
	}
	if _, err := r.RevokeAll(context.Background()); err != nil {
		t.Fatalf("second revoke: %v", err)
	}
	for _, id := range f.ids {
		if f.byID[id].TokenVersion != 3 {
			t.Fatalf("principal %s: version %d, want 3", id, f.byID[id].TokenVersion)
		}
	}
}

func TestVerifyTokenRejectsRevokedWorker(t *testing.T) {
	f := newFakePrincipalStore(0)
	svc := NewServiceWithStores([]byte("test-secret"), nil, f)

	token, err := svc.AuthenticateAnonymous(context.Background(), "010-1234-5678")
	if err != nil {
		t.Fatalf("anonymous auth: %v", err)
	}
	if _, err := svc.VerifyToken(context.Background(), token); err != nil {
		t.Fatalf("verify before revoke: %v", err)
	}

	if _, err := NewRevoker(f).RevokeAll(context.Background()); err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	if _, err := svc.VerifyToken(context.Background(), token); err == nil {
		t.Fatalf("expected revoked token to be rejected")
	}
}
