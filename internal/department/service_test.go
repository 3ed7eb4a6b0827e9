package department

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeDeptStore struct {
	byID       map[string]*Department
	cascadeErr error
	cascades   [][]string // DeleteCascade 呼び出しの記録
}

func newFakeDeptStore() *fakeDeptStore {
	return &fakeDeptStore{byID: map[string]*Department{}}
}

func (f *fakeDeptStore) GetByID(_ context.Context, id string) (*Department, error) {
	d, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDeptStore) ListAll(context.Context) ([]Department, error) {
	var out []Department
	for _, d := range f.byID {
		out = append(out, *d)
	}
	return out, nil
}

func (f *fakeDeptStore) ListTeamIDs(_ context.Context, companyID string) ([]string, error) {
	var ids []string
	for _, d := range f.byID {
		if d.Type == TypeTeam && d.ParentID != nil && *d.ParentID == companyID {
			ids = append(ids, d.ID)
		}
	}
	return ids, nil
}

func (f *fakeDeptStore) Insert(_ context.Context, d *Department) error {
	cp := *d
	cp.CreatedAt = time.Now()
	f.byID[d.ID] = &cp
	return nil
}

func (f *fakeDeptStore) DeleteCascade(_ context.Context, ids []string) error {
	f.cascades = append(f.cascades, ids)
	if f.cascadeErr != nil {
		// アトミック: 失敗時は何も消さない
		return f.cascadeErr
	}
	for _, id := range ids {
		delete(f.byID, id)
	}
	return nil
}

func (f *fakeDeptStore) DeleteOne(_ context.Context, id string) error {
	delete(f.byID, id)
	return nil
}

func seedCompanyWithTeams(t *testing.T, svc *Service, company string, teams ...string) (string, []string) {
	t.Helper()
	c, err := svc.Create(context.Background(), company, TypeCompany, nil)
	if err != nil {
		t.Fatalf("create company: %v", err)
	}
	var teamIDs []string
	for _, name := range teams {
		tm, err := svc.Create(context.Background(), name, TypeTeam, &c.ID)
		if err != nil {
			t.Fatalf("create team %s: %v", name, err)
		}
		teamIDs = append(teamIDs, tm.ID)
	}
	return c.ID, teamIDs
}

func TestTeamRequiresCompanyParent(t *testing.T) {
	store := newFakeDeptStore()
	svc := NewService(store)

	if _, err := svc.Create(context.Background(), "鉄筋", TypeTeam, nil); err == nil {
		t.Fatalf("expected error for team without parent")
	}

	missing := "NOPE"
	if _, err := svc.Create(context.Background(), "鉄筋", TypeTeam, &missing); err == nil {
		t.Fatalf("expected error for nonexistent parent")
	}

	companyID, _ := seedCompanyWithTeams(t, svc, "大成建設")
	teamA, err := svc.Create(context.Background(), "鉄筋", TypeTeam, &companyID)
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	// チームを親にはできない
	if _, err := svc.Create(context.Background(), "孫チーム", TypeTeam, &teamA.ID); err == nil {
		t.Fatalf("expected error for team parent")
	}
}

func TestDeleteCompanyCascadesAtomically(t *testing.T) {
	store := newFakeDeptStore()
	svc := NewService(store)
	companyID, teamIDs := seedCompanyWithTeams(t, svc, "大成建設", "鉄筋", "型枠", "電気")

	n, err := svc.Delete(context.Background(), companyID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 deletions (company + 3 teams), got %d", n)
	}
	if len(store.cascades) != 1 {
		t.Fatalf("expected a single atomic batch, got %d", len(store.cascades))
	}
	if len(store.cascades[0]) != 4 {
		t.Fatalf("batch should contain company and all teams, got %v", store.cascades[0])
	}
	for _, id := range append([]string{companyID}, teamIDs...) {
		if _, ok := store.byID[id]; ok {
			t.Fatalf("expected %s to be deleted", id)
		}
	}
}

func TestDeleteCompanyFailureDeletesNothing(t *testing.T) {
	store := newFakeDeptStore()
	svc := NewService(store)
	companyID, teamIDs := seedCompanyWithTeams(t, svc, "現代建設", "鉄筋", "防水")
	store.cascadeErr = errors.New("batch commit failed")

	if _, err := svc.Delete(context.Background(), companyID); err == nil {
		t.Fatalf("expected delete to fail")
	}
	// 半端な削除が観測されないこと
	for _, id := range append([]string{companyID}, teamIDs...) {
		if _, ok := store.byID[id]; !ok {
			t.Fatalf("partial cascade observed: %s deleted", id)
		}
	}
}

func TestLabelJoin(t *testing.T) {
	if got := Label("大成建設", "鉄筋"); got != "大成建設 - 鉄筋" {
		t.Fatalf("unexpected label: %q", got)
	}
	if got := Label("大成建設", ""); got != "大成建設" {
		t.Fatalf("company-only label: %q", got)
	}
	if got := CompanyLabelPrefix("大成建設"); got != "大成建設 -" {
		t.Fatalf("prefix: %q", got)
	}
}
