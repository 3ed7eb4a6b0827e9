package reset

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakePurger struct {
	name  string
	count int
	err   error
	runs  int
}

func (f *fakePurger) Purge(context.Context, time.Time) (int, error) {
	f.runs++
	if f.err != nil {
		return 0, f.err
	}
	return f.count, nil
}

type fakeRevoker struct {
	count int
	err   error
	runs  int
}

func (f *fakeRevoker) RevokeAll(context.Context) (int, error) {
	f.runs++
	if f.err != nil {
		return 0, f.err
	}
	return f.count, nil
}

func stepByName(t *testing.T, res Result, name string) StepResult {
	t.Helper()
	for _, s := range res.Steps {
		if s.Step == name {
			return s
		}
	}
	t.Fatalf("step %s not found in %+v", name, res.Steps)
	return StepResult{}
}

func TestRunReportsAllSteps(t *testing.T) {
	rev := &fakeRevoker{count: 12}
	att := &fakePurger{name: "att", count: 30}
	bul := &fakePurger{name: "bul", count: 4}
	alr := &fakePurger{name: "alr", count: 2}
	svc := NewService(rev, att, bul, alr)

	res := svc.Run(context.Background())
	if len(res.Steps) != 4 {
		t.Fatalf("expected 4 steps, got %d", len(res.Steps))
	}
	if res.FailedSteps() != 0 {
		t.Fatalf("expected no failures: %+v", res.Steps)
	}
	if got := stepByName(t, res, StepRevokeSessions); got.Affected != 12 {
		t.Fatalf("revoke affected: %+v", got)
	}
	if got := stepByName(t, res, StepPurgeAttendance); got.Affected != 30 {
		t.Fatalf("attendance affected: %+v", got)
	}
}

func TestStepFailureIsIsolated(t *testing.T) {
	rev := &fakeRevoker{count: 5}
	att := &fakePurger{name: "att", count: 10}
	bul := &fakePurger{name: "bul", err: errors.New("store unavailable")}
	alr := &fakePurger{name: "alr", count: 1}
	svc := NewService(rev, att, bul, alr)

	res := svc.Run(context.Background())

	// 掲示パージの失敗でも他の3ステップは完走して成功を報告する
	if rev.runs != 1 || att.runs != 1 || alr.runs != 1 {
		t.Fatalf("all steps must run: rev=%d att=%d alr=%d", rev.runs, att.runs, alr.runs)
	}
	if !stepByName(t, res, StepRevokeSessions).OK {
		t.Fatalf("revoke step should succeed")
	}
	if !stepByName(t, res, StepPurgeAttendance).OK {
		t.Fatalf("attendance purge should succeed")
	}
	if !stepByName(t, res, StepPurgeAlerts).OK {
		t.Fatalf("alert purge should succeed")
	}

	failed := stepByName(t, res, StepPurgeBulletins)
	if failed.OK || failed.Error == "" {
		t.Fatalf("bulletin step must report its failure: %+v", failed)
	}
	// 部分失敗が全体成功として潰されないこと
	if res.FailedSteps() != 1 || res.AllFailed() {
		t.Fatalf("unexpected aggregate: failed=%d allFailed=%v", res.FailedSteps(), res.AllFailed())
	}
}

func TestAllFailed(t *testing.T) {
	boom := errors.New("down")
	svc := NewService(
		&fakeRevoker{err: boom},
		&fakePurger{err: boom},
		&fakePurger{err: boom},
		&fakePurger{err: boom},
	)
	res := svc.Run(context.Background())
	if !res.AllFailed() {
		t.Fatalf("expected AllFailed, got %+v", res.Steps)
	}
}

func TestRunIsRepeatable(t *testing.T) {
	rev := &fakeRevoker{}
	svc := NewService(rev, &fakePurger{}, &fakePurger{}, &fakePurger{})

	svc.Run(context.Background())
	svc.Run(context.Background())
	if rev.runs != 2 {
		t.Fatalf("manual and scheduled triggers share one idempotent implementation; runs=%d", rev.runs)
	}
}
