package reset

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

const (
	StepRevokeSessions  = "revoke_sessions"
	StepPurgeAttendance = "purge_attendance"
	StepPurgeBulletins  = "purge_bulletins"
	StepPurgeAlerts     = "purge_alerts"
)

// 各コレクションのパージ実装。内部で500件バッチに割るのはストア側の責務。
type Purger interface {
	Purge(ctx context.Context, now time.Time) (int, error)
}

type Revoker interface {
	RevokeAll(ctx context.Context) (int, error)
}

type StepResult struct {
	Step     string `json:"step"`
	OK       bool   `json:"ok"`
	Affected int    `json:"affected"`
	Error    string `json:"error,omitempty"`
}

type Result struct {
	Steps      []StepResult `json:"steps"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

func (r Result) FailedSteps() int {
	n := 0
	for _, s := range r.Steps {
		if !s.OK {
			n++
		}
	}
	return n
}

func (r Result) AllFailed() bool {
	return len(r.Steps) > 0 && r.FailedSteps() == len(r.Steps)
}

// 日次リセット。定時実行と手動トリガが同じ実装を共有する。
// 同時実行は mu で直列化される（二重に走っても安全だが無駄なだけ、の保証）。
type Service struct {
	revoker    Revoker
	attendance Purger
	bulletins  Purger
	alerts     Purger
	now        func() time.Time
	mu         sync.Mutex
}

func NewService(revoker Revoker, attendance, bulletins, alerts Purger) *Service {
	return &Service{
		revoker:    revoker,
		attendance: attendance,
		bulletins:  bulletins,
		alerts:     alerts,
		now:        time.Now,
	}
}

// Run: 4ステップを順に実行する。各ステップは互いに独立で、
// 1ステップの失敗は記録するだけで残りを止めない。
func (s *Service) Run(ctx context.Context) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := Result{StartedAt: s.now().UTC()}
	now := res.StartedAt

	res.Steps = append(res.Steps, s.runStep(StepRevokeSessions, func() (int, error) {
		return s.revoker.RevokeAll(ctx)
	}))
	res.Steps = append(res.Steps, s.runStep(StepPurgeAttendance, func() (int, error) {
		return s.attendance.Purge(ctx, now)
	}))
	res.Steps = append(res.Steps, s.runStep(StepPurgeBulletins, func() (int, error) {
		return s.bulletins.Purge(ctx, now)
	}))
	res.Steps = append(res.Steps, s.runStep(StepPurgeAlerts, func() (int, error) {
		return s.alerts.Purge(ctx, now)
	}))

	res.FinishedAt = s.now().UTC()
	log.Printf("[INFO] daily reset: %s", summarize(res))
	return res
}

// RevokeAllSessions: 失効だけの手動トリガ用
func (s *Service) RevokeAllSessions(ctx context.Context) (int, error) {
	return s.revoker.RevokeAll(ctx)
}

func (s *Service) runStep(name string, fn func() (int, error)) StepResult {
	n, err := fn()
	if err != nil {
		log.Printf("[ERROR] reset step %s failed: %v", name, err)
		return StepResult{Step: name, OK: false, Affected: n, Error: err.Error()}
	}
	return StepResult{Step: name, OK: true, Affected: n}
}

func summarize(r Result) string {
	out := ""
	for _, s := range r.Steps {
		state := "ok"
		if !s.OK {
			state = "failed"
		}
		out += fmt.Sprintf("%s=%s(%d) ", s.Step, state, s.Affected)
	}
	return out
}
