package schedule

import (
	"context"
	"fmt"
	"log"
	"time"
)

// 定時ジョブ。At はサイトのローカルタイム "HH:MM"。
type Job struct {
	Name string
	At   string
	Run  func(ctx context.Context)
}

// 外部cron相当の軽量スケジューラ。分解能はtick間隔で十分（ジョブは数個、日次〜1日3回）。
// 1日1回・ジョブごとの発火記録を持ち、同じ日に二度は発火しない（冪等）。
type Scheduler struct {
	loc       *time.Location
	jobs      []Job
	interval  time.Duration
	lastFired map[string]string // job名 → 発火済みの日付 "2006-01-02"
	now       func() time.Time
}

func New(loc *time.Location, jobs []Job) (*Scheduler, error) {
	if loc == nil {
		return nil, fmt.Errorf("location is required")
	}
	for _, j := range jobs {
		if _, err := parseHHMM(j.At); err != nil {
			return nil, fmt.Errorf("job %s: %w", j.Name, err)
		}
	}
	return &Scheduler{
		loc:       loc,
		jobs:      jobs,
		interval:  30 * time.Second,
		lastFired: map[string]string{},
		now:       time.Now,
	}, nil
}

// Start: ctx がキャンセルされるまでtickを回す。呼び出し側でgoroutineに載せること。
func (s *Scheduler) Start(ctx context.Context) {
	log.Printf("[INFO] scheduler started: %d jobs, tz=%s", len(s.jobs), s.loc)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx, s.now())
		case <-ctx.Done():
			log.Printf("[INFO] scheduler stopped")
			return
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	local := now.In(s.loc)
	today := local.Format("2006-01-02")

	for _, j := range s.jobs {
		if s.lastFired[j.Name] == today {
			continue
		}
		if !due(j.At, local) {
			continue
		}
		s.lastFired[j.Name] = today
		log.Printf("[INFO] firing scheduled job %s (at=%s local)", j.Name, j.At)
		j.Run(ctx)
	}
}

// due: ローカル時刻が当日の発火時刻を過ぎているか
func due(at string, local time.Time) bool {
	minutes, err := parseHHMM(at)
	if err != nil {
		return false
	}
	return local.Hour()*60+local.Minute() >= minutes
}

func parseHHMM(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q (want HH:MM): %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}
