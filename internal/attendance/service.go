package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"safesite-backend/internal/geofence"
	"safesite-backend/internal/site"
)

// ===== Error model =====
type Code string

const (
	CodeInvalidArgument   Code = "INVALID_ARGUMENT"
	CodeInvalidCoordinate Code = "INVALID_COORDINATE"
	CodeOutsideGeofence   Code = "OUTSIDE_GEOFENCE"
	CodeNotFound          Code = "NOT_FOUND"
	CodeInternal          Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string      { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func ErrInvalid(msg string) *APIError  { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrBadCoord(msg string) *APIError { return &APIError{Code: CodeInvalidCoordinate, Message: msg} }
func ErrOutside(msg string) *APIError  { return &APIError{Code: CodeOutsideGeofence, Message: msg} }
func ErrNotFound(msg string) *APIError { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrInternal(msg string) *APIError { return &APIError{Code: CodeInternal, Message: msg} }

func toHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument, CodeInvalidCoordinate:
			return 400
		case CodeOutsideGeofence:
			return 403
		case CodeNotFound:
			return 404
		default:
			return 500
		}
	}
	return 500
}

// ===== Service =====

// 退場プロンプトの送信先。プッシュ配信の実体は外側で差し替える。
type Notifier interface {
	SendCheckoutPrompt(ctx context.Context, r Record) error
}

type Service struct {
	store  RecordStore
	site   site.Reader
	notify Notifier
	now    func() time.Time
}

func NewService(store RecordStore, siteCfg site.Reader, notify Notifier) *Service {
	return &Service{store: store, site: siteCfg, notify: notify, now: time.Now}
}

// CheckIn: ジオフェンス内でのみ新規レコードを作る。
// 同一作業者の未退場レコードが既にあっても重複排除はしない（参照側が最新を取る）。
func (s *Service) CheckIn(ctx context.Context, in CheckInRequest) (RecordResponse, error) {
	if in.Lat == nil || in.Lng == nil {
		return RecordResponse{}, ErrInvalid("lat and lng are required")
	}
	loc := geofence.Point{Lat: *in.Lat, Lng: *in.Lng}
	if err := loc.Validate(); err != nil {
		return RecordResponse{}, ErrBadCoord(err.Error())
	}

	cfg, err := s.site.GetConfig(ctx)
	if err != nil {
		return RecordResponse{}, ErrInternal("site config unavailable")
	}

	inside, dist, err := geofence.IsInside(loc, cfg.Center, cfg.AllowedRadiusMeters)
	if err != nil {
		return RecordResponse{}, ErrBadCoord(err.Error())
	}
	if !inside {
		return RecordResponse{}, ErrOutside(fmt.Sprintf("distance %.0fm exceeds allowed %.0fm", dist, cfg.AllowedRadiusMeters))
	}

	rec := &Record{
		ID:              ulid.Make().String(),
		PrincipalPhone:  in.PrincipalPhone,
		DisplayName:     in.DisplayName,
		DepartmentLabel: in.DepartmentLabel,
		CheckInAt:       s.now().UTC(),
		LastLocation:    &loc,
	}
	if err := s.store.Insert(ctx, rec); err != nil {
		return RecordResponse{}, err
	}
	return rec.toDTO(), nil
}

// CheckOut: 未退場の最新レコードを閉じる。対象なしはエラーにしない（冪等）。
func (s *Service) CheckOut(ctx context.Context, phone string) (*RecordResponse, error) {
	if phone == "" {
		return nil, ErrInvalid("phone is required")
	}
	rec, err := s.store.LatestOpenByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	at := s.now().UTC()
	if err := s.store.MarkCheckedOut(ctx, rec.ID, at, false, ""); err != nil {
		return nil, err
	}
	rec.CheckOutAt = &at
	rec.LastLocation = nil
	out := rec.toDTO()
	return &out, nil
}

func (s *Service) List(ctx context.Context, q ListQuery) ([]RecordResponse, error) {
	recs, err := s.store.List(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]RecordResponse, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toDTO())
	}
	return out, nil
}

// ===== Sweep =====

type outsideAction int

const (
	actionPrompt outsideAction = iota
	actionAutoCheckout
)

// フェンス外作業者の扱い。プロンプト未送信なら送信、送信から30分未満なら再送、
// 30分以上経過していたら自動退場。昼休憩程度の離脱を即退場させないための二段構え。
func decideOutsideAction(lastPromptAt *time.Time, now time.Time) outsideAction {
	if lastPromptAt == nil {
		return actionPrompt
	}
	if now.Sub(*lastPromptAt) >= PromptGracePeriod {
		return actionAutoCheckout
	}
	return actionPrompt
}

// Sweep: 在場中（位置情報あり）の全レコードを現在のフェンス設定で照合する。
// 1件の失敗で残りを止めない。フェンス内はまとめて1行のステータスログになる。
func (s *Service) Sweep(ctx context.Context, label string) (SweepSummary, error) {
	cfg, err := s.site.GetConfig(ctx)
	if err != nil {
		return SweepSummary{}, err
	}
	recs, err := s.store.OpenWithLocation(ctx)
	if err != nil {
		return SweepSummary{}, err
	}

	now := s.now().UTC()
	sum := SweepSummary{Label: label, Checked: len(recs)}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, rec := range recs {
		wg.Add(1)
		go func(rec Record) {
			defer wg.Done()

			inside, _, err := geofence.IsInside(*rec.LastLocation, cfg.Center, cfg.AllowedRadiusMeters)
			if err != nil {
				log.Printf("[WARN] sweep %s: bad location record=%s err=%v", label, rec.ID, err)
				mu.Lock()
				sum.FailedCount++
				mu.Unlock()
				return
			}

			if inside {
				mu.Lock()
				sum.InsideCount++
				sum.InsideNames = append(sum.InsideNames, rec.DisplayName)
				mu.Unlock()
				return
			}

			switch decideOutsideAction(rec.LastPromptAt, now) {
			case actionAutoCheckout:
				reason := fmt.Sprintf("auto checkout: outside geofence at sweep %s", label)
				if err := s.store.MarkCheckedOut(ctx, rec.ID, now, true, reason); err != nil {
					log.Printf("[WARN] sweep %s: auto checkout failed record=%s err=%v", label, rec.ID, err)
					mu.Lock()
					sum.FailedCount++
					mu.Unlock()
					return
				}
				mu.Lock()
				sum.AutoCheckedOut = append(sum.AutoCheckedOut, rec.DisplayName)
				mu.Unlock()
			case actionPrompt:
				if err := s.notify.SendCheckoutPrompt(ctx, rec); err != nil {
					log.Printf("[WARN] sweep %s: prompt send failed record=%s err=%v", label, rec.ID, err)
					// 送信失敗でもスタンプはしない（次回また送る）
					mu.Lock()
					sum.FailedCount++
					mu.Unlock()
					return
				}
				if err := s.store.StampPrompt(ctx, rec.ID, now); err != nil {
					log.Printf("[WARN] sweep %s: prompt stamp failed record=%s err=%v", label, rec.ID, err)
					mu.Lock()
					sum.FailedCount++
					mu.Unlock()
					return
				}
				mu.Lock()
				sum.PromptedCount++
				mu.Unlock()
			}
		}(rec)
	}
	wg.Wait()

	if err := s.store.InsertSweepLog(ctx, &SweepLog{
		Label:          label,
		InsideCount:    sum.InsideCount,
		InsideNames:    sum.InsideNames,
		PromptedCount:  sum.PromptedCount,
		AutoCheckedOut: sum.AutoCheckedOut,
		FailedCount:    sum.FailedCount,
		CreatedAt:      now,
	}); err != nil {
		log.Printf("[WARN] sweep %s: status log insert failed: %v", label, err)
	}

	log.Printf("[INFO] sweep %s: checked=%d inside=%d prompted=%d auto_checked_out=%d failed=%d",
		label, sum.Checked, sum.InsideCount, sum.PromptedCount, len(sum.AutoCheckedOut), sum.FailedCount)
	return sum, nil
}
