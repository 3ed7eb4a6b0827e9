package bulletin

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/text/language"

	"safesite-backend/internal/department"
)

// ===== Error model =====
type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeInternal        Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string      { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func ErrInvalid(msg string) *APIError  { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrNotFound(msg string) *APIError { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrInternal(msg string) *APIError { return &APIError{Code: CodeInternal, Message: msg} }

func toHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument:
			return 400
		case CodeNotFound:
			return 404
		default:
			return 500
		}
	}
	return 500
}

// ===== Service =====

// 翻訳プロバイダは不透明な外部コラボレータ。実装は外側で差し替える。
type Translator interface {
	Translate(ctx context.Context, text string) (map[string]string, error)
}

type NoopTranslator struct{}

func (NoopTranslator) Translate(context.Context, string) (map[string]string, error) {
	return nil, nil
}

type Service struct {
	store     BulletinStore
	translate Translator
	now       func() time.Time
}

func NewService(store BulletinStore, t Translator) *Service {
	if t == nil {
		t = NoopTranslator{}
	}
	return &Service{store: store, translate: t, now: time.Now}
}

type CreateInput struct {
	Title        string
	Body         string
	TargetType   string
	TargetIDs    []string
	IsPersistent bool
	ExpiresAt    *time.Time
}

// Create: 掲示を保存してから対象レコードへファンアウトする。
// 翻訳の失敗は掲示自体を失敗させない（原文のみで配る）。
func (s *Service) Create(ctx context.Context, in CreateInput) (*Bulletin, int, error) {
	if in.Title == "" {
		return nil, 0, ErrInvalid("title is required")
	}
	switch in.TargetType {
	case TargetAll:
		if len(in.TargetIDs) > 0 {
			return nil, 0, ErrInvalid("target_ids must be empty for broadcast")
		}
	case TargetCompany, TargetTeam:
		if len(in.TargetIDs) == 0 {
			return nil, 0, ErrInvalid("target_ids required for company/team target")
		}
	default:
		return nil, 0, ErrInvalid("target_type must be all, company or team")
	}
	if in.IsPersistent && in.ExpiresAt == nil {
		return nil, 0, ErrInvalid("expires_at is required for persistent bulletins")
	}

	b := &Bulletin{
		ID:           ulid.Make().String(),
		Title:        in.Title,
		Body:         in.Body,
		TargetType:   in.TargetType,
		TargetIDs:    in.TargetIDs,
		IsPersistent: in.IsPersistent,
		ExpiresAt:    in.ExpiresAt,
		CreatedAt:    s.now().UTC(),
	}

	if trans, err := s.translate.Translate(ctx, in.Body); err != nil {
		log.Printf("[WARN] bulletin translate failed: %v", err)
	} else {
		b.Translations = validLangTags(trans)
	}

	if err := s.store.Insert(ctx, b); err != nil {
		return nil, 0, err
	}

	annotated, err := s.FanOut(ctx, b)
	if err != nil {
		// 掲示自体は保存済み。ファンアウト失敗は件数0で返してログに残す
		log.Printf("[ERROR] bulletin fan-out failed: id=%s err=%v", b.ID, err)
		return b, annotated, nil
	}
	return b, annotated, nil
}

// 翻訳サービスが返すキーは信用せず、BCP 47 として解釈できるものだけ採用する
func validLangTags(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for tag, text := range in {
		if _, err := language.Parse(tag); err != nil {
			log.Printf("[WARN] dropping unknown language tag %q", tag)
			continue
		}
		out[tag] = text
	}
	return out
}

// FanOut: ターゲット指定から対象レコード集合を解決して注記を書き込む。
// 複数ターゲットの和集合をレコードIDで重複排除してから更新を出す。
func (s *Service) FanOut(ctx context.Context, b *Bulletin) (int, error) {
	idSet := map[string]struct{}{}

	add := func(ids []string) {
		for _, id := range ids {
			idSet[id] = struct{}{}
		}
	}

	switch b.TargetType {
	case TargetAll:
		ids, err := s.store.AllRecordIDs(ctx)
		if err != nil {
			return 0, err
		}
		add(ids)

	default:
		for _, targetID := range b.TargetIDs {
			d, err := s.store.DepartmentByID(ctx, targetID)
			if err != nil {
				return 0, err
			}
			if d == nil {
				log.Printf("[WARN] fan-out target %s not found, skipping", targetID)
				continue
			}

			switch {
			case b.TargetType == TargetCompany && d.Type == department.TypeCompany:
				// "会社名 - " 前方一致 ＋ 会社名単独（チーム未所属）
				prefixed, err := s.store.RecordIDsByLabelPrefix(ctx, department.CompanyLabelPrefix(d.Name))
				if err != nil {
					return 0, err
				}
				add(prefixed)
				exact, err := s.store.RecordIDsByLabel(ctx, d.Name)
				if err != nil {
					return 0, err
				}
				add(exact)

			case b.TargetType == TargetTeam && d.Type == department.TypeTeam:
				if d.ParentID == nil {
					log.Printf("[WARN] team %s has no parent, skipping", targetID)
					continue
				}
				parent, err := s.store.DepartmentByID(ctx, *d.ParentID)
				if err != nil {
					return 0, err
				}
				if parent == nil {
					log.Printf("[WARN] parent of team %s not found, skipping", targetID)
					continue
				}
				// 親会社名込みの完全一致。同名チームが他社にいても混ざらない
				exact, err := s.store.RecordIDsByLabel(ctx, department.Label(parent.Name, d.Name))
				if err != nil {
					return 0, err
				}
				add(exact)

			default:
				log.Printf("[WARN] fan-out target %s type mismatch (%s vs %s), skipping", targetID, b.TargetType, d.Type)
			}
		}
	}

	if len(idSet) == 0 {
		return 0, nil
	}
	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	return s.store.AnnotateRecords(ctx, ids, b.ID, b.Title, s.now().UTC())
}

func (s *Service) List(ctx context.Context) ([]Bulletin, error) {
	return s.store.ListAll(ctx)
}

func (s *Service) Confirm(ctx context.Context, phone, bulletinID string) error {
	if phone == "" || bulletinID == "" {
		return ErrInvalid("phone and bulletin id are required")
	}
	return s.store.ConfirmNotice(ctx, phone, bulletinID)
}
