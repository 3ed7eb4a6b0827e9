package department

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
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

type Service struct {
	store DepartmentStore
}

func NewService(store DepartmentStore) *Service {
	return &Service{store: store}
}

func (s *Service) Create(ctx context.Context, name, typ string, parentID *string) (*Department, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalid("name is required")
	}

	switch typ {
	case TypeCompany:
		if parentID != nil {
			return nil, ErrInvalid("company must not have a parent")
		}
	case TypeTeam:
		if parentID == nil || *parentID == "" {
			return nil, ErrInvalid("team requires parent_id")
		}
		parent, err := s.store.GetByID(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if parent == nil || parent.Type != TypeCompany {
			return nil, ErrInvalid("parent_id must reference an existing company")
		}
	default:
		return nil, ErrInvalid("type must be company or team")
	}

	d := &Department{
		ID:       ulid.Make().String(),
		Name:     name,
		Type:     typ,
		ParentID: parentID,
	}
	if err := s.store.Insert(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) List(ctx context.Context) ([]Department, error) {
	return s.store.ListAll(ctx)
}

// Delete: 会社の場合は配下チームを集めて1バッチで消す。
// 途中失敗で子だけ残る・親だけ消えるといった中途半端は起きない。
func (s *Service) Delete(ctx context.Context, id string) (int, error) {
	d, err := s.store.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if d == nil {
		return 0, ErrNotFound("department not found")
	}

	if d.Type == TypeTeam {
		if err := s.store.DeleteOne(ctx, id); err != nil {
			return 0, err
		}
		return 1, nil
	}

	teamIDs, err := s.store.ListTeamIDs(ctx, id)
	if err != nil {
		return 0, err
	}
	ids := append([]string{id}, teamIDs...)
	if err := s.store.DeleteCascade(ctx, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}
