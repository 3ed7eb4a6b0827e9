package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleAdmin  = "admin"
	RoleWorker = "worker"

	adminTokenTTL  = 24 * time.Hour
	workerTokenTTL = 24 * time.Hour
)

var (
	ErrAlreadyExists   = errors.New("already exists")
	ErrNotFound        = errors.New("not found")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// JWT秘密鍵は設定ファイル経由で注入する（グローバル保持はしない）
type Service struct {
	secret     []byte
	accounts   AccountStore
	principals PrincipalStore
}

func NewService(sqldb *sql.DB, secret []byte) *Service {
	s := NewStore(sqldb)
	return &Service{secret: secret, accounts: s, principals: s}
}

func NewServiceWithStores(secret []byte, accounts AccountStore, principals PrincipalStore) *Service {
	return &Service{secret: secret, accounts: accounts, principals: principals}
}

// 検証済みトークンの中身
type Identity struct {
	Subject string
	Role    string
}

// ===== admin =====

func (s *Service) Login(ctx context.Context, id, password string) (string, error) {
	acct, err := s.accounts.GetAccount(ctx, id)
	if err != nil {
		return "", err
	}
	if acct == nil {
		return "", errors.New("authentication failed")
	}
	if acct.IsDisabled {
		return "", errors.New("account disabled")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return "", errors.New("authentication failed")
	}

	return s.sign(jwt.MapClaims{
		"sub":  acct.ID,
		"role": acct.Role,
		"exp":  time.Now().Add(adminTokenTTL).Unix(),
	})
}

func (s *Service) Register(ctx context.Context, id, password, role string) error {
	exists, err := s.accounts.GetAccount(ctx, id)
	if err != nil {
		return err
	}
	if exists != nil {
		return ErrAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return s.accounts.CreateAccount(ctx, &Account{
		ID:           id,
		PasswordHash: string(hash),
		Role:         role,
		IsDisabled:   false,
	})
}

// EnsureAdmin: 起動時の初代管理者ブートストラップ。既にあれば何もしない。
func (s *Service) EnsureAdmin(ctx context.Context, id, password string) error {
	err := s.Register(ctx, id, password, RoleAdmin)
	if errors.Is(err, ErrAlreadyExists) {
		return nil
	}
	return err
}

// ===== worker (匿名認証) =====

// AuthenticateAnonymous: 電話番号で principal を引き当て（なければ作成）、
// token_version 入りのトークンを発行する。失効後の旧トークンは ver 不一致で弾かれる。
func (s *Service) AuthenticateAnonymous(ctx context.Context, phone string) (string, error) {
	if phone == "" {
		return "", errors.New("phone is required")
	}
	p, err := s.principals.PrincipalByPhone(ctx, phone)
	if err != nil {
		return "", err
	}
	if p == nil {
		p = &Principal{ID: ulid.Make().String(), Phone: phone, TokenVersion: 1}
		if err := s.principals.CreatePrincipal(ctx, p); err != nil {
			return "", err
		}
	}
	return s.sign(jwt.MapClaims{
		"sub":  p.ID,
		"role": RoleWorker,
		"ver":  p.TokenVersion,
		"exp":  time.Now().Add(workerTokenTTL).Unix(),
	})
}

func (s *Service) sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// VerifyToken: 署名・期限に加えて、worker トークンは token_version の一致も確認する。
func (s *Service) VerifyToken(ctx context.Context, tokenStr string) (*Identity, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		// alg 固定（none攻撃とか回避）
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || token == nil || !token.Valid {
		return nil, ErrUnauthenticated
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrUnauthenticated
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrUnauthenticated
	}
	role, _ := claims["role"].(string)

	if role == RoleWorker {
		verF, ok := claims["ver"].(float64)
		if !ok {
			return nil, ErrUnauthenticated
		}
		p, err := s.principals.PrincipalByID(ctx, sub)
		if err != nil {
			return nil, err
		}
		if p == nil || p.TokenVersion != int64(verF) {
			// 失効済み（日次リセットの revoke 後など）
			return nil, ErrUnauthenticated
		}
	}

	return &Identity{Subject: sub, Role: role}, nil
}
