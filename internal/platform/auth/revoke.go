package auth

import (
	"context"
	"log"
	"sync"
)

// 失効処理のページサイズ（identity側のリスト取得上限に合わせる）
const RevokePageSize = 1000

// Revoker: identityサービスの「principal一覧」「セッション失効」に相当する層。
// 日次リセットと手動トリガの両方から同じ実装を使う（多重起動しても安全、無駄なだけ）。
type Revoker struct {
	principals PrincipalStore
}

func NewRevoker(principals PrincipalStore) *Revoker {
	return &Revoker{principals: principals}
}

// ListPrincipals: pageToken は前ページ最終の principal id。空なら先頭から。
func (r *Revoker) ListPrincipals(ctx context.Context, pageSize int, pageToken string) ([]Principal, string, error) {
	if pageSize <= 0 || pageSize > RevokePageSize {
		pageSize = RevokePageSize
	}
	page, err := r.principals.ListPrincipalPage(ctx, pageToken, pageSize)
	if err != nil {
		return nil, "", err
	}
	next := ""
	if len(page) == pageSize {
		next = page[len(page)-1].ID
	}
	return page, next, nil
}

// Revoke: 単一principalのリフレッシュトークンを失効させる
func (r *Revoker) Revoke(ctx context.Context, principalID string) error {
	return r.principals.BumpTokenVersion(ctx, principalID)
}

// RevokeAll: 全ページを順に読み、ページ内は並行で失効させる。
// 個別の失敗はログして続行し、成功件数を返す。
func (r *Revoker) RevokeAll(ctx context.Context) (int, error) {
	var (
		revoked int
		token   string
	)
	for {
		page, next, err := r.ListPrincipals(ctx, RevokePageSize, token)
		if err != nil {
			return revoked, err
		}
		if len(page) == 0 {
			break
		}

		var (
			mu sync.Mutex
			wg sync.WaitGroup
		)
		for _, p := range page {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				if err := r.Revoke(ctx, id); err != nil {
					log.Printf("[WARN] revoke failed: principal=%s err=%v", id, err)
					return
				}
				mu.Lock()
				revoked++
				mu.Unlock()
			}(p.ID)
		}
		wg.Wait()

		if next == "" {
			break
		}
		token = next
	}
	return revoked, nil
}
