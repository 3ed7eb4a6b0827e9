package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
)

// ストアのアトミックバッチ上限。1バッチ=1トランザクション。
const MaxBatchOps = 500

// Chunk: items を size 個ずつに分割する。size<=0 は MaxBatchOps 扱い。
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = MaxBatchOps
	}
	var out [][]T
	for len(items) > 0 {
		n := size
		if len(items) < n {
			n = len(items)
		}
		out = append(out, items[:n])
		items = items[n:]
	}
	return out
}

// 1バッチ分の処理結果
type BatchOutcome struct {
	Committed int // コミットできたバッチ数
	Failed    int
	Affected  int64 // 影響行数の合計（コミット分のみ）
	Errs      []error
}

func (o BatchOutcome) Err() error {
	if o.Failed == 0 {
		return nil
	}
	return fmt.Errorf("%d/%d batches failed: %v", o.Failed, o.Committed+o.Failed, o.Errs[0])
}

// BatchFn は1バッチ（≤ MaxBatchOps 操作）をTx内で実行し影響行数を返す
type BatchFn func(ctx context.Context, tx DBTX) (int64, error)

// CommitAll: 各バッチを独立したTxとして並行コミットし、全件完了を待つ。
// バッチ単位でアトミック。失敗はバッチごとに収集し、他バッチを止めない。
func CommitAll(ctx context.Context, sqldb *sql.DB, batches []BatchFn) BatchOutcome {
	var (
		mu  sync.Mutex
		out BatchOutcome
		wg  sync.WaitGroup
	)
	for _, fn := range batches {
		wg.Add(1)
		go func(fn BatchFn) {
			defer wg.Done()
			var n int64
			err := RunInTx(ctx, sqldb, nil, func(ctx context.Context, tx DBTX) error {
				var err error
				n, err = fn(ctx, tx)
				return err
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				out.Failed++
				out.Errs = append(out.Errs, err)
				return
			}
			out.Committed++
			out.Affected += n
		}(fn)
	}
	wg.Wait()
	return out
}

// DeleteIDsInBatches: id リストを MaxBatchOps ごとに分割して並行削除する。
// table はコード内の定数のみ渡すこと（プレースホルダ不可のため）。
func DeleteIDsInBatches(ctx context.Context, sqldb *sql.DB, table string, ids []string) BatchOutcome {
	var batches []BatchFn
	for _, chunk := range Chunk(ids, MaxBatchOps) {
		chunk := chunk
		batches = append(batches, func(ctx context.Context, tx DBTX) (int64, error) {
			q := fmt.Sprintf("DELETE FROM %s WHERE id IN (%s)", table, Placeholders(len(chunk)))
			res, err := tx.ExecContext(ctx, q, toAny(chunk)...)
			if err != nil {
				return 0, err
			}
			n, _ := res.RowsAffected()
			return n, nil
		})
	}
	return CommitAll(ctx, sqldb, batches)
}

// "?, ?, ?" を n 個生成
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
