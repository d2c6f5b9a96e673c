package mathapi

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// requestRecord は監査ログの1レコードを表す。
type requestRecord struct {
	// ID はレコードの一意識別子（UUID）。
	ID string
	// Method はHTTPメソッド。
	Method string
	// Path はリクエストパス。
	Path string
	// Status はレスポンスのHTTPステータスコード。
	Status int
	// Subject は認証済みサブジェクト。未認証エンドポイントでは空。
	Subject string
	// Role は認証済みアクセスレベル。未認証エンドポイントでは空。
	Role string
	// ClientIP はクライアントのIPアドレス。
	ClientIP string
	// CreatedAt は記録日時。
	CreatedAt time.Time
}

// timeLayout は記録日時の保存形式。固定幅のため文字列比較が時系列順になる。
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// auditStore はリクエスト監査ログのSQLiteストア。追記専用で、
// リクエスト処理がこのストアを読むことはない。
type auditStore struct {
	db *sql.DB
}

// newAuditStore は監査ログストアを生成する。
func newAuditStore(db *sql.DB) *auditStore {
	return &auditStore{db: db}
}

// Record は監査ログに1レコードを追記する。
// CreatedAtが未設定の場合は現在時刻を使用する。
func (s *auditStore) Record(ctx context.Context, rec requestRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	const query = `
INSERT INTO request_log (id, method, path, status, subject, role, client_ip, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.Method, rec.Path, rec.Status, rec.Subject, rec.Role, rec.ClientIP,
		createdAt.Format(timeLayout),
	); err != nil {
		return fmt.Errorf("監査ログの書き込みに失敗: %w", err)
	}
	return nil
}

// ListRecent は新しい順に最大limit件の監査ログを返す。運用確認とテスト用。
func (s *auditStore) ListRecent(ctx context.Context, limit int) ([]requestRecord, error) {
	const query = `
SELECT id, method, path, status, subject, role, client_ip, created_at
FROM request_log
ORDER BY created_at DESC, id
LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("監査ログの読み取りに失敗: %w", err)
	}
	defer rows.Close()

	var records []requestRecord
	for rows.Next() {
		var rec requestRecord
		var createdAt string
		if err := rows.Scan(
			&rec.ID, &rec.Method, &rec.Path, &rec.Status,
			&rec.Subject, &rec.Role, &rec.ClientIP, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("監査ログの読み取りに失敗: %w", err)
		}
		rec.CreatedAt, err = time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("監査ログの記録日時の解釈に失敗: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("監査ログの読み取りに失敗: %w", err)
	}
	return records, nil
}
