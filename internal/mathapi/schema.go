package mathapi

import (
	"database/sql"
	"fmt"
)

// 監査ログのスキーマ定義。
const schema = `
CREATE TABLE IF NOT EXISTS request_log (
    -- レコードの一意識別子
    id TEXT PRIMARY KEY,
    -- HTTPメソッド
    method TEXT NOT NULL,
    -- リクエストパス
    path TEXT NOT NULL,
    -- レスポンスのHTTPステータスコード
    status INTEGER NOT NULL,
    -- 認証済みサブジェクト。未認証エンドポイントでは空
    subject TEXT NOT NULL DEFAULT '',
    -- 認証済みアクセスレベル。未認証エンドポイントでは空
    role TEXT NOT NULL DEFAULT '',
    -- クライアントのIPアドレス
    client_ip TEXT NOT NULL DEFAULT '',
    -- 記録日時（RFC3339形式）
    created_at TEXT NOT NULL
);

-- 時系列での参照を高速化するインデックス。
CREATE INDEX IF NOT EXISTS idx_request_log_created_at
    ON request_log(created_at);
`

// initSchema はSQLiteデータベースにスキーマを適用する。
func initSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("スキーマの適用に失敗: %w", err)
	}
	return nil
}
