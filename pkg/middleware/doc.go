// Package middleware はこのAPIの認可ゲートと共通ミドルウェアを提供する。
//
// JWTトークンの発行・検証（Bearer認証）、パニックリカバリ、CORS設定を含む。
// 認可の失敗は内部的に分類してログへ残すが、クライアントには常に同一の
// 汎用401レスポンスを返す。
package middleware
