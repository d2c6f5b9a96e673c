// Package mathapi は整数リストの合計・平均を計算するHTTP APIの内部実装を提供する。
//
// 計算エンドポイント（/somar, /calcular_media）はJWT Bearer認証で保護し、
// ヘルスチェック（/saude）とトークン発行（/token_admin, /token_tester）は
// 認証なしで公開する。リクエスト間で共有する可変状態は持たない。
// 監査用のリクエストログをSQLiteへ記録できるが、リクエスト処理が
// その内容を参照することはない。
package mathapi
