package middleware

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role は認証済みユーザーのアクセスレベルを表す。
type Role string

const (
	// RoleAdmin は管理者を表す。
	RoleAdmin Role = "admin"
	// RoleTester はテスターを表す。
	RoleTester Role = "tester"
)

// Claims はJWTトークンのクレーム（ペイロード）を表す。
// サブジェクトとアクセスレベルを保護エンドポイントへ伝播するために使用する。
type Claims struct {
	jwt.RegisteredClaims
	// Role はトークン保持者のアクセスレベル。
	Role Role `json:"role"`
}

// 検証失敗の内部分類。ログにのみ残し、クライアントへのレスポンスでは区別しない。
var (
	// ErrMissingCredential はAuthorizationヘッダーが無い、またはBearer形式でないことを表す。
	ErrMissingCredential = errors.New("認証情報が提示されていません")
	// ErrInvalidSignature はトークンの署名検証に失敗したことを表す。
	ErrInvalidSignature = errors.New("トークンの署名が不正です")
	// ErrExpired はトークンの有効期限が切れていることを表す。
	ErrExpired = errors.New("トークンの有効期限が切れています")
	// ErrMalformedClaims はトークンまたはクレームの形式が不正なことを表す。
	ErrMalformedClaims = errors.New("トークンのクレームが不正です")
)

// tokenIssuer は発行するトークンのissクレーム値。
const tokenIssuer = "mathapi"

// コンテキストキー。JWTAuthが設定し、ハンドラがGetSubject/GetRoleで参照する。
const (
	ctxKeySubject = "subject"
	ctxKeyRole    = "role"
)

// GenerateToken はサブジェクトとアクセスレベルから署名付きJWTトークンを生成する。
// トークン発行エンドポイントが呼び出す。
func GenerateToken(secret, subject string, role Role, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			ID:        uuid.New().String(),
		},
		Role: role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("JWTトークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// VerifyToken はトークン文字列を検証し、クレームを返す。
// 失敗はErrInvalidSignature・ErrExpired・ErrMalformedClaimsのいずれかに分類する。
func VerifyToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("予期しない署名アルゴリズム: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrInvalidSignature
	case err != nil, !token.Valid:
		return nil, ErrMalformedClaims
	}

	if claims.Role != RoleAdmin && claims.Role != RoleTester {
		return nil, ErrMalformedClaims
	}
	return claims, nil
}

// JWTAuth はBearerトークンを検証するGinミドルウェアを返す。
// 検証に失敗したリクエストは401で即座に拒否する。どの検証で失敗したかは
// ログにのみ残し、レスポンスは常に同一の汎用メッセージとする
// （トークン推測の手がかりを与えないため）。
// 成功した場合はコンテキストにサブジェクトとアクセスレベルを設定する。
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := authenticate(secret, c.GetHeader("Authorization"))
		if err != nil {
			log.Printf("認証失敗: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"erro":     "nao_autorizado",
				"detalhes": "認証情報が無効です。有効なBearerトークンを提示してください",
			})
			return
		}

		c.Set(ctxKeySubject, claims.Subject)
		c.Set(ctxKeyRole, claims.Role)
		c.Next()
	}
}

// authenticate はAuthorizationヘッダーからトークンを取り出して検証する。
func authenticate(secret, authHeader string) (*Claims, error) {
	if authHeader == "" {
		return nil, ErrMissingCredential
	}
	tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
	if !found {
		return nil, ErrMissingCredential
	}
	return VerifyToken(secret, tokenString)
}

// GetSubject はGinコンテキストから認証済みサブジェクトを取得する。
// JWTAuthミドルウェアが事前に適用されている必要がある。
func GetSubject(c *gin.Context) string {
	v, _ := c.Get(ctxKeySubject)
	if subject, ok := v.(string); ok {
		return subject
	}
	return ""
}

// GetRole はGinコンテキストから認証済みアクセスレベルを取得する。
// 未認証の場合は空のRoleを返す。
func GetRole(c *gin.Context) Role {
	v, _ := c.Get(ctxKeyRole)
	if role, ok := v.(Role); ok {
		return role
	}
	return ""
}
