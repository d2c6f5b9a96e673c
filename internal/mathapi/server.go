package mathapi

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"mathapi/pkg/calc"
	"mathapi/pkg/middleware"
)

// Server は計算APIのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// jwtSecret はJWT署名用の秘密鍵。
	jwtSecret string
	// tokenExpiry は発行するトークンの有効期間。
	tokenExpiry time.Duration
	// audit はリクエスト監査ログのストア。無効時はnil。
	audit *auditStore
	// db は監査ログ用のSQLiteデータベース接続。無効時はnil。
	db *sql.DB
}

// NewServer は新しい計算APIサーバーを生成する。
// AUDIT_DB_PATHが設定されている場合のみSQLiteの監査ログを有効にする。
func NewServer(port string) (*Server, error) {
	jwtSecret := getEnvOr("JWT_SECRET", "dev-secret-key")

	expiryMinutes, err := strconv.Atoi(getEnvOr("TOKEN_EXPIRY_MINUTES", "30"))
	if err != nil || expiryMinutes <= 0 {
		return nil, fmt.Errorf("TOKEN_EXPIRY_MINUTESが不正: %q", os.Getenv("TOKEN_EXPIRY_MINUTES"))
	}

	var sqlDB *sql.DB
	var audit *auditStore
	if auditPath := os.Getenv("AUDIT_DB_PATH"); auditPath != "" {
		sqlDB, err = sql.Open("sqlite", auditPath+"?_journal_mode=WAL&_busy_timeout=5000")
		if err != nil {
			return nil, fmt.Errorf("監査ログデータベースの接続に失敗: %w", err)
		}
		if err := initSchema(sqlDB); err != nil {
			return nil, fmt.Errorf("監査ログスキーマの初期化に失敗: %w", err)
		}
		audit = newAuditStore(sqlDB)
	}

	origins := strings.Split(getEnvOr("API_CORS_ORIGINS", "http://localhost"), ",")

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS(origins))

	s := &Server{
		router:      router,
		port:        port,
		jwtSecret:   jwtSecret,
		tokenExpiry: time.Duration(expiryMinutes) * time.Minute,
		audit:       audit,
		db:          sqlDB,
	}
	s.setupRoutes()

	return s, nil
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	if s.audit != nil {
		s.router.Use(s.auditLog())
	}

	// トークン発行エンドポイント（認証不要）
	s.router.POST("/token_admin", s.handleIssueToken("admin", middleware.RoleAdmin))
	s.router.POST("/token_tester", s.handleIssueToken("tester", middleware.RoleTester))

	// 計算エンドポイント（認証必須。ロールは管理者・テスターのどちらでもよい）
	protected := s.router.Group("/")
	protected.Use(middleware.JWTAuth(s.jwtSecret))
	{
		protected.POST("/somar", s.handleSum())
		protected.POST("/calcular_media", s.handleAverage())
	}

	// ヘルスチェック（認証不要）
	s.router.GET("/saude", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// numbersRequest は計算エンドポイントのリクエストボディ。
// 要素の型は検証前のため任意の値として受け取り、検証と整数への変換は
// calcパッケージが行う。
type numbersRequest struct {
	// Numeros は検証前の数値リスト。
	Numeros any `json:"numeros"`
}

// handleIssueToken は指定された固定サブジェクトとアクセスレベルの
// トークンを発行するハンドラを返す。パスワード認証は行わない。
func (s *Server) handleIssueToken(subject string, role middleware.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := middleware.GenerateToken(s.jwtSecret, subject, role, s.tokenExpiry)
		if err != nil {
			log.Printf("トークン発行エラー: subject=%s: %v", subject, err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"erro":     "erro_interno",
				"detalhes": "トークンの生成に失敗しました",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"access_token": token,
			"token_type":   "bearer",
		})
	}
}

// handleSum は数値リストの合計を返すハンドラを返す。
func (s *Server) handleSum() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req numbersRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"erro":     "erro_de_tipo",
				"detalhes": "リクエストボディをJSONとして解釈できません。'numeros'フィールドを含むオブジェクトを指定してください",
			})
			return
		}

		result, err := calc.SumNumbers(req.Numeros)
		if err != nil {
			renderCalcError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"resultado": result})
	}
}

// handleAverage は数値リストの算術平均を返すハンドラを返す。
// 空のリストはエラーではなくnullの平均として扱う。
func (s *Server) handleAverage() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req numbersRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"erro":     "erro_de_tipo",
				"detalhes": "リクエストボディをJSONとして解釈できません。'numeros'フィールドを含むオブジェクトを指定してください",
			})
			return
		}

		avg, ok, err := calc.CalculateAverage(req.Numeros)
		if err != nil {
			renderCalcError(c, err)
			return
		}
		if !ok {
			c.JSON(http.StatusOK, gin.H{"media": nil})
			return
		}

		c.JSON(http.StatusOK, gin.H{"media": avg})
	}
}

// renderCalcError はcalcパッケージのエラーをHTTPレスポンスへ変換する。
// 型エラーは400、値エラーは422、それ以外は詳細を含まない500とする。
func renderCalcError(c *gin.Context, err error) {
	var typeErr *calc.TypeError
	if errors.As(err, &typeErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"erro":     "erro_de_tipo",
			"detalhes": typeErr.Error(),
		})
		return
	}

	var valueErr *calc.ValueError
	if errors.As(err, &valueErr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"erro":     "erro_de_valor",
			"detalhes": valueErr.Error(),
		})
		return
	}

	log.Printf("計算エラー: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"erro":     "erro_interno",
		"detalhes": "サーバー内部でエラーが発生しました",
	})
}

// auditLog はレスポンス送信後にリクエストを監査ログへ記録する
// Ginミドルウェアを返す。記録の失敗はレスポンスに影響させない。
func (s *Server) auditLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		rec := requestRecord{
			ID:       uuid.New().String(),
			Method:   c.Request.Method,
			Path:     c.Request.URL.Path,
			Status:   c.Writer.Status(),
			Subject:  middleware.GetSubject(c),
			Role:     string(middleware.GetRole(c)),
			ClientIP: c.ClientIP(),
		}
		if err := s.audit.Record(c.Request.Context(), rec); err != nil {
			log.Printf("監査ログ記録エラー: %s %s: %v", rec.Method, rec.Path, err)
		}
	}
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
