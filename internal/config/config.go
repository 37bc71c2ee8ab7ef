package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// StoreBackend はコース/デザインストアのバックエンド種別を表す。
type StoreBackend string

const (
	// StoreBackendPostgres は外部データベースをバックエンドとする（本番）。
	StoreBackendPostgres StoreBackend = "postgres"
	// StoreBackendFile はJSONファイル永続化のインメモリストアを使用する（開発用）。
	StoreBackendFile StoreBackend = "file"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database（サービスロールDSN。行レベルセキュリティをバイパスする特権経路）
	DatabaseURL string

	// Identity Provider
	IdentityURL        string // ホスト型プロバイダーのベースURL
	IdentityAnonKey    string // 匿名キー（ユーザースコープのAPI呼び出し用）
	IdentityServiceKey string // サービスロールキー（管理API呼び出し用）

	// Session
	SessionMaxAge int // セッションCookieの有効期間（秒）

	// Store
	StoreBackend StoreBackend
	DataDir      string // fileバックエンド時のJSON永続化先

	// Rate Limit（管理APIのIP単位制限）
	RateLimitAdmin     int // req/min
	RateLimitAdminAuth int // 管理者認証試行のreq/min

	// Identity ProviderへのHTTPクライアントのタイムアウト
	IdentityHTTPTimeout time.Duration

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// .envファイルが存在すれば先に読み込む（未設定の変数のみ反映される）。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	// .envは開発時の利便のため。存在しなくてもエラーにしない。
	_ = godotenv.Load()

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.IdentityURL = os.Getenv("IDENTITY_URL")
	if cfg.IdentityURL == "" {
		missing = append(missing, "IDENTITY_URL")
	}

	cfg.IdentityAnonKey = os.Getenv("IDENTITY_ANON_KEY")
	if cfg.IdentityAnonKey == "" {
		missing = append(missing, "IDENTITY_ANON_KEY")
	}

	cfg.IdentityServiceKey = os.Getenv("IDENTITY_SERVICE_KEY")
	if cfg.IdentityServiceKey == "" {
		missing = append(missing, "IDENTITY_SERVICE_KEY")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.StoreBackend = parseStoreBackend(getEnvString("STORE_BACKEND", string(StoreBackendPostgres)))
	cfg.DataDir = getEnvString("DATA_DIR", "data")
	cfg.RateLimitAdmin = getEnvInt("RATE_LIMIT_ADMIN", 60)
	cfg.RateLimitAdminAuth = getEnvInt("RATE_LIMIT_ADMIN_AUTH", 5)
	cfg.IdentityHTTPTimeout = getEnvDuration("IDENTITY_HTTP_TIMEOUT", 10*time.Second)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// parseStoreBackend はストアバックエンド指定を解釈する。
// 不正な値の場合はpostgresにフォールバックする。
func parseStoreBackend(v string) StoreBackend {
	if StoreBackend(v) == StoreBackendFile {
		return StoreBackendFile
	}
	return StoreBackendPostgres
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
