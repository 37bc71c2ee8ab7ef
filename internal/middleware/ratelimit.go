package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	AdminRate       rate.Limit    // 管理API全般のレート（req/sec）。60/60 = 1 req/sec
	AdminBurst      int           // 管理API全般のバーストサイズ
	AdminAuthRate   rate.Limit    // 管理者判定エンドポイントのレート（req/sec）。5/60
	AdminAuthBurst  int           // 管理者判定エンドポイントのバーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// 要件: 管理API 60 req/min/IP、管理者判定 5 req/min/IP
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		AdminRate:       rate.Limit(60.0 / 60.0), // 1 req/sec
		AdminBurst:      60,
		AdminAuthRate:   rate.Limit(5.0 / 60.0), // ~0.083 req/sec
		AdminAuthBurst:  5,
		CleanupInterval: 5 * time.Minute,
	}
}

// ipLimiter はIPごとのレートリミッターとアクセス時刻を保持する。
type ipLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter はクライアントIPごとのレート制限を管理する。
// 管理API全般と管理者判定エンドポイント専用の2種類を提供する。
// セッションゲートは未認証リクエストも通すため、ユーザーIDではなく
// クライアントIPをキーとする。
type RateLimiter struct {
	config RateLimiterConfig

	adminMu       sync.RWMutex
	adminLimiters map[string]*ipLimiter

	adminAuthMu       sync.RWMutex
	adminAuthLimiters map[string]*ipLimiter

	stopCh chan struct{}
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:            config,
		adminLimiters:     make(map[string]*ipLimiter),
		adminAuthLimiters: make(map[string]*ipLimiter),
		stopCh:            make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// AdminMiddleware は管理API全般のレート制限ミドルウェアを返す。
func (rl *RateLimiter) AdminMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			limiter := rl.getOrCreateAdminLimiter(ip)

			if !limiter.Allow() {
				writeRateLimitResponse(w, rl.config.AdminRate)
				slog.Warn("rate limit exceeded",
					slog.String("ip", ip),
					slog.String("limit_type", "admin"),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AdminAuthMiddleware は管理者判定エンドポイント専用のレート制限ミドルウェアを返す。
// 管理API全般のレート制限とは独立に動作する。
func (rl *RateLimiter) AdminAuthMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			limiter := rl.getOrCreateAdminAuthLimiter(ip)

			if !limiter.Allow() {
				writeRateLimitResponse(w, rl.config.AdminAuthRate)
				slog.Warn("rate limit exceeded",
					slog.String("ip", ip),
					slog.String("limit_type", "admin_auth"),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AdminLimiterCount は現在管理されている管理APIリミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) AdminLimiterCount() int {
	rl.adminMu.RLock()
	defer rl.adminMu.RUnlock()
	return len(rl.adminLimiters)
}

// AdminAuthLimiterCount は現在管理されている管理者判定リミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) AdminAuthLimiterCount() int {
	rl.adminAuthMu.RLock()
	defer rl.adminAuthMu.RUnlock()
	return len(rl.adminAuthLimiters)
}

// getOrCreateAdminLimiter はIPの管理APIリミッターを取得または作成する。
func (rl *RateLimiter) getOrCreateAdminLimiter(ip string) *rate.Limiter {
	rl.adminMu.RLock()
	il, exists := rl.adminLimiters[ip]
	rl.adminMu.RUnlock()

	if exists {
		rl.adminMu.Lock()
		il.lastAccess = time.Now()
		rl.adminMu.Unlock()
		return il.limiter
	}

	rl.adminMu.Lock()
	defer rl.adminMu.Unlock()

	// ダブルチェック
	if il, exists := rl.adminLimiters[ip]; exists {
		il.lastAccess = time.Now()
		return il.limiter
	}

	limiter := rate.NewLimiter(rl.config.AdminRate, rl.config.AdminBurst)
	rl.adminLimiters[ip] = &ipLimiter{
		limiter:    limiter,
		lastAccess: time.Now(),
	}

	return limiter
}

// getOrCreateAdminAuthLimiter はIPの管理者判定リミッターを取得または作成する。
func (rl *RateLimiter) getOrCreateAdminAuthLimiter(ip string) *rate.Limiter {
	rl.adminAuthMu.RLock()
	il, exists := rl.adminAuthLimiters[ip]
	rl.adminAuthMu.RUnlock()

	if exists {
		rl.adminAuthMu.Lock()
		il.lastAccess = time.Now()
		rl.adminAuthMu.Unlock()
		return il.limiter
	}

	rl.adminAuthMu.Lock()
	defer rl.adminAuthMu.Unlock()

	// ダブルチェック
	if il, exists := rl.adminAuthLimiters[ip]; exists {
		il.lastAccess = time.Now()
		return il.limiter
	}

	limiter := rate.NewLimiter(rl.config.AdminAuthRate, rl.config.AdminAuthBurst)
	rl.adminAuthLimiters[ip] = &ipLimiter{
		limiter:    limiter,
		lastAccess: time.Now(),
	}

	return limiter
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup は最終アクセス時刻がCleanupIntervalの2倍を超えたエントリを削除する。
func (rl *RateLimiter) cleanup() {
	ttl := rl.config.CleanupInterval * 2

	now := time.Now()

	rl.adminMu.Lock()
	for ip, il := range rl.adminLimiters {
		if now.Sub(il.lastAccess) > ttl {
			delete(rl.adminLimiters, ip)
		}
	}
	rl.adminMu.Unlock()

	rl.adminAuthMu.Lock()
	for ip, il := range rl.adminAuthLimiters {
		if now.Sub(il.lastAccess) > ttl {
			delete(rl.adminAuthLimiters, ip)
		}
	}
	rl.adminAuthMu.Unlock()
}

// clientIP はリクエストからクライアントIPを取り出す。
// ポート部が分離できない場合はRemoteAddrをそのまま使う。
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーにはトークンが補充されるまでの推定秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, r rate.Limit) {
	// Retry-Afterの算出: 1トークンが補充されるまでの秒数
	retryAfterSec := int(math.Ceil(1.0 / float64(r)))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   "Too many requests. Please try again later.",
	})
}
