package constants

import "time"

const (
	EmailMaxLength     = 254
	PasswordMinLength  = 8
	PasswordMaxLength  = 72
	JWTSecretMinLength = 32
	RefreshTokenSize   = 32

	BoardNameMaxLength   = 120
	ListTitleMaxLength   = 120
	CardTitleMaxLength   = 200
	CardBodyMaxLength    = 10000
	CommentBodyMaxLength = 4000
	LabelNameMaxLength   = 40

	DefaultMaxRequestSize = 1 << 20

	BoardIDHeader = "X-Board-Id"

	RateLimitFixedRequests = 10
	RateLimitFixedWindow   = 10 * time.Second
	RateLimitBlockRequests = 5
	RateLimitBlockWindow   = 5 * time.Minute
	RateLimitCleanupEvery  = time.Minute

	DBPoolMaxOpenConns    = 25
	DBPoolMinOpenConns    = 5
	DBPoolConnMaxLifetime = time.Hour
	DBPoolConnMaxIdleTime = 30 * time.Minute
	DBPoolHealthCheck     = time.Minute
	DBPoolConnectTimeout  = 5 * time.Second
	DBPoolMaxAttempts     = 10
	DBPoolRetryDelay      = time.Second
	DBPoolMetricsInterval = 30 * time.Second
	DBQueryTimeout        = 30 * time.Second

	ServerReadHeaderTimeout = 10 * time.Second
	ServerReadTimeout       = 30 * time.Second
	ServerWriteTimeout      = 30 * time.Second
	ServerIdleTimeout       = 120 * time.Second

	ShutdownTimeout = 30 * time.Second
	DrainTimeout    = 10 * time.Second

	DefaultHTTPPort        = "8080"
	DefaultRequestTimeout  = 5 * time.Second
	DefaultAccessTokenTTL  = time.Hour
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour

	RefreshTokenCleanupEvery = time.Hour

	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 1024
	WebSocketWriteWait       = 10 * time.Second
	WebSocketPongWait        = 60 * time.Second
	WebSocketPingPeriod      = 54 * time.Second
	WebSocketSendBufSize     = 64

	LoggerMaxSize    = 100
	LoggerMaxBackups = 3
	LoggerMaxAge     = 28
)

type TraceIDKeyType string

const TraceIDKey TraceIDKeyType = "trace_id"
