package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 30 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerWriteTimeout    = 30 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Migrations must finish before the server starts accepting traffic.
const MigrationTimeout = 60 * time.Second

// Background job intervals
const CleanupJobInterval = 5 * time.Minute

// OAuth state tokens live only for the round trip to Google.
const OAuthStateTTL = 10 * time.Minute

// Number of topics shown on the leaderboard
const LeaderboardSize = 5

// Bounds a store's first load. It is detached from the request that
// triggered it, since later requests share the result.
const StoreInitTimeout = 15 * time.Second

// The per-user vote cache is a hint; stale entries simply age out.
const VoteCacheTTL = 7 * 24 * time.Hour

// Sign-in redirects allowed per client IP within RateLimitWindow
const LoginRateLimitPerWindow = 10

const RateLimitWindow = time.Minute
