package constants

import "time"

// Context keys set by the auth and access middleware
const (
	ContextKeyUserID = "user_id"
	ContextKeyUser   = "user"
	ContextKeyClaims = "token_claims"
	ContextKeyTask   = "task"
)

// Session
const (
	SessionCookieName = "task_session"
	SessionKeyToken   = "token"
	SessionMaxAge     = 86400 * 7
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
	DefaultSort     = "-createdAt"
)

// Validation limits
const (
	MinUsernameLength    = 3
	MaxUsernameLength    = 30
	MinPasswordLength    = 8
	MaxTitleLength       = 200
	MaxDescriptionLength = 1000
	MaxAIGeneratedTasks  = 20
)

// Cache
const (
	DefaultCacheTTL   = 300 * time.Second
	ProfileCacheTTL   = 60 * time.Second
	AnalyticsCacheKey = "analytics"
)
