package services

import "time"

const (
	KeyUserSession  = "user:%d:session:%s"
	KeyUserInfo     = "user:%d:info"
	KeyProfile      = "profile:%d"
	KeyProfileIndex = "profiles:index"
	KeyAdminLog     = "admin:logs"
	KeyRateLimit    = "ratelimit:%d:%s"

	TTLUserSession = 24 * time.Hour
	TTLUserInfo    = 30 * 24 * time.Hour // 30 days

	AdminLogSize = 100

	DefaultRateLimitRequests = 5 // withdrawal/deposit requests per window
	DefaultRateLimitWindow   = time.Minute
)
