package config

import "time"

const (
	// Telegram limits
	MaxTelegramMessageLen = 4096
	MaxCallbackDataLen    = 64

	// Sessions per page
	SessionsPerPage = 5

	// Rate limit burst per chat
	RateLimitBurst = 3

	// Manned counter cache duration
	CounterCacheDuration = 10 * time.Minute

	// Gateway shutdown grace period
	ShutdownTimeout = 10 * time.Second

	// Typing indicator refresh interval
	TypingInterval = 4 * time.Second
)
