package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionDeadlineKey returns the cache key for a session's quiz deadline.
func (r *CacheKeyStruct) SessionDeadlineKey(sessionID string) string {
	return fmt.Sprintf("session:%s:deadline", sessionID)
}

// IntegrityChannel returns the Redis PubSub channel carrying live
// integrity events for the proctor monitor.
func (r *CacheKeyStruct) IntegrityChannel() string {
	return "integrity:events"
}

var CacheKey = NewCacheKeyStruct()
