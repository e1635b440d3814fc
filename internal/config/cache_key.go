package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionDeadlineKey returns the cache key holding a user's absolute exam
// deadline, the recovery anchor for the countdown after a reload.
func (r *CacheKeyStruct) SessionDeadlineKey(userID string, examID string) string {
	return fmt.Sprintf("user:%s:exam:%s:deadline", userID, examID)
}

var CacheKey = NewCacheKeyStruct()
