package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ExamListKey returns the cache key holding the JSON list of all exams
func (r *CacheKeyStruct) ExamListKey() string {
	return "exams:all"
}

// ExamSubmittedIDsKey returns the set of student IDs that already submitted an exam
func (r *CacheKeyStruct) ExamSubmittedIDsKey(examID string) string {
	return fmt.Sprintf("exam:%s:submitted_ids", examID)
}

// ExamFeedChannel returns the Redis PubSub channel carrying an exam's submission events
func (r *CacheKeyStruct) ExamFeedChannel(examID string) string {
	return fmt.Sprintf("exam:%s:feed", examID)
}

var CacheKey = NewCacheKeyStruct()
