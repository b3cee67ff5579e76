package logging

import (
	"strings"
	"sync"
)

// ProgressSampler suppresses repetitive progress logs. Each task is tracked
// independently and emits when its percentage crosses a bucket boundary.
type ProgressSampler struct {
	mu         sync.Mutex
	bucketSize float64
	last       map[string]int
}

// NewProgressSampler constructs a sampler that emits when the percent crosses
// bucket boundaries (default 5%).
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 5
	}
	return &ProgressSampler{bucketSize: bucketSize, last: make(map[string]int)}
}

// ShouldLog reports whether a progress event for taskID should be logged.
// The first event seen for a task always logs.
func (s *ProgressSampler) ShouldLog(taskID string, percent float64) bool {
	if s == nil {
		return true
	}
	taskID = strings.TrimSpace(taskID)
	if percent < 0 {
		percent = 0
	}
	bucket := int(percent / s.bucketSize)
	if percent >= 100 {
		bucket = int(100 / s.bucketSize)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	last, seen := s.last[taskID]
	if seen && bucket <= last {
		return false
	}
	s.last[taskID] = bucket
	return true
}

// Forget drops the state kept for taskID (e.g. when it completes or is removed).
func (s *ProgressSampler) Forget(taskID string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	delete(s.last, strings.TrimSpace(taskID))
	s.mu.Unlock()
}
