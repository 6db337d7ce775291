package server

import (
	"sync"

	"golang.org/x/time/rate"
)

// limiterSet hands out one token-bucket limiter per remote address.
type limiterSet struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	r        rate.Limit
	burst    int
}

func newLimiterSet(r rate.Limit, burst int) *limiterSet {
	return &limiterSet{limiters: make(map[string]*rate.Limiter), r: r, burst: burst}
}

func (s *limiterSet) allow(key string) bool {
	s.mu.Lock()
	l, ok := s.limiters[key]
	if !ok {
		l = rate.NewLimiter(s.r, s.burst)
		s.limiters[key] = l
	}
	s.mu.Unlock()
	return l.Allow()
}
