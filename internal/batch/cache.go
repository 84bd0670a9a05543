package batch

import (
	"container/list"
	"sync"
	"time"

	"github.com/whisperlive/whisperlive/internal/transcript"
)

// JobResult is the client-visible state of a batch job.
type JobResult struct {
	Status                string               `json:"status"`
	Message               string               `json:"message,omitempty"`
	RequestID             string               `json:"request_id"`
	TranscriptLocation    string               `json:"transcript_location,omitempty"`
	ProcessingTimeSeconds float64              `json:"processing_time_seconds,omitempty"`
	ErrorDetails          string               `json:"error_details,omitempty"`
	Result                *transcript.Document `json:"result,omitempty"`
}

type cacheEntry struct {
	requestID string
	result    JobResult
	expiresAt time.Time
}

// ResultCache is a bounded TTL cache of recent job results, so result
// polling does not hit the database or the transcript bucket for hot
// entries. Capacity eviction is least-recently-used.
type ResultCache struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	entries map[string]*list.Element
	order   *list.List
	now     func() time.Time
}

func NewResultCache(maxSize int, ttl time.Duration) *ResultCache {
	if maxSize <= 0 {
		maxSize = 1024
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ResultCache{
		maxSize: maxSize,
		ttl:     ttl,
		entries: make(map[string]*list.Element),
		order:   list.New(),
		now:     time.Now,
	}
}

// Set stores or replaces the result for a request id.
func (c *ResultCache) Set(requestID string, result JobResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[requestID]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.result = result
		entry.expiresAt = c.now().Add(c.ttl)
		c.order.MoveToFront(elem)
		return
	}

	for len(c.entries) >= c.maxSize {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).requestID)
	}

	c.entries[requestID] = c.order.PushFront(&cacheEntry{
		requestID: requestID,
		result:    result,
		expiresAt: c.now().Add(c.ttl),
	})
}

// Get returns the cached result for a request id, if present and fresh.
func (c *ResultCache) Get(requestID string) (JobResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[requestID]
	if !ok {
		return JobResult{}, false
	}
	entry := elem.Value.(*cacheEntry)
	if c.now().After(entry.expiresAt) {
		c.order.Remove(elem)
		delete(c.entries, requestID)
		return JobResult{}, false
	}
	c.order.MoveToFront(elem)
	return entry.result, true
}

// Len reports the number of cached entries, expired ones included until
// they are read or evicted.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
