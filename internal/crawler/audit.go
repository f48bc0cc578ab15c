package crawler

import (
	"sync"
	"time"
)

// AuditEntry records one crawl attempt for compliance review.
type AuditEntry struct {
	URL        string    `json:"url"`
	Timestamp  time.Time `json:"timestamp"`
	Allowed    bool      `json:"allowed"`
	Reason     string    `json:"reason,omitempty"`
	StatusCode int       `json:"status_code,omitempty"`
}

// AuditLog is an append-only, in-memory log of crawl attempts. Entries are
// kept in arrival order and never silently dropped; only the operator may
// clear it.
type AuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// NewAuditLog creates an empty AuditLog.
func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

// Append records one attempt.
func (a *AuditLog) Append(entry AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

// Entries returns a copy of the log in arrival order.
func (a *AuditLog) Entries() []AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]AuditEntry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Clear empties the log.
func (a *AuditLog) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = nil
}

// Len returns the number of recorded attempts.
func (a *AuditLog) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}
