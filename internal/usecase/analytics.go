package usecase

import (
	"sync"
	"time"

	"people-partner/internal/category"
)

// Analytics counts consultations per category for the lifetime of the process.
type Analytics struct {
	mu    sync.Mutex
	start time.Time
	total int
	usage map[string]int
}

type AnalyticsSnapshot struct {
	TotalQueries  int            `json:"total_queries"`
	CategoryUsage map[string]int `json:"category_usage"`
	StartTime     time.Time      `json:"start_time"`
	UptimeSeconds float64        `json:"uptime_seconds"`
}

func NewAnalytics(start time.Time) *Analytics {
	return &Analytics{start: start.UTC(), usage: make(map[string]int)}
}

func (a *Analytics) Record(c category.Category) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total++
	a.usage[c.Key()]++
}

func (a *Analytics) Snapshot(now time.Time) AnalyticsSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	usage := make(map[string]int, len(a.usage))
	for k, v := range a.usage {
		usage[k] = v
	}
	return AnalyticsSnapshot{
		TotalQueries:  a.total,
		CategoryUsage: usage,
		StartTime:     a.start,
		UptimeSeconds: now.Sub(a.start).Seconds(),
	}
}
