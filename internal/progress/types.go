package progress

import (
	"sort"
	"strings"
	"time"
)

// EventType represents the type of progress event
type EventType int

const (
	EventScanStart EventType = iota
	EventScanComplete
	EventIndexBuilt
	EventResolverStart
	EventProjectResolved
	EventProjectFailed
	EventSkipped
	EventFileWriting
	EventFileWritten
	EventInfo
)

// Event represents something that happened during a scan
type Event struct {
	Type      EventType
	Path      string
	Name      string // ecosystem id
	Info      string
	Reason    string
	FileCount int
	DirCount  int
	Count     int // dependencies, project roots or results depending on the event
	Warnings  int
	Duration  time.Duration
}

// Reporter is the interface the dispatcher uses to report events
type Reporter interface {
	Report(event Event)
}

// Handler processes events and produces output
type Handler interface {
	Handle(event Event)
}

// TimingEntry is the resolution time of one project root
type TimingEntry struct {
	Name     string
	Path     string
	Duration time.Duration
}

// timings collects project resolution times in arrival order
type timings []TimingEntry

// slowest returns at most n entries, longest first
func (t timings) slowest(n int) []TimingEntry {
	sorted := make([]TimingEntry, len(t))
	copy(sorted, t)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Duration > sorted[j].Duration
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// speedMarker flags resolutions that ran a build tool (slow) or parsed a
// large lock file (medium)
func speedMarker(d time.Duration) string {
	switch {
	case d >= 10*time.Second:
		return "🔴"
	case d >= time.Second:
		return "🟡"
	}
	return "🟢"
}

// trimPath keeps the last two segments of paths longer than maxLen
func trimPath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	parts := strings.Split(path, "/")
	if len(parts) <= 3 {
		return path
	}
	return ".../" + strings.Join(parts[len(parts)-2:], "/")
}
