package progress

import (
	"os"
	"strings"
	"sync"
	"time"
)

// Progress is the centralized verbose system. Resolution jobs report from
// several goroutines; handlers see one event at a time.
type Progress struct {
	enabled bool
	handler Handler
	mu      sync.Mutex
}

// New creates a new progress reporter
func New(enabled bool, handler Handler) *Progress {
	if handler == nil {
		handler = NewSimpleHandler(os.Stderr)
	}
	return &Progress{
		enabled: enabled,
		handler: handler,
	}
}

// Report sends an event to the handler (only if enabled)
func (p *Progress) Report(event Event) {
	if p == nil || !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler.Handle(event)
}

// Convenience methods for the dispatcher to report events

func (p *Progress) ScanStart(roots, excludePatterns []string) {
	p.Report(Event{
		Type: EventScanStart,
		Path: strings.Join(roots, ", "),
		Info: strings.Join(excludePatterns, ", "),
	})
}

func (p *Progress) IndexBuilt(files, dirs int, duration time.Duration) {
	p.Report(Event{
		Type:      EventIndexBuilt,
		FileCount: files,
		DirCount:  dirs,
		Duration:  duration,
	})
}

func (p *Progress) ResolverStart(ecosystem string, projectRoots int) {
	p.Report(Event{
		Type:  EventResolverStart,
		Name:  ecosystem,
		Count: projectRoots,
	})
}

func (p *Progress) ProjectResolved(ecosystem, path string, dependencies, warnings int, duration time.Duration) {
	p.Report(Event{
		Type:     EventProjectResolved,
		Name:     ecosystem,
		Path:     path,
		Count:    dependencies,
		Warnings: warnings,
		Duration: duration,
	})
}

func (p *Progress) ProjectFailed(ecosystem, path, reason string, duration time.Duration) {
	p.Report(Event{
		Type:     EventProjectFailed,
		Name:     ecosystem,
		Path:     path,
		Reason:   reason,
		Duration: duration,
	})
}

func (p *Progress) Skipped(ecosystem, reason string) {
	p.Report(Event{
		Type:   EventSkipped,
		Name:   ecosystem,
		Reason: reason,
	})
}

func (p *Progress) ScanComplete(results int, duration time.Duration) {
	p.Report(Event{
		Type:     EventScanComplete,
		Count:    results,
		Duration: duration,
	})
}

func (p *Progress) FileWriting(path string) {
	p.Report(Event{
		Type: EventFileWriting,
		Path: path,
	})
}

func (p *Progress) FileWritten(path string) {
	p.Report(Event{
		Type: EventFileWritten,
		Path: path,
	})
}

func (p *Progress) Info(message string) {
	p.Report(Event{
		Type: EventInfo,
		Info: message,
	})
}
