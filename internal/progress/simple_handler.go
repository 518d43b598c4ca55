package progress

import (
	"fmt"
	"io"
)

// slowestShown limits the timing summary printed at the end of a scan
const slowestShown = 5

// SimpleHandler outputs events as simple lines
type SimpleHandler struct {
	writer  io.Writer
	timings timings
}

func NewSimpleHandler(writer io.Writer) *SimpleHandler {
	return &SimpleHandler{writer: writer}
}

func (h *SimpleHandler) Handle(event Event) {
	switch event.Type {
	case EventScanStart:
		fmt.Fprintf(h.writer, "[SCAN] Starting: %s\n", event.Path)
		if event.Info != "" {
			fmt.Fprintf(h.writer, "[SCAN] Excluding: %s\n", event.Info)
		}

	case EventIndexBuilt:
		fmt.Fprintf(h.writer, "[SCAN] Indexed: %d files, %d directories in %.1fs\n",
			event.FileCount, event.DirCount, event.Duration.Seconds())

	case EventResolverStart:
		fmt.Fprintf(h.writer, "[ECO]  %s: %d project roots\n", event.Name, event.Count)

	case EventProjectResolved:
		h.timings = append(h.timings, TimingEntry{Name: event.Name, Path: event.Path, Duration: event.Duration})
		fmt.Fprintf(h.writer, "[DEPS] %s: %s (%d dependencies", event.Name, event.Path, event.Count)
		if event.Warnings > 0 {
			fmt.Fprintf(h.writer, ", %d warnings", event.Warnings)
		}
		fmt.Fprintf(h.writer, ") %.2fs\n", event.Duration.Seconds())

	case EventProjectFailed:
		h.timings = append(h.timings, TimingEntry{Name: event.Name, Path: event.Path, Duration: event.Duration})
		fmt.Fprintf(h.writer, "[FAIL] %s: %s (%s)\n", event.Name, event.Path, event.Reason)

	case EventSkipped:
		fmt.Fprintf(h.writer, "[SKIP] %s (%s)\n", event.Name, event.Reason)

	case EventScanComplete:
		fmt.Fprintf(h.writer, "[SCAN] Completed: %d results in %.1fs\n", event.Count, event.Duration.Seconds())
		h.printTimingSummary()

	case EventFileWriting:
		fmt.Fprintf(h.writer, "[OUT]  Writing results to: %s\n", event.Path)

	case EventFileWritten:
		fmt.Fprintf(h.writer, "[OUT]  Results written: %s\n", event.Path)

	case EventInfo:
		fmt.Fprintf(h.writer, "[INFO] %s\n", event.Info)
	}
}

// printTimingSummary lists the slowest project resolutions
func (h *SimpleHandler) printTimingSummary() {
	if len(h.timings) == 0 {
		return
	}
	fmt.Fprintf(h.writer, "[TIME] Slowest resolutions:\n")
	for _, entry := range h.timings.slowest(slowestShown) {
		fmt.Fprintf(h.writer, "[TIME]   %s %.2fs %s %s\n",
			speedMarker(entry.Duration), entry.Duration.Seconds(), entry.Name, trimPath(entry.Path, 60))
	}
}

// NullHandler discards all events
type NullHandler struct{}

func NewNullHandler() *NullHandler {
	return &NullHandler{}
}

func (h *NullHandler) Handle(event Event) {}
