package stats

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

type Stage string

const (
	StageMbox    Stage = "mbox"
	StageExtract Stage = "extract"
	StageOutput  Stage = "output"
)

type EventType string

const (
	EventTypeScanned      EventType = "scanned"
	EventTypeFiltered     EventType = "filtered"
	EventTypeDuplicate    EventType = "duplicate"
	EventTypeUnrecognized EventType = "unrecognized"
	EventTypeRecord       EventType = "record"
	EventTypeDropped      EventType = "dropped"
	EventTypeError        EventType = "error"
	EventTypeWritten      EventType = "written"
)

// Event is emitted by the pipeline for every step that affects the summary.
// Record events carry the label and price of the row produced; written
// events carry the output path in Detail.
type Event struct {
	Stage     Stage
	Type      EventType
	MessageID string
	Layout    string
	Label     string
	Price     float64
	Err       error
	Detail    string
}

// Sink receives events synchronously, in emission order.
type Sink interface {
	Handle(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Handle(evt Event) { f(evt) }

type Summary struct {
	Scanned      int
	Filtered     int
	Duplicates   int
	Unrecognized int
	Records      int
	Dropped      int
	Errors       int
	Layouts      map[string]int
	Outputs      []string
	LastError    error
}

func (s Summary) LogAttrs() []any {
	attrs := []any{
		"scanned", s.Scanned,
		"filtered", s.Filtered,
		"duplicates", s.Duplicates,
		"unrecognized", s.Unrecognized,
		"records", s.Records,
		"dropped", s.Dropped,
		"errors", s.Errors,
	}
	for _, layout := range sortedKeys(s.Layouts) {
		attrs = append(attrs, "layout."+layout, s.Layouts[layout])
	}
	if len(s.Outputs) > 0 {
		attrs = append(attrs, "outputs", strings.Join(s.Outputs, ","))
	}
	if s.LastError != nil {
		attrs = append(attrs, "lastError", s.LastError.Error())
	}
	return attrs
}

// Collector tallies events into a Summary.
type Collector struct {
	summary Summary
	seen    map[string]bool
}

func NewCollector() *Collector {
	return &Collector{
		summary: Summary{Layouts: make(map[string]int)},
		seen:    make(map[string]bool),
	}
}

func (c *Collector) Handle(evt Event) {
	switch evt.Type {
	case EventTypeScanned:
		c.summary.Scanned++
	case EventTypeFiltered:
		c.summary.Filtered++
	case EventTypeDuplicate:
		c.summary.Duplicates++
	case EventTypeUnrecognized:
		c.summary.Unrecognized++
	case EventTypeRecord:
		c.summary.Records++
	case EventTypeDropped:
		c.summary.Dropped++
	case EventTypeError:
		c.summary.Errors++
		if evt.Err != nil {
			c.summary.LastError = evt.Err
		}
	case EventTypeWritten:
		if evt.Detail != "" {
			c.summary.Outputs = append(c.summary.Outputs, evt.Detail)
		}
	}

	// Layouts count messages, not itineraries.
	if evt.Layout != "" && evt.MessageID != "" && !c.seen[evt.MessageID] {
		c.seen[evt.MessageID] = true
		c.summary.Layouts[evt.Layout]++
	}
}

func (c *Collector) Snapshot() Summary {
	summary := c.summary
	summary.Layouts = make(map[string]int, len(c.summary.Layouts))
	for k, v := range c.summary.Layouts {
		summary.Layouts[k] = v
	}
	summary.Outputs = append([]string(nil), c.summary.Outputs...)
	return summary
}

// Reporter collects events and logs the run summary when finished.
type Reporter struct {
	collector *Collector
	logger    *slog.Logger
	started   time.Time
}

func NewReporter(logger *slog.Logger) *Reporter {
	return &Reporter{
		collector: NewCollector(),
		logger:    logger,
		started:   time.Now(),
	}
}

func (r *Reporter) Handle(evt Event) {
	r.collector.Handle(evt)
}

// Finish logs the summary and returns it.
func (r *Reporter) Finish() Summary {
	summary := r.collector.Snapshot()
	if r.logger != nil {
		attrs := append(summary.LogAttrs(), "duration", time.Since(r.started))
		r.logger.Info("stats summary", attrs...)
	}
	return summary
}

func (r *Reporter) Summary() Summary {
	return r.collector.Snapshot()
}

// PrettyPrintTop prints the top N most frequent items in a map.
func PrettyPrintTop(m map[string]int, limit int) {
	type pair struct {
		Key   string
		Value int
	}

	var pairs []pair
	for k, v := range m {
		pairs = append(pairs, pair{k, v})
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Value != pairs[j].Value {
			return pairs[i].Value > pairs[j].Value
		}
		return pairs[i].Key < pairs[j].Key
	})

	for i := 0; i < limit && i < len(pairs); i++ {
		fmt.Printf("%d. %s (%d)\n", i+1, pairs[i].Key, pairs[i].Value)
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
