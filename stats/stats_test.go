package stats

import (
	"errors"
	"testing"
)

func TestCollector(t *testing.T) {
	c := NewCollector()
	boom := errors.New("boom")

	events := []Event{
		{Type: EventTypeScanned, MessageID: "a"},
		{Type: EventTypeRecord, MessageID: "a", Layout: "english_double", Label: "L1", Price: 245},
		{Type: EventTypeRecord, MessageID: "a", Layout: "english_double", Label: "L2", Price: 312},
		{Type: EventTypeScanned, MessageID: "b"},
		{Type: EventTypeDropped, MessageID: "b", Layout: "italian_single"},
		{Type: EventTypeScanned, MessageID: "c"},
		{Type: EventTypeUnrecognized, MessageID: "c", Layout: "unknown"},
		{Type: EventTypeScanned, MessageID: "d"},
		{Type: EventTypeDuplicate, MessageID: "d"},
		{Type: EventTypeFiltered, MessageID: "e"},
		{Type: EventTypeError, Err: boom},
	}
	for _, evt := range events {
		c.Handle(evt)
	}

	s := c.Snapshot()
	if s.Scanned != 4 || s.Records != 2 || s.Dropped != 1 || s.Unrecognized != 1 ||
		s.Duplicates != 1 || s.Filtered != 1 || s.Errors != 1 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if !errors.Is(s.LastError, boom) {
		t.Errorf("LastError = %v", s.LastError)
	}
	if s.Layouts["english_double"] != 1 {
		t.Errorf("a double alert counts once per message, got %d", s.Layouts["english_double"])
	}
	if s.Layouts["italian_single"] != 1 || s.Layouts["unknown"] != 1 {
		t.Errorf("Layouts = %v", s.Layouts)
	}

	s.Layouts["english_double"] = 99
	if c.Snapshot().Layouts["english_double"] != 1 {
		t.Error("Snapshot must not share its map with the collector")
	}
}

func TestSummaryLogAttrs(t *testing.T) {
	s := Summary{Scanned: 3, Layouts: map[string]int{"b": 1, "a": 2}, LastError: errors.New("x")}
	attrs := s.LogAttrs()
	if len(attrs)%2 != 0 {
		t.Fatalf("odd number of attrs: %v", attrs)
	}
	if attrs[14] != "layout.a" || attrs[16] != "layout.b" {
		t.Errorf("layout attrs not sorted: %v", attrs[14:])
	}
	if attrs[len(attrs)-2] != "lastError" {
		t.Errorf("lastError missing: %v", attrs)
	}
}

func TestCollectorOutputs(t *testing.T) {
	c := NewCollector()
	c.Handle(Event{Stage: StageOutput, Type: EventTypeWritten, Detail: "prices.csv"})
	c.Handle(Event{Stage: StageOutput, Type: EventTypeWritten, Detail: "flight_prices_plot.png"})
	c.Handle(Event{Stage: StageOutput, Type: EventTypeWritten})

	s := c.Snapshot()
	if len(s.Outputs) != 2 || s.Outputs[0] != "prices.csv" || s.Outputs[1] != "flight_prices_plot.png" {
		t.Fatalf("Outputs = %v", s.Outputs)
	}

	attrs := s.LogAttrs()
	if attrs[len(attrs)-2] != "outputs" || attrs[len(attrs)-1] != "prices.csv,flight_prices_plot.png" {
		t.Errorf("outputs attr = %v", attrs[len(attrs)-2:])
	}

	s.Outputs[0] = "changed"
	if c.Snapshot().Outputs[0] != "prices.csv" {
		t.Error("Snapshot must not share its outputs with the collector")
	}
}

func TestSinkFunc(t *testing.T) {
	var got []EventType
	var sink Sink = SinkFunc(func(evt Event) { got = append(got, evt.Type) })
	sink.Handle(Event{Type: EventTypeScanned})
	sink.Handle(Event{Type: EventTypeRecord})
	if len(got) != 2 || got[1] != EventTypeRecord {
		t.Fatalf("got %v", got)
	}
}

func TestReporterFinish(t *testing.T) {
	r := NewReporter(nil)
	r.Handle(Event{Type: EventTypeScanned})
	if s := r.Finish(); s.Scanned != 1 {
		t.Fatalf("Finish() = %+v", s)
	}
}
