package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dhcgn/flight-price-tracker/chart"
	"github.com/dhcgn/flight-price-tracker/config"
	"github.com/dhcgn/flight-price-tracker/extract"
	"github.com/dhcgn/flight-price-tracker/filter"
	"github.com/dhcgn/flight-price-tracker/mbox"
	"github.com/dhcgn/flight-price-tracker/metrics"
	"github.com/dhcgn/flight-price-tracker/model"
	"github.com/dhcgn/flight-price-tracker/progress"
	"github.com/dhcgn/flight-price-tracker/record"
	"github.com/dhcgn/flight-price-tracker/report"
	"github.com/dhcgn/flight-price-tracker/state"
	"github.com/dhcgn/flight-price-tracker/stats"
)

type namedSink struct {
	name string
	sink stats.Sink
}

// Runner reads the mbox, turns every recognized alert into price records and
// writes the CSV, chart and optional metrics. It runs sequentially; sinks are
// called on the same goroutine in subscription order.
type Runner struct {
	cfg    config.Config
	logger *slog.Logger

	reader   *mbox.Reader
	tracker  *state.Tracker
	reporter *stats.Reporter
	metrics  *metrics.Registry
	sinks    []namedSink
}

func New(cfg config.Config, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := filter.New(filter.Options{
		IncludeHeader: cfg.IncludeHeader,
		IncludeBody:   cfg.IncludeBody,
		ExcludeHeader: cfg.ExcludeHeader,
		ExcludeBody:   cfg.ExcludeBody,
	})
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	if f.Active() {
		logger.Info("message filter active",
			"includeHeader", len(cfg.IncludeHeader), "includeBody", len(cfg.IncludeBody),
			"excludeHeader", len(cfg.ExcludeHeader), "excludeBody", len(cfg.ExcludeBody))
	}

	reader, err := mbox.NewReader(mbox.Options{Path: cfg.MboxPath, Filter: f}, logger)
	if err != nil {
		return nil, fmt.Errorf("mbox reader: %w", err)
	}

	r := &Runner{
		cfg:      cfg,
		logger:   logger,
		reader:   reader,
		tracker:  state.NewTracker(),
		reporter: stats.NewReporter(logger),
	}
	r.Subscribe("summary", r.reporter)

	if cfg.MetricsFile != "" {
		r.metrics = metrics.NewRegistry()
		r.Subscribe("metrics", r.metrics)
	}
	return r, nil
}

func (r *Runner) Config() config.Config {
	return r.cfg
}

// Subscribe adds a sink that receives every subsequent event.
func (r *Runner) Subscribe(name string, sink stats.Sink) {
	r.sinks = append(r.sinks, namedSink{name: name, sink: sink})
}

func (r *Runner) emit(evt stats.Event) {
	for _, s := range r.sinks {
		s.sink.Handle(evt)
	}
}

// Summary returns the counts gathered so far.
func (r *Runner) Summary() stats.Summary {
	return r.reporter.Summary()
}

// Run executes the whole pipeline.
func (r *Runner) Run(ctx context.Context) error {
	since := time.Now()

	bar := r.startProgress()

	records, err := r.Extract(ctx)
	if err != nil {
		r.logger.Error("pipeline failed", "duration", time.Since(since), "err", err)
		return err
	}

	if err := r.write(records); err != nil {
		r.logger.Error("pipeline failed", "duration", time.Since(since), "err", err)
		return err
	}

	summary := r.reporter.Finish()
	bar.Stop(summary)
	r.logger.Info("pipeline completed", "duration", time.Since(since), "records", len(records))
	return nil
}

func (r *Runner) startProgress() *progress.Bar {
	if !r.cfg.Progress {
		return progress.New(0, false)
	}
	total, err := mbox.CountMessages(r.cfg.MboxPath)
	if err != nil {
		// Extract reports the same failure with more context.
		r.logger.Debug("progress disabled", "err", err)
		return progress.New(0, false)
	}
	bar := progress.New(total, true)
	r.Subscribe("progress", bar)
	return bar
}

// Extract streams the mbox and returns the records of every recognized alert
// in mailbox order. Only failing to read the archive is an error.
func (r *Runner) Extract(ctx context.Context) ([]record.PriceRecord, error) {
	var records []record.PriceRecord

	err := r.reader.Stream(ctx, func(env model.Envelope) error {
		switch {
		case env.Err != nil:
			r.emit(stats.Event{Stage: stats.StageMbox, Type: stats.EventTypeError, MessageID: env.Message.ID, Err: env.Err})
		case env.Filtered:
			r.logger.Debug("message filtered", "traceID", env.Message.TraceID, "messageID", env.Message.ID)
			r.emit(stats.Event{Stage: stats.StageMbox, Type: stats.EventTypeFiltered, MessageID: env.Message.ID})
		default:
			records = append(records, r.Process(env.Message)...)
		}
		return nil
	})
	if err != nil {
		return records, fmt.Errorf("read mbox: %w", err)
	}
	return records, nil
}

// Process turns one decoded message into zero or more records. Duplicate
// messages yield nothing, and so do messages whose layout is not recognized.
// An itinerary missing a required field is dropped without affecting the
// other itineraries of the same message.
func (r *Runner) Process(msg model.Message) []record.PriceRecord {
	log := r.logger.With("traceID", msg.TraceID, "messageID", msg.ID)
	r.emit(stats.Event{Stage: stats.StageMbox, Type: stats.EventTypeScanned, MessageID: msg.ID})

	if first, seen := r.tracker.Seen(msg.Hash); seen {
		log.Debug("duplicate message skipped", "firstSeen", first)
		r.emit(stats.Event{Stage: stats.StageMbox, Type: stats.EventTypeDuplicate, MessageID: msg.ID})
		return nil
	}
	r.tracker.Mark(msg.Hash, msg.ID)

	layout, itineraries, err := extract.Message(msg.Body)
	if errors.Is(err, extract.ErrUnrecognizedLayout) {
		log.Info("skipping message", "reason", err, "subject", msg.Subject)
		r.emit(stats.Event{Stage: stats.StageExtract, Type: stats.EventTypeUnrecognized, MessageID: msg.ID, Layout: layout.String()})
		return nil
	}
	log.Debug("layout detected", "layout", layout, "itineraries", len(itineraries))

	src := record.Source{MessageID: msg.ID, Layout: layout, Tracked: msg.ReceivedAt}
	if src.Tracked.IsZero() {
		log.Warn("no tracking date found", "dateHeader", msg.DateHeader)
	}

	var records []record.PriceRecord
	for i, it := range itineraries {
		rec, err := record.Assemble(src, it)
		if err != nil {
			log.Warn("itinerary dropped", "layout", layout, "itinerary", i+1, "err", err)
			r.emit(stats.Event{Stage: stats.StageExtract, Type: stats.EventTypeDropped, MessageID: msg.ID, Layout: layout.String(), Err: err})
			continue
		}

		log.Info("price extracted", "layout", layout, "label", rec.Label, "price", rec.Price.String(), "date", rec.TrackingDate())
		r.emit(stats.Event{
			Stage:     stats.StageExtract,
			Type:      stats.EventTypeRecord,
			MessageID: msg.ID,
			Layout:    layout.String(),
			Label:     rec.Label,
			Price:     rec.Price.InexactFloat64(),
		})
		records = append(records, rec)
	}
	return records
}

func (r *Runner) write(records []record.PriceRecord) error {
	if err := report.WriteCSV(r.cfg.CSVPath, records); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	r.logger.Info("csv written", "path", r.cfg.CSVPath, "rows", len(records))
	r.written(r.cfg.CSVPath)

	rows, err := report.ReadCSV(r.cfg.CSVPath, r.logger)
	if err != nil {
		return fmt.Errorf("read csv: %w", err)
	}

	err = chart.Render(r.cfg.PlotPath, chart.Group(rows))
	switch {
	case errors.Is(err, chart.ErrNoData):
		r.logger.Warn("no records to plot, chart skipped", "path", r.cfg.PlotPath)
	case err != nil:
		return fmt.Errorf("render chart: %w", err)
	default:
		r.logger.Info("chart saved", "path", r.cfg.PlotPath)
		r.written(r.cfg.PlotPath)
		if r.cfg.ShowPlot {
			if err := chart.Show(r.cfg.PlotPath); err != nil {
				r.logger.Warn("could not open chart", "path", r.cfg.PlotPath, "err", err)
			}
		}
	}

	if r.metrics != nil {
		if err := r.metrics.WriteTextfile(r.cfg.MetricsFile); err != nil {
			return err
		}
		r.logger.Info("metrics written", "path", r.cfg.MetricsFile)
		r.written(r.cfg.MetricsFile)
	}
	return nil
}

func (r *Runner) written(path string) {
	r.emit(stats.Event{Stage: stats.StageOutput, Type: stats.EventTypeWritten, Detail: path})
}
