package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dhcgn/flight-price-tracker/stats"
)

// Registry holds the run's counters on a private registry so repeated runs
// in one process never collide on the default one.
type Registry struct {
	reg      *prometheus.Registry
	Messages prometheus.Counter
	Records  prometheus.Counter
	Errors   prometheus.Counter
	Skipped  *prometheus.CounterVec
	Price    *prometheus.GaugeVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	messages := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flight_price_messages_scanned_total",
		Help: "Messages read from the mbox archive",
	})
	records := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flight_price_records_total",
		Help: "Price records written to the CSV",
	})
	errs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flight_price_errors_total",
		Help: "Messages that could not be decoded",
	})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flight_price_messages_skipped_total",
		Help: "Messages or itineraries skipped, by reason",
	}, []string{"reason"})
	price := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "flight_price_latest_eur",
		Help: "Most recent price seen per itinerary label",
	}, []string{"label"})

	r.MustRegister(messages, records, errs, skipped, price)
	return &Registry{
		reg:      r,
		Messages: messages,
		Records:  records,
		Errors:   errs,
		Skipped:  skipped,
		Price:    price,
	}
}

// Handle implements stats.Sink.
func (r *Registry) Handle(evt stats.Event) {
	switch evt.Type {
	case stats.EventTypeScanned:
		r.Messages.Inc()
	case stats.EventTypeRecord:
		r.Records.Inc()
		if evt.Label != "" {
			r.Price.WithLabelValues(evt.Label).Set(evt.Price)
		}
	case stats.EventTypeError:
		r.Errors.Inc()
	case stats.EventTypeDuplicate, stats.EventTypeFiltered, stats.EventTypeUnrecognized, stats.EventTypeDropped:
		r.Skipped.WithLabelValues(string(evt.Type)).Inc()
	}
}

func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// WriteTextfile writes the registry in the node_exporter textfile format.
func (r *Registry) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
