package progress

import (
	"github.com/pterm/pterm"

	"github.com/dhcgn/flight-price-tracker/stats"
)

// Bar shows how far the run is through the mbox archive. It is driven
// synchronously by stats events, so it needs no locking.
type Bar struct {
	pb      *pterm.ProgressbarPrinter
	total   int
	records int
	enabled bool
}

// New starts a progress bar when enabled is true; otherwise every method is a
// no-op.
func New(total int, enabled bool) *Bar {
	bar := &Bar{total: total, enabled: enabled && total > 0}
	if !bar.enabled {
		return bar
	}

	pterm.Info.Printf("Messages in mbox: %d\n", total)
	pb, err := pterm.DefaultProgressbar.
		WithTotal(total).
		WithTitle("Extracting prices").
		Start()
	if err != nil {
		bar.enabled = false
		return bar
	}
	bar.pb = pb
	return bar
}

// Handle implements stats.Sink.
func (b *Bar) Handle(evt stats.Event) {
	if !b.enabled || b.pb == nil {
		return
	}

	switch evt.Type {
	case stats.EventTypeScanned, stats.EventTypeFiltered:
		b.pb.Increment()
	case stats.EventTypeRecord:
		b.records++
		b.pb.UpdateTitle(pterm.Sprintf("Extracting prices (%d records)", b.records))
	case stats.EventTypeError:
		if evt.Err != nil {
			pterm.Error.Printf("Error: %v\n", evt.Err)
		}
	}
}

// Stop finalizes the bar and prints the run summary.
func (b *Bar) Stop(summary stats.Summary) {
	if !b.enabled || b.pb == nil {
		return
	}

	if b.pb.Current < b.total {
		b.pb.Current = b.total
	}
	_, _ = b.pb.Stop()

	pterm.Println()
	pterm.DefaultSection.Println("Summary")
	pterm.Info.Printf("Scanned: %d\n", summary.Scanned)
	pterm.Info.Printf("Records: %d\n", summary.Records)
	pterm.Info.Printf("Duplicates (skipped): %d\n", summary.Duplicates)
	pterm.Info.Printf("Filtered: %d\n", summary.Filtered)
	pterm.Info.Printf("Unrecognized: %d\n", summary.Unrecognized)
	pterm.Info.Printf("Dropped itineraries: %d\n", summary.Dropped)
	for _, path := range summary.Outputs {
		pterm.Success.Printf("Wrote %s\n", path)
	}
	if summary.LastError != nil {
		pterm.Error.Printf("Last error: %v\n", summary.LastError)
	}
}
