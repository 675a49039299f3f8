// Package report writes price records to CSV and reads them back for
// charting.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dhcgn/flight-price-tracker/record"
)

var ErrHeaderMismatch = errors.New("unexpected csv header")

// Row is the subset of a CSV row needed to plot it.
type Row struct {
	Tracked time.Time
	Price   decimal.Decimal
	Label   string
}

// WriteCSV replaces path with a header and one row per record.
func WriteCSV(path string, records []record.PriceRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}

	if err := Write(file, records); err != nil {
		file.Close()
		return err
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("close csv: %w", err)
	}
	return nil
}

// Write emits the header and records to w.
func Write(w io.Writer, records []record.PriceRecord) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(record.Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, rec := range records {
		if err := writer.Write(rec.Row()); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// ReadCSV loads the rows written by WriteCSV. Rows whose tracking date or
// price cannot be parsed are logged and skipped.
func ReadCSV(path string, logger *slog.Logger) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer file.Close()

	return Read(file, logger)
}

// Read parses CSV content in the layout produced by Write.
func Read(r io.Reader, logger *slog.Logger) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(record.Header)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if strings.Join(header, ",") != strings.Join(record.Header, ",") {
		return nil, fmt.Errorf("%w: %q", ErrHeaderMismatch, header)
	}

	var (
		dateCol  = column("date")
		priceCol = column("price")
		labelCol = column("label")
		rows     []Row
	)
	for line := 2; ; line++ {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}

		tracked, err := time.Parse(record.TrackingDateLayout, fields[dateCol])
		if err != nil {
			if logger != nil {
				logger.Warn("skipping csv row with bad date", "line", line, "date", fields[dateCol], "err", err)
			}
			continue
		}
		price, err := decimal.NewFromString(fields[priceCol])
		if err != nil {
			if logger != nil {
				logger.Warn("skipping csv row with bad price", "line", line, "price", fields[priceCol], "err", err)
			}
			continue
		}

		rows = append(rows, Row{Tracked: tracked, Price: price, Label: fields[labelCol]})
	}
}

func column(name string) int {
	for i, h := range record.Header {
		if h == name {
			return i
		}
	}
	panic("report: unknown column " + name)
}
