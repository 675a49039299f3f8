// Package record assembles extracted itineraries into the price rows that
// are written to CSV and plotted.
package record

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dhcgn/flight-price-tracker/extract"
	"github.com/dhcgn/flight-price-tracker/normalize"
)

// ErrIncomplete marks an itinerary that lacks a mandatory field.
var ErrIncomplete = errors.New("incomplete itinerary")

// TrackingDateLayout is how the tracking date is rendered in the CSV.
const TrackingDateLayout = "Mon, 02 Jan 2006"

// Header is the CSV column order.
var Header = []string{"date", "direction1", "date1", "time1", "direction2", "date2", "time2", "price", "label"}

var airportCode = regexp.MustCompile(`^[A-Z]{3}$`)

// Leg is a normalized directional segment.
type Leg struct {
	From string
	To   string
	Date string
	Time string
}

// Direction renders the leg as "ZRH-LIS".
func (l Leg) Direction() string {
	return l.From + "-" + l.To
}

// Source describes the message an itinerary came from.
type Source struct {
	MessageID string
	Layout    extract.Layout
	Tracked   time.Time
}

// PriceRecord is one itinerary price observed on a tracking date.
type PriceRecord struct {
	MessageID string
	Layout    extract.Layout
	Tracked   time.Time
	Outbound  Leg
	Return    *Leg
	Price     decimal.Decimal
	Label     string
}

// TrackingDate renders Tracked in TrackingDateLayout, or "" when unknown.
func (r PriceRecord) TrackingDate() string {
	if r.Tracked.IsZero() {
		return ""
	}
	return r.Tracked.Format(TrackingDateLayout)
}

// Row returns the record as CSV fields in Header order.
func (r PriceRecord) Row() []string {
	row := []string{
		r.TrackingDate(),
		r.Outbound.Direction(), r.Outbound.Date, r.Outbound.Time,
		"", "", "",
		r.Price.String(),
		r.Label,
	}
	if r.Return != nil {
		row[4], row[5], row[6] = r.Return.Direction(), r.Return.Date, r.Return.Time
	}
	return row
}

// Assemble validates an extracted itinerary and builds its record. A missing
// airport code, date, departure time or price yields an error wrapping
// ErrIncomplete.
func Assemble(src Source, it extract.Itinerary) (PriceRecord, error) {
	if len(it.Legs) == 0 {
		return PriceRecord{}, fmt.Errorf("%w: no legs", ErrIncomplete)
	}

	legs := make([]Leg, 0, len(it.Legs))
	for i, raw := range it.Legs {
		leg, err := assembleLeg(raw)
		if err != nil {
			return PriceRecord{}, fmt.Errorf("leg %d: %w", i+1, err)
		}
		legs = append(legs, leg)
	}

	price, err := ParsePrice(it.Price)
	if err != nil {
		return PriceRecord{}, err
	}

	rec := PriceRecord{
		MessageID: src.MessageID,
		Layout:    src.Layout,
		Tracked:   src.Tracked,
		Outbound:  legs[0],
		Price:     price,
	}
	if len(legs) > 1 {
		ret := legs[1]
		rec.Return = &ret
	}
	rec.Label = Label(rec.Outbound, rec.Return)
	return rec, nil
}

func assembleLeg(raw extract.Leg) (Leg, error) {
	from := strings.TrimSpace(raw.From)
	to := strings.TrimSpace(raw.To)
	date := strings.TrimSpace(raw.Date)
	clock := strings.TrimSpace(raw.DepartTime)

	switch {
	case !airportCode.MatchString(from):
		return Leg{}, fmt.Errorf("%w: departure airport %q", ErrIncomplete, from)
	case !airportCode.MatchString(to):
		return Leg{}, fmt.Errorf("%w: arrival airport %q", ErrIncomplete, to)
	case date == "":
		return Leg{}, fmt.Errorf("%w: departure date", ErrIncomplete)
	case clock == "":
		return Leg{}, fmt.Errorf("%w: departure time", ErrIncomplete)
	}

	return Leg{
		From: from,
		To:   to,
		Date: normalize.Date(date),
		Time: normalize.Clock(clock),
	}, nil
}

// ParsePrice reads a price token such as "245", "199,50", "1.245" or
// "1,245.50". A separator followed by one or two trailing digits is the
// decimal point; every other separator groups thousands.
func ParsePrice(s string) (decimal.Decimal, error) {
	s = plainAmount(strings.TrimSpace(s))
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: price", ErrIncomplete)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: price %q: %v", ErrIncomplete, s, err)
	}
	return d, nil
}

func plainAmount(s string) string {
	last := strings.LastIndexAny(s, ".,")
	if last < 0 {
		return s
	}
	intPart, frac := s[:last], s[last+1:]
	if len(frac) == 3 {
		intPart, frac = s, ""
	}
	intPart = strings.NewReplacer(".", "", ",", "").Replace(intPart)
	if frac == "" {
		return intPart
	}
	return intPart + "." + frac
}

// Label builds the series key for a roundtrip,
// "ZRH-LIS:LIS-ZRH Thu, 23 Oct - Sun, 26 Oct :: 10:40 - 14:00", or
// "ZRH-LIS Thu, 23 Oct :: 10:40" when there is no return leg.
func Label(out Leg, ret *Leg) string {
	if ret == nil {
		return fmt.Sprintf("%s %s :: %s", out.Direction(), out.Date, out.Time)
	}
	return fmt.Sprintf("%s:%s %s - %s :: %s - %s",
		out.Direction(), ret.Direction(), out.Date, ret.Date, out.Time, ret.Time)
}
