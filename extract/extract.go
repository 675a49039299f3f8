// Package extract detects the layout of a price-alert email and pulls the
// flight legs and price of each itinerary out of its plain-text body.
//
// The rules are deliberately narrow. The mail renderer wraps every leg so that
// the time range, the carrier and the two airport codes land on separate
// lines, so fields are associated by order inside an itinerary block rather
// than by sitting on the same line.
package extract

import (
	"regexp"
	"strings"
)

// Leg is one directional flight segment as written in the message, before
// any normalization.
type Leg struct {
	From       string
	To         string
	Date       string
	DepartTime string
	ArriveTime string
}

// Itinerary is an outbound and return leg sharing one price. Fields the
// extractor could not find are left empty.
type Itinerary struct {
	Legs  []Leg
	Price string
}

// Extractor turns a message body into the itineraries it describes.
type Extractor interface {
	Extract(text string) []Itinerary
}

// For returns the extractor for a layout. It reports false for
// LayoutUnknown.
func For(layout Layout) (Extractor, bool) {
	switch layout {
	case LayoutItalianSingle:
		return &blockExtractor{locale: italianLocale, blocks: 1}, true
	case LayoutEnglishSingle:
		return &blockExtractor{locale: englishLocale, blocks: 1}, true
	case LayoutEnglishDouble:
		return &blockExtractor{locale: englishLocale, blocks: 2}, true
	default:
		return nil, false
	}
}

// Message detects the layout of text and extracts its itineraries.
func Message(text string) (Layout, []Itinerary, error) {
	layout := Detect(text)
	ex, ok := For(layout)
	if !ok {
		return layout, nil, ErrUnrecognizedLayout
	}
	return layout, ex.Extract(text), nil
}

const (
	legsPerItinerary = 2
	// airportLookahead is how many lines after a departure time the first
	// airport code may appear.
	airportLookahead = 4
	// priceWindow is how many lines around a price-change marker are searched
	// for the price.
	priceWindow = 5
)

// amount matches "1.245", "1,245.50" and "199,50". A three-digit group
// after a separator is a thousands group; one or two digits are decimals.
const amount = `\d{1,3}(?:[.,]\d{3})+(?:[.,]\d{1,2})?|\d+(?:[.,]\d{1,2})?`

type locale struct {
	date    *regexp.Regexp
	price   *regexp.Regexp
	markers []string
}

func (l locale) isMarker(line string) bool {
	lower := strings.ToLower(line)
	for _, m := range l.markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

var (
	italianDate  = regexp.MustCompile(`(?i)\b(?:lun|mar|mer|gio|ven|sab|dom)\pL*\.?\s+\d{1,2}\s+(?:gen|feb|mar|apr|mag|giu|lug|ago|set|ott|nov|dic)\pL*\.?`)
	englishDate  = regexp.MustCompile(`\b(?:Mon|Tue|Wed|Thu|Fri|Sat|Sun)[a-z]*,?\s+\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*`)
	italianPrice = regexp.MustCompile(`(?:€|EUR)\s*(` + amount + `)`)
	englishPrice = regexp.MustCompile(`(` + amount + `)\s*(?:€|EUR)`)

	italianLocale = locale{
		date:    italianDate,
		price:   italianPrice,
		markers: []string{"aumentato", "diminuito", "sceso", "salito"},
	}
	englishLocale = locale{
		date:    englishDate,
		price:   englishPrice,
		markers: []string{"gone up", "gone down"},
	}

	timeRange    = regexp.MustCompile(`^(\d{1,2}:\d{2})\s*[-–]\s*(\d{1,2}:\d{2})?$`)
	clockLine    = regexp.MustCompile(`^(\d{1,2}:\d{2})`)
	airportFirst = regexp.MustCompile(`^([A-Z]{3})\s*[-–,]$`)
	airportLast  = regexp.MustCompile(`^([A-Z]{3})\b`)
	airportPair  = regexp.MustCompile(`^([A-Z]{3})\s*[-–]\s*([A-Z]{3})[,.]?$`)
)

type blockExtractor struct {
	locale locale
	blocks int
}

func (b *blockExtractor) Extract(text string) []Itinerary {
	lines := splitLines(text)
	anchors := b.anchors(lines)

	var out []Itinerary
	floor := 0
	for k := 0; k < b.blocks; k++ {
		start, end, anchor := blockBounds(lines, anchors, k, b.blocks)
		if start >= end {
			continue
		}
		it, priceLine := b.itinerary(lines, start, end, anchor, floor)
		out = append(out, it)

		// The next price may sit above its marker, but never on lines the
		// previous itinerary already used.
		if anchor >= 0 {
			floor = anchor + 1
		}
		if priceLine >= floor {
			floor = priceLine + 1
		}
	}
	return out
}

func (b *blockExtractor) anchors(lines []string) []int {
	var idx []int
	for i, line := range lines {
		if b.locale.isMarker(line) {
			idx = append(idx, i)
		}
	}
	return idx
}

// blockBounds returns the half-open line range of block k and the anchor
// line inside it, or -1 when the block has no price marker. A single-block
// layout spans the whole text.
func blockBounds(lines []string, anchors []int, k, blocks int) (start, end, anchor int) {
	if blocks == 1 {
		if len(anchors) > 0 {
			return 0, len(lines), anchors[0]
		}
		return 0, len(lines), -1
	}
	if k >= len(anchors) {
		if k == 0 {
			return 0, len(lines), -1
		}
		return 0, 0, -1
	}
	if k > 0 {
		start = anchors[k]
	}
	end = len(lines)
	if k+1 < len(anchors) && k+1 < blocks {
		end = anchors[k+1]
	}
	return start, end, anchors[k]
}

// itinerary also returns the line the price was read from, or -1.
func (b *blockExtractor) itinerary(lines []string, start, end, anchor, floor int) (Itinerary, int) {
	block := lines[start:end]

	dates := make([]string, 0, legsPerItinerary)
	for _, line := range block {
		if d := b.locale.date.FindString(line); d != "" {
			dates = append(dates, strings.TrimSpace(d))
			if len(dates) == legsPerItinerary {
				break
			}
		}
	}

	legs := scanLegs(block)
	it := Itinerary{Legs: make([]Leg, legsPerItinerary)}
	for i := range it.Legs {
		if i < len(legs) {
			it.Legs[i] = legs[i]
		}
		if i < len(dates) {
			it.Legs[i].Date = dates[i]
		}
	}

	priceLine := -1
	if anchor >= 0 {
		it.Price, priceLine = b.price(lines, floor, end, anchor)
	}
	return it, priceLine
}

// price looks on the anchor line and the lines after it first, then walks
// back no further than floor.
func (b *blockExtractor) price(lines []string, floor, end, anchor int) (string, int) {
	for i := anchor; i < end && i <= anchor+priceWindow; i++ {
		if m := b.locale.price.FindStringSubmatch(lines[i]); m != nil {
			return m[1], i
		}
	}
	for i := anchor - 1; i >= floor && i >= anchor-priceWindow; i-- {
		if m := b.locale.price.FindStringSubmatch(lines[i]); m != nil {
			return m[1], i
		}
	}
	return "", -1
}

// scanLegs finds departure time blocks in order and attaches the airport
// pair that follows each of them.
func scanLegs(lines []string) []Leg {
	var legs []Leg
	for i := 0; i < len(lines) && len(legs) < legsPerItinerary; i++ {
		m := timeRange.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}

		leg := Leg{DepartTime: m[1], ArriveTime: m[2]}
		if leg.ArriveTime == "" && i+1 < len(lines) {
			if a := clockLine.FindStringSubmatch(lines[i+1]); a != nil {
				leg.ArriveTime = a[1]
			}
		}
		leg.From, leg.To = airportsAfter(lines, i)
		legs = append(legs, leg)
	}
	return legs
}

func airportsAfter(lines []string, i int) (from, to string) {
	for j := i + 1; j < len(lines) && j <= i+airportLookahead; j++ {
		if timeRange.MatchString(lines[j]) {
			return "", ""
		}
		if m := airportPair.FindStringSubmatch(lines[j]); m != nil {
			return m[1], m[2]
		}
		m := airportFirst.FindStringSubmatch(lines[j])
		if m == nil || j+1 >= len(lines) {
			continue
		}
		if next := airportLast.FindStringSubmatch(lines[j+1]); next != nil {
			return m[1], next[1]
		}
	}
	return "", ""
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return lines
}
