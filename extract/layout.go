package extract

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ErrUnrecognizedLayout is returned when a message matches none of the known
// price-alert layouts.
var ErrUnrecognizedLayout = errors.New("unrecognized email layout")

// Layout identifies one of the supported price-alert formats.
type Layout int

const (
	LayoutUnknown Layout = iota
	LayoutItalianSingle
	LayoutEnglishSingle
	LayoutEnglishDouble
)

func (l Layout) String() string {
	switch l {
	case LayoutItalianSingle:
		return "italian_single"
	case LayoutEnglishSingle:
		return "english_single"
	case LayoutEnglishDouble:
		return "english_double"
	default:
		return "unknown"
	}
}

// Itineraries is the number of roundtrips a layout carries.
func (l Layout) Itineraries() int {
	switch l {
	case LayoutItalianSingle, LayoutEnglishSingle:
		return 1
	case LayoutEnglishDouble:
		return 2
	default:
		return 0
	}
}

var (
	italianHeadline = regexp.MustCompile(`(?i)il prezzo de[il] tuo[i]? vol[oi]`)
	italianRoute    = regexp.MustCompile(`(?m)^\s*Da \pL[\pL ]* a \pL[\pL ]*$`)
	savedFlights    = regexp.MustCompile(`(?i)price updates for (\d+) saved flights`)
	englishYour     = regexp.MustCompile(`(?i)\byour\b.*\bflights? ha(?:s|ve)\b`)
)

// Detect classifies a decoded message body. Italian cues win over English
// ones; among English messages the saved-flight count, or failing that the
// number of price-change markers, separates single from double roundtrips.
func Detect(text string) Layout {
	if strings.TrimSpace(text) == "" {
		return LayoutUnknown
	}

	if italianHeadline.MatchString(text) || italianRoute.MatchString(text) || italianDate.MatchString(text) {
		return LayoutItalianSingle
	}

	if m := savedFlights.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 2 {
			return LayoutEnglishDouble
		}
	}

	englishMarkers := countLines(text, englishLocale.isMarker)
	if englishMarkers >= 2 {
		return LayoutEnglishDouble
	}

	if englishYour.MatchString(text) {
		return LayoutEnglishSingle
	}
	if englishMarkers > 0 && englishDate.MatchString(text) {
		return LayoutEnglishSingle
	}

	return LayoutUnknown
}

func countLines(text string, match func(string) bool) int {
	n := 0
	for _, line := range splitLines(text) {
		if match(line) {
			n++
		}
	}
	return n
}
