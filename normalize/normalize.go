// Package normalize maps Italian and English date fragments found in price
// alerts onto one canonical English spelling, so that the same itinerary
// tracked in either language groups into a single series.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// Tables are keyed by lower-case token. Weekday and month tables are kept
// apart because Italian "mar" is both martedì (Tue) and marzo (Mar).
var weekdays = map[string]string{
	"lun": "Mon", "lunedì": "Mon", "lunedi": "Mon",
	"mar": "Tue", "martedì": "Tue", "martedi": "Tue",
	"mer": "Wed", "mercoledì": "Wed", "mercoledi": "Wed",
	"gio": "Thu", "giovedì": "Thu", "giovedi": "Thu",
	"ven": "Fri", "venerdì": "Fri", "venerdi": "Fri",
	"sab": "Sat", "sabato": "Sat",
	"dom": "Sun", "domenica": "Sun",

	"mon": "Mon", "monday": "Mon",
	"tue": "Tue", "tues": "Tue", "tuesday": "Tue",
	"wed": "Wed", "wednesday": "Wed",
	"thu": "Thu", "thur": "Thu", "thurs": "Thu", "thursday": "Thu",
	"fri": "Fri", "friday": "Fri",
	"sat": "Sat", "saturday": "Sat",
	"sun": "Sun", "sunday": "Sun",
}

var months = map[string]string{
	"gen": "Jan", "gennaio": "Jan",
	"feb": "Feb", "febbraio": "Feb",
	"mar": "Mar", "marzo": "Mar",
	"apr": "Apr", "aprile": "Apr",
	"mag": "May", "maggio": "May",
	"giu": "Jun", "giugno": "Jun",
	"lug": "Jul", "luglio": "Jul",
	"ago": "Aug", "agosto": "Aug",
	"set": "Sep", "settembre": "Sep",
	"ott": "Oct", "ottobre": "Oct",
	"nov": "Nov", "novembre": "Nov",
	"dic": "Dec", "dicembre": "Dec",

	"jan": "Jan", "january": "Jan",
	"february": "Feb",
	"march": "Mar",
	"april": "Apr",
	"may": "May",
	"jun": "Jun", "june": "Jun",
	"jul": "Jul", "july": "Jul",
	"aug": "Aug", "august": "Aug",
	"sep": "Sep", "sept": "Sep", "september": "Sep",
	"oct": "Oct", "october": "Oct",
	"november": "Nov",
	"dec": "Dec", "december": "Dec",
}

var datePattern = regexp.MustCompile(`^\s*(\pL+)\.?,?\s+(\d{1,2})\s+(\pL+)\.?\s*$`)

// Date converts a fragment such as "gio 23 ott" or "Thu, 23 Oct" into
// "Thu, 23 Oct". Unknown weekday or month tokens are kept as written and
// input that is not shaped like a date is returned unchanged.
func Date(s string) string {
	m := datePattern.FindStringSubmatch(s)
	if m == nil {
		return s
	}

	day := m[2]
	if n, err := strconv.Atoi(day); err == nil {
		day = strconv.Itoa(n)
	}

	return Weekday(m[1]) + ", " + day + " " + Month(m[3])
}

// Weekday returns the English abbreviation for an Italian or English
// weekday token, or the token itself when it is not recognised.
func Weekday(token string) string {
	if en, ok := weekdays[strings.ToLower(token)]; ok {
		return en
	}
	return token
}

// Month returns the English abbreviation for an Italian or English month
// token, or the token itself when it is not recognised.
func Month(token string) string {
	if en, ok := months[strings.ToLower(token)]; ok {
		return en
	}
	return token
}

// IsWeekday reports whether token is a known weekday in either language.
func IsWeekday(token string) bool {
	_, ok := weekdays[strings.ToLower(token)]
	return ok
}

// IsMonth reports whether token is a known month in either language.
func IsMonth(token string) bool {
	_, ok := months[strings.ToLower(token)]
	return ok
}

var clockPattern = regexp.MustCompile(`^\s*(\d{1,2})[:.](\d{2})\s*$`)

// Clock pads a departure time to HH:MM ("7:15" becomes "07:15"). Values that
// are not a time of day are returned unchanged.
func Clock(s string) string {
	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	if len(m[1]) == 1 {
		return "0" + m[1] + ":" + m[2]
	}
	return m[1] + ":" + m[2]
}
