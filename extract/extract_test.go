package extract

import (
	_ "embed"
	"errors"
	"strings"
	"testing"
)

var (
	//go:embed test_data/italian_single.txt
	italianSingle string
	//go:embed test_data/english_single.txt
	englishSingle string
	//go:embed test_data/english_double.txt
	englishDouble string
	//go:embed test_data/english_double_broken.txt
	englishDoubleBroken string
	//go:embed test_data/newsletter.txt
	newsletter string
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Layout
	}{
		{name: "Italian single", text: italianSingle, want: LayoutItalianSingle},
		{name: "English single", text: englishSingle, want: LayoutEnglishSingle},
		{name: "English double", text: englishDouble, want: LayoutEnglishDouble},
		{name: "English double with broken segment", text: englishDoubleBroken, want: LayoutEnglishDouble},
		{name: "Newsletter", text: newsletter, want: LayoutUnknown},
		{name: "Empty", text: "", want: LayoutUnknown},
		{name: "Italian route heading only", text: "Da Milano a Parigi\n", want: LayoutItalianSingle},
		{name: "English single showing an old price", text: "Your saved flights have a new price\nZurich to Lisbon\nPrices have gone down\n245 €\nwas 280 €\nThu, 23 Oct\n", want: LayoutEnglishSingle},
		{name: "Two markers without saved-flight count", text: "Prices have gone down\n245 €\nPrices have gone up\n312 €\n", want: LayoutEnglishDouble},
		{name: "Saved flight count of one", text: "Price updates for 1 saved flights\nYour flights have changed\n", want: LayoutEnglishSingle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.text); got != tt.want {
				t.Errorf("Detect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLayoutString(t *testing.T) {
	tests := map[Layout]string{
		LayoutUnknown:       "unknown",
		LayoutItalianSingle: "italian_single",
		LayoutEnglishSingle: "english_single",
		LayoutEnglishDouble: "english_double",
	}
	for layout, want := range tests {
		if got := layout.String(); got != want {
			t.Errorf("Layout(%d).String() = %q, want %q", int(layout), got, want)
		}
	}
}

func TestExtractItalianSingle(t *testing.T) {
	layout, its, err := Message(italianSingle)
	if err != nil {
		t.Fatalf("Message() error = %v", err)
	}
	if layout != LayoutItalianSingle {
		t.Fatalf("layout = %v", layout)
	}
	if len(its) != 1 {
		t.Fatalf("got %d itineraries, want 1", len(its))
	}

	want := Itinerary{
		Price: "245",
		Legs: []Leg{
			{From: "ZRH", To: "LIS", Date: "gio 23 ott", DepartTime: "10:40", ArriveTime: "13:05"},
			{From: "LIS", To: "ZRH", Date: "dom 26 ott", DepartTime: "14:00", ArriveTime: "18:20"},
		},
	}
	assertItinerary(t, its[0], want)
}

func TestExtractEnglishSingle(t *testing.T) {
	ex, ok := For(LayoutEnglishSingle)
	if !ok {
		t.Fatal("no extractor for english_single")
	}
	its := ex.Extract(englishSingle)
	if len(its) != 1 {
		t.Fatalf("got %d itineraries, want 1", len(its))
	}

	want := Itinerary{
		Price: "245",
		Legs: []Leg{
			{From: "ZRH", To: "LIS", Date: "Thu, 23 Oct", DepartTime: "10:40", ArriveTime: "13:05"},
			{From: "LIS", To: "ZRH", Date: "Sun, 26 Oct", DepartTime: "14:00", ArriveTime: "18:20"},
		},
	}
	assertItinerary(t, its[0], want)
}

func TestExtractEnglishDouble(t *testing.T) {
	ex, _ := For(LayoutEnglishDouble)
	its := ex.Extract(englishDouble)
	if len(its) != 2 {
		t.Fatalf("got %d itineraries, want 2", len(its))
	}

	assertItinerary(t, its[0], Itinerary{
		Price: "245",
		Legs: []Leg{
			{From: "ZRH", To: "LIS", Date: "Thu, 23 Oct", DepartTime: "10:40", ArriveTime: "13:05"},
			{From: "LIS", To: "ZRH", Date: "Sun, 26 Oct", DepartTime: "14:00", ArriveTime: "18:20"},
		},
	})
	assertItinerary(t, its[1], Itinerary{
		Price: "312",
		Legs: []Leg{
			{From: "ZRH", To: "LIS", Date: "Fri, 24 Oct", DepartTime: "7:15", ArriveTime: "9:40"},
			{From: "LIS", To: "ZRH", Date: "Mon, 27 Oct", DepartTime: "19:05", ArriveTime: "23:10"},
		},
	})
}

func TestExtractEnglishDoubleBrokenSegment(t *testing.T) {
	ex, _ := For(LayoutEnglishDouble)
	its := ex.Extract(englishDoubleBroken)
	if len(its) != 2 {
		t.Fatalf("got %d itineraries, want 2", len(its))
	}
	if its[0].Legs[1].From != "LIS" || its[0].Price != "245" {
		t.Errorf("first itinerary damaged: %+v", its[0])
	}
	ret := its[1].Legs[1]
	if ret.From != "" || ret.To != "" {
		t.Errorf("broken return leg should have no airports, got %q-%q", ret.From, ret.To)
	}
	if ret.DepartTime != "19:05" {
		t.Errorf("broken return leg time = %q, want 19:05", ret.DepartTime)
	}
}

func TestMessageUnknown(t *testing.T) {
	layout, its, err := Message(newsletter)
	if !errors.Is(err, ErrUnrecognizedLayout) {
		t.Fatalf("err = %v, want ErrUnrecognizedLayout", err)
	}
	if layout != LayoutUnknown || its != nil {
		t.Fatalf("got layout %v, itineraries %v", layout, its)
	}
	if _, ok := For(LayoutUnknown); ok {
		t.Fatal("For(LayoutUnknown) should report false")
	}
}

func TestAirportsSplitAcrossLines(t *testing.T) {
	tests := []struct {
		name     string
		lines    string
		from, to string
	}{
		{name: "hyphen then code", lines: "10:40 -\n13:05\nSwiss\nZRH -\nLIS\n", from: "ZRH", to: "LIS"},
		{name: "comma then code", lines: "10:40 -\n13:05\nLIS,\nZRH\n", from: "LIS", to: "ZRH"},
		{name: "codes on one line", lines: "10:40 - 13:05\nEasyJet\nBSL - LIS\n", from: "BSL", to: "LIS"},
		{name: "code after next time block is ignored", lines: "10:40 -\n13:05\n14:00 -\nZRH -\nLIS\n", from: "", to: ""},
		{name: "too far away", lines: "10:40 -\n13:05\na\nb\nc\nZRH -\nLIS\n", from: "", to: ""},
		{name: "lower case is not a code", lines: "10:40 -\n13:05\nzrh -\nlis\n", from: "", to: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			legs := scanLegs(splitLines(tt.lines))
			if len(legs) == 0 {
				t.Fatal("no legs found")
			}
			if legs[0].From != tt.from || legs[0].To != tt.to {
				t.Errorf("got %q-%q, want %q-%q", legs[0].From, legs[0].To, tt.from, tt.to)
			}
		})
	}
}

func TestPriceFormats(t *testing.T) {
	tests := []struct {
		name   string
		layout Layout
		text   string
		want   string
	}{
		{name: "English suffix euro", layout: LayoutEnglishSingle, text: "Prices have gone up\n199 €\n", want: "199"},
		{name: "English suffix EUR", layout: LayoutEnglishSingle, text: "Prices have gone up\n199,50 EUR\n", want: "199,50"},
		{name: "English price before marker", layout: LayoutEnglishSingle, text: "180 €\nPrices have gone down\n", want: "180"},
		{name: "Italian prefix euro", layout: LayoutItalianSingle, text: "Il prezzo è aumentato\n€ 321\n", want: "321"},
		{name: "Italian outside window", layout: LayoutItalianSingle, text: "Il prezzo è sceso\n\n\n\n\n\n\n€ 321\n", want: ""},
		{name: "No marker", layout: LayoutEnglishSingle, text: "199 €\n", want: ""},
		{name: "English thousands comma", layout: LayoutEnglishSingle, text: "Prices have gone up\n1,245 €\n", want: "1,245"},
		{name: "English thousands with decimals", layout: LayoutEnglishSingle, text: "Prices have gone up\n1,245.50 EUR\n", want: "1,245.50"},
		{name: "Italian thousands dot", layout: LayoutItalianSingle, text: "Il prezzo è aumentato\n€ 1.245\n", want: "1.245"},
		{name: "Italian thousands with decimals", layout: LayoutItalianSingle, text: "Il prezzo è aumentato\n€ 1.245,50\n", want: "1.245,50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex, _ := For(tt.layout)
			its := ex.Extract(tt.text)
			if len(its) != 1 {
				t.Fatalf("got %d itineraries", len(its))
			}
			if its[0].Price != tt.want {
				t.Errorf("price = %q, want %q", its[0].Price, tt.want)
			}
		})
	}
}

func TestExtractDoublePriceAboveSecondMarker(t *testing.T) {
	text := strings.Join([]string{
		"Price updates for 2 saved flights",
		"Prices have gone down",
		"245 €",
		"Thu, 23 Oct",
		"10:40 -",
		"13:05",
		"ZRH - LIS",
		"Sun, 26 Oct",
		"14:00 -",
		"18:20",
		"LIS - ZRH",
		"312 €",
		"Prices have gone up",
		"Fri, 24 Oct",
		"07:15 -",
		"09:40",
		"ZRH - LIS",
		"Mon, 27 Oct",
		"19:05 - 23:10",
		"LIS - ZRH",
	}, "\n")

	ex, _ := For(LayoutEnglishDouble)
	its := ex.Extract(text)
	if len(its) != 2 {
		t.Fatalf("got %d itineraries, want 2", len(its))
	}
	if its[0].Price != "245" || its[1].Price != "312" {
		t.Errorf("prices = %q, %q; want 245, 312", its[0].Price, its[1].Price)
	}
	if its[1].Legs[0].DepartTime != "07:15" || its[1].Legs[1].From != "LIS" {
		t.Errorf("second itinerary legs = %+v", its[1].Legs)
	}
}

func TestExtractDoubleBackwardSearchStopsAtPreviousMarker(t *testing.T) {
	text := "Prices have gone down\n245 €\nPrices have gone up\n\n"
	ex, _ := For(LayoutEnglishDouble)
	its := ex.Extract(text)
	if len(its) != 2 {
		t.Fatalf("got %d itineraries, want 2", len(its))
	}
	if its[1].Price != "" {
		t.Errorf("second itinerary borrowed the first price: %q", its[1].Price)
	}
}

func TestExtractCRLF(t *testing.T) {
	ex, _ := For(LayoutEnglishSingle)
	its := ex.Extract(strings.ReplaceAll(englishSingle, "\n", "\r\n"))
	if len(its) != 1 || its[0].Legs[0].From != "ZRH" || its[0].Price != "245" {
		t.Fatalf("CRLF body not handled: %+v", its)
	}
}

func assertItinerary(t *testing.T, got, want Itinerary) {
	t.Helper()
	if got.Price != want.Price {
		t.Errorf("price = %q, want %q", got.Price, want.Price)
	}
	if len(got.Legs) != len(want.Legs) {
		t.Fatalf("got %d legs, want %d", len(got.Legs), len(want.Legs))
	}
	for i := range want.Legs {
		if got.Legs[i] != want.Legs[i] {
			t.Errorf("leg %d = %+v, want %+v", i, got.Legs[i], want.Legs[i])
		}
	}
}

func BenchmarkExtractEnglishDouble(b *testing.B) {
	ex, _ := For(LayoutEnglishDouble)
	for i := 0; i < b.N; i++ {
		ex.Extract(englishDouble)
	}
}
