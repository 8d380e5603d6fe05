package timeline

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolveNumeric(t *testing.T) {
	r := NewDateResolver()

	tests := []struct {
		expr string
		want time.Time
	}{
		{"15/03/2024", date(2024, time.March, 15)},
		{"15-03-2024", date(2024, time.March, 15)},
		{"1/2/2023", date(2023, time.February, 1)},
		{"15/03/24", date(2024, time.March, 15)},
		{"29/02/2024", date(2024, time.February, 29)}, // leap year
	}
	for _, tt := range tests {
		got, err := r.Resolve(tt.expr)
		if err != nil {
			t.Errorf("Resolve(%q) returned error: %v", tt.expr, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("Resolve(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestResolveNumericInvalid(t *testing.T) {
	r := NewDateResolver()

	for _, expr := range []string{
		"32/01/2024", // no 32nd day
		"15/13/2024", // no 13th month
		"31/02/2023", // February has no 31st
		"29/02/2023", // not a leap year
		"",
		"pas une date",
	} {
		if _, err := r.Resolve(expr); err == nil {
			t.Errorf("Resolve(%q) succeeded, want error", expr)
		}
	}
}

func TestResolveTextual(t *testing.T) {
	r := NewDateResolver()

	tests := []struct {
		expr string
		want time.Time
	}{
		{"15 mars 2024", date(2024, time.March, 15)},
		{"1er janvier 2023", date(2023, time.January, 1)},
		{"31 décembre 2022", date(2022, time.December, 31)},
		{"3 Août 2024", date(2024, time.August, 3)},
	}
	for _, tt := range tests {
		got, err := r.Resolve(tt.expr)
		if err != nil {
			t.Errorf("Resolve(%q) returned error: %v", tt.expr, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("Resolve(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}

	if _, err := r.Resolve("31 février 2024"); err == nil {
		t.Error("Resolve accepted a day that does not exist in février")
	}
}

func TestResolveWeekdayIgnoresQualifier(t *testing.T) {
	r := NewDateResolver()

	// 15 mars 2024 is a Friday; the stated weekday must not change the result.
	for _, expr := range []string{"vendredi 15 mars 2024", "lundi 15 mars 2024"} {
		got, err := r.Resolve(expr)
		if err != nil {
			t.Fatalf("Resolve(%q) returned error: %v", expr, err)
		}
		if want := date(2024, time.March, 15); !got.Equal(want) {
			t.Errorf("Resolve(%q) = %v, want %v", expr, got, want)
		}
	}
}

func TestResolveRelative(t *testing.T) {
	anchor := date(2024, time.June, 15)
	r := NewDateResolverAt(func() time.Time { return anchor })

	tests := []struct {
		expr string
		want time.Time
	}{
		{"il y a 10 jours", anchor.AddDate(0, 0, -10)},
		{"il y a 1 jour", anchor.AddDate(0, 0, -1)},
		{"il y a 2 mois", anchor.AddDate(0, 0, -60)},
		{"il y a 1 an", anchor.AddDate(0, 0, -365)},
		{"il y a 3 ans", anchor.AddDate(0, 0, -3*365)},
	}
	for _, tt := range tests {
		got, err := r.Resolve(tt.expr)
		if err != nil {
			t.Errorf("Resolve(%q) returned error: %v", tt.expr, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("Resolve(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestResolvePeriod(t *testing.T) {
	r := NewDateResolver()

	tests := []struct {
		expr string
		want time.Time
	}{
		{"début mars 2024", date(2024, time.March, 1)},
		{"mi-mars 2024", date(2024, time.March, 15)},
		{"fin mars 2024", date(2024, time.March, 28)},
		{"fin février 2023", date(2023, time.February, 28)},
		{"début de janvier 2022", date(2022, time.January, 1)},
	}
	for _, tt := range tests {
		got, err := r.Resolve(tt.expr)
		if err != nil {
			t.Errorf("Resolve(%q) returned error: %v", tt.expr, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("Resolve(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestResolveDeterministic(t *testing.T) {
	r := NewDateResolver()
	first, err := r.Resolve("15 mars 2024")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := r.Resolve("15 mars 2024")
		if err != nil {
			t.Fatal(err)
		}
		if !again.Equal(first) {
			t.Fatalf("resolution changed between runs: %v != %v", again, first)
		}
	}
}

func TestScanSuppressesOverlaps(t *testing.T) {
	r := NewDateResolver()
	text := "Audition prévue lundi 15 mars 2024 puis perquisition le 20/03/2024."

	matches := r.Scan(text)
	if len(matches) != 2 {
		t.Fatalf("Scan returned %d matches, want 2: %+v", len(matches), matches)
	}
	if matches[0].Kind != ExprWeekday {
		t.Errorf("first match kind = %s, want %s", matches[0].Kind, ExprWeekday)
	}
	if matches[1].Kind != ExprNumeric {
		t.Errorf("second match kind = %s, want %s", matches[1].Kind, ExprNumeric)
	}
	if matches[0].Start > matches[1].Start {
		t.Error("matches are not in document order")
	}
}

func TestScanDocumentOrder(t *testing.T) {
	r := NewDateResolver()
	text := "Le 01/02/2023 une saisie, puis début mars 2023 un rapport, enfin le 15 avril 2023 une audience."

	matches := r.Scan(text)
	if len(matches) != 3 {
		t.Fatalf("Scan returned %d matches, want 3", len(matches))
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Start < matches[i-1].Start {
			t.Fatalf("match %d out of document order", i)
		}
	}
}
