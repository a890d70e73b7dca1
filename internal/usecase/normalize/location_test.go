package normalize_test

import (
	"testing"

	"startup-radar/internal/usecase/normalize"
)

func TestParseLocation_Accepted(t *testing.T) {
	tests := []struct {
		in      string
		city    string
		region  string
		country string
	}{
		{"San Francisco, CA", "San Francisco", "CA", ""},
		{"Austin, TX", "Austin", "TX", ""},
		{"Toronto, ON", "Toronto", "ON", ""},
		{"Lagos, Nigeria", "Lagos", "", "Nigeria"},
		{"Berlin", "Berlin", "", ""},
		{"São Paulo", "São Paulo", "", ""},
		{"New York, NY, USA", "New York", "NY", "USA"},
		{"Tel Aviv", "Tel Aviv", "", ""},
	}
	for _, tt := range tests {
		loc, ok := normalize.ParseLocation(tt.in, nil)
		if !ok {
			t.Errorf("ParseLocation(%q) rejected, want accepted", tt.in)
			continue
		}
		if loc.City != tt.city || loc.Region != tt.region || loc.Country != tt.country {
			t.Errorf("ParseLocation(%q) = %+v, want city=%q region=%q country=%q",
				tt.in, loc, tt.city, tt.region, tt.country)
		}
		if loc.Raw != tt.in {
			t.Errorf("ParseLocation(%q) Raw = %q, want original", tt.in, loc.Raw)
		}
	}
}

func TestParseLocation_Remote(t *testing.T) {
	loc, ok := normalize.ParseLocation("Remote", nil)
	if !ok {
		t.Fatal("ParseLocation(Remote) rejected")
	}
	if loc.City != "" || loc.Country != "" || loc.Raw != "Remote" {
		t.Errorf("ParseLocation(Remote) = %+v", loc)
	}
}

func TestParseLocation_Rejected(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"description sentence", "Building widgets for the modern web."},
		{"description word", "Analytics platform"},
		{"punctuation", "What we do: widgets"},
		{"all caps department", "SALES AND MARKETING"},
		{"unknown single token", "Widgetsville"},
		{"tag-like region", "Computer Vision, AI"},
		{"too short", "A"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if loc, ok := normalize.ParseLocation(tt.in, nil); ok {
				t.Errorf("ParseLocation(%q) = %+v, want rejected", tt.in, loc)
			}
		})
	}
}

// 都市名がそのレコードのタグと衝突する場合は位置情報として採用しない
func TestParseLocation_TagCollision(t *testing.T) {
	if loc, ok := normalize.ParseLocation("Phoenix, AZ", []string{"Phoenix"}); ok {
		t.Errorf("ParseLocation with colliding tag = %+v, want rejected", loc)
	}
	// 衝突しないタグなら通常どおり
	if _, ok := normalize.ParseLocation("Phoenix, AZ", []string{"Fintech"}); !ok {
		t.Error("ParseLocation(Phoenix, AZ) rejected without collision")
	}
}
