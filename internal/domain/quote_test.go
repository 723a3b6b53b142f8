package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestQuote_UnmarshalJSON_VolumeNaming(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want float64
	}{
		{"vol only", `{"code":"000001","date":"2023-01-03","open":10,"high":10.2,"low":9.8,"close":9.95,"vol":1200}`, 1200},
		{"volume only", `{"code":"000001","date":"2023-01-03","open":10,"high":10.2,"low":9.8,"close":9.95,"volume":800}`, 800},
		{"both", `{"code":"000001","date":"2023-01-03","open":10,"high":10.2,"low":9.8,"close":9.95,"vol":5,"volume":5}`, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var q Quote
			if err := json.Unmarshal([]byte(tt.raw), &q); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if q.Vol != tt.want || q.Volume != tt.want {
				t.Errorf("Vol=%v Volume=%v, want both %v", q.Vol, q.Volume, tt.want)
			}
			if !q.High.Equal(decimal.RequireFromString("10.2")) {
				t.Errorf("High = %s, want 10.2", q.High)
			}
			if FormatTimestamp(q.Timestamp) != "2023-01-03 00:00:00" {
				t.Errorf("Timestamp = %s", FormatTimestamp(q.Timestamp))
			}
		})
	}
}

func TestQuote_UnmarshalJSON_DatetimeWins(t *testing.T) {
	raw := `{"code":"000001","date":"2023-01-03","datetime":"2023-01-03 10:35:00","open":1,"high":1,"low":1,"close":1,"vol":1}`
	var q Quote
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if FormatTimestamp(q.Timestamp) != "2023-01-03 10:35:00" {
		t.Errorf("Timestamp = %s, want 2023-01-03 10:35:00", FormatTimestamp(q.Timestamp))
	}
}

func TestQuote_UnmarshalJSON_BadTimestamp(t *testing.T) {
	var q Quote
	if err := json.Unmarshal([]byte(`{"code":"x","date":"03/01/2023"}`), &q); err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func TestQuote_MarshalJSON_ExposesBothVolumes(t *testing.T) {
	q := Quote{Code: "000001", Vol: 42}
	data, err := json.Marshal(q)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal map: %v", err)
	}
	if m["vol"] != float64(42) || m["volume"] != float64(42) {
		t.Errorf("vol=%v volume=%v, want 42/42", m["vol"], m["volume"])
	}
}
