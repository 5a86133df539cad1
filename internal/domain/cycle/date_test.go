package cycle

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDateArithmetic(t *testing.T) {
	d := NewDate(2026, time.January, 30)
	if got := d.AddDays(3); !got.Equal(NewDate(2026, time.February, 2)) {
		t.Errorf("AddDays across month: got %s", got)
	}
	if got := d.DaysUntil(NewDate(2026, time.February, 11)); got != 12 {
		t.Errorf("DaysUntil: got %d, want 12", got)
	}
	if got := d.DaysUntil(NewDate(2026, time.January, 15)); got != -15 {
		t.Errorf("negative DaysUntil: got %d, want -15", got)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-01-15")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.String() != "2026-01-15" {
		t.Errorf("String: got %q", d.String())
	}
	if _, err := ParseDate("15.01.2026"); err == nil {
		t.Error("expected error for non-ISO input")
	}
}

func TestDateJSONNull(t *testing.T) {
	data, err := json.Marshal(Date{})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != "null" {
		t.Errorf("zero date: got %s, want null", data)
	}

	var d Date
	if err := json.Unmarshal([]byte("null"), &d); err != nil {
		t.Fatalf("Unmarshal null: %v", err)
	}
	if !d.IsZero() {
		t.Error("null must decode to the zero date")
	}
}
