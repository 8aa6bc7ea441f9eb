package ledger

import (
	"testing"
	"time"
)

func TestValidateSignedDate(t *testing.T) {
	start := day(t, "2025-01-01")

	tests := []struct {
		name   string
		signed time.Time
		last   *time.Time
		codes  []string
	}{
		{"first annex on start date", day(t, "2025-01-01"), nil, nil},
		{"first annex after start", day(t, "2025-03-01"), nil, nil},
		{"before start", day(t, "2024-12-31"), nil, []string{CodeSignedBeforeStart}},
		{"after last", day(t, "2025-03-02"), dayPtr(t, "2025-03-01"), nil},
		{"same day as last", day(t, "2025-03-01"), dayPtr(t, "2025-03-01"), []string{CodeSignedNotIncreased}},
		{"before last", day(t, "2025-01-15"), dayPtr(t, "2025-02-01"), []string{CodeSignedNotIncreased}},
		{"before start and last", day(t, "2024-06-01"), dayPtr(t, "2025-02-01"), []string{CodeSignedBeforeStart, CodeSignedNotIncreased}},
		{"missing", time.Time{}, nil, []string{CodeMissingSignedDate}},
		{"time of day is ignored", time.Date(2025, 3, 1, 23, 59, 0, 0, time.UTC), dayPtr(t, "2025-03-01"), []string{CodeSignedNotIncreased}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateSignedDate(tt.signed, start, tt.last)
			if len(got) != len(tt.codes) {
				t.Fatalf("got %+v, want codes %v", got, tt.codes)
			}
			for i, code := range tt.codes {
				if got[i].Code != code {
					t.Errorf("violation %d: got %q, want %q", i, got[i].Code, code)
				}
			}
		})
	}
}

func TestValidateEndDateChange(t *testing.T) {
	start := day(t, "2025-01-01")
	if vs := ValidateEndDateChange(nil, start); len(vs) != 0 {
		t.Fatalf("nil end date must pass, got %+v", vs)
	}
	if vs := ValidateEndDateChange(dayPtr(t, "2026-06-30"), start); len(vs) != 0 {
		t.Fatalf("extension must pass, got %+v", vs)
	}
	if vs := ValidateEndDateChange(dayPtr(t, "2025-01-01"), start); !hasCode(vs, CodeInvalidEndDate) {
		t.Fatalf("end date on start must fail, got %+v", vs)
	}
}
