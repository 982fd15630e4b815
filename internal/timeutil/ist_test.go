package timeutil

import (
	"testing"
	"time"
)

func TestBillPeriod(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{
			"mid-month",
			time.Date(2024, time.July, 15, 11, 0, 0, 0, time.UTC),
			"2407",
		},
		{
			"month rolls over in IST before UTC",
			// 19:00 UTC on 30 June is already 00:30 IST on 1 July.
			time.Date(2024, time.June, 30, 19, 0, 0, 0, time.UTC),
			"2407",
		},
		{
			"year rollover",
			time.Date(2024, time.December, 31, 20, 0, 0, 0, time.UTC),
			"2501",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BillPeriod(tt.t); got != tt.want {
				t.Errorf("BillPeriod(%v) = %s, want %s", tt.t, got, tt.want)
			}
		})
	}
}

func TestToIST(t *testing.T) {
	utc := time.Date(2024, time.July, 15, 12, 0, 0, 0, time.UTC)
	ist := ToIST(utc)
	if ist.Hour() != 17 || ist.Minute() != 30 {
		t.Errorf("ToIST(12:00 UTC) = %02d:%02d, want 17:30", ist.Hour(), ist.Minute())
	}
}
