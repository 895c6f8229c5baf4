package workers

import (
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	tests := []struct {
		name       string
		override   string
		available  int
		multiplier float64
		limit      int
		want       int
	}{
		{"one per cpu", "", 4, 1.0, 0, 4},
		{"capped by limit", "", 16, 1.0, 4, 4},
		{"fractional multiplier", "", 3, 1.5, 0, 4},
		{"never below one", "", 1, 0.1, 0, 1},
		{"override wins", "3", 16, 1.0, 0, 3},
		{"override still capped", "12", 16, 1.0, 4, 4},
		{"invalid override ignored", "lots", 2, 1.0, 0, 2},
		{"zero override ignored", "0", 2, 1.0, 0, 2},
		{"negative override ignored", "-2", 2, 1.0, 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := count(tt.override, tt.available, tt.multiplier, tt.limit); got != tt.want {
				t.Errorf("count(%q, %d, %v, %d) = %d, want %d",
					tt.override, tt.available, tt.multiplier, tt.limit, got, tt.want)
			}
		})
	}
}

func TestForVips(t *testing.T) {
	t.Setenv(VipsConcurrencyEnv, "")

	want := runtime.GOMAXPROCS(0)
	if want > maxVipsThreads {
		want = maxVipsThreads
	}
	if got := ForVips(); got != want {
		t.Errorf("ForVips() = %d, want %d", got, want)
	}

	t.Setenv(VipsConcurrencyEnv, "2")
	if got := ForVips(); got != 2 {
		t.Errorf("ForVips() with override = %d, want 2", got)
	}
}
