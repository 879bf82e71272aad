package stats

import (
	"testing"

	"alpha-oracle/internal/domain"
)

func TestWinRate(t *testing.T) {
	tests := []struct {
		name    string
		wins    uint64
		losses  uint64
		want    float64
		wantHas bool
	}{
		{"no settled predictions", 0, 0, 0, false},
		{"all wins", 3, 0, 1.0, true},
		{"all losses", 0, 4, 0, true},
		{"mixed", 3, 1, 0.75, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, has := WinRate(tt.wins, tt.losses)
			if has != tt.wantHas {
				t.Errorf("has = %v, want %v", has, tt.wantHas)
			}
			if got != tt.want {
				t.Errorf("WinRate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompute(t *testing.T) {
	o := &domain.Oracle{
		Authority:        "auth",
		Name:             "alpha",
		TotalPredictions: 10,
		Wins:             4,
		Losses:           2,
	}

	s := Compute(o)
	if s.Pending != 4 {
		t.Errorf("Pending = %d, want 4", s.Pending)
	}
	if s.Settled != 6 {
		t.Errorf("Settled = %d, want 6", s.Settled)
	}
	if !s.HasSettled {
		t.Error("HasSettled = false, want true")
	}
	if got := s.WinRate; got != 4.0/6.0 {
		t.Errorf("WinRate = %v", got)
	}
}

func TestComputeFreshOracle(t *testing.T) {
	s := Compute(&domain.Oracle{Authority: "auth", Name: "new"})
	if s.HasSettled {
		t.Error("fresh oracle must report no settled predictions")
	}
	if s.WinRate != 0 {
		t.Errorf("WinRate = %v, want 0", s.WinRate)
	}
}
