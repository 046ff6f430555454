package predict

import (
	"testing"

	"senkyo/internal/core"
)

func TestNormalizeShares(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want []int
	}{
		{"fractional set scaled", []float64{0.35, 0.40, 0.25}, []int{35, 40, 25}},
		{"percent set untouched", []float64{35, 40, 25}, []int{35, 40, 25}},
		{"floats rounded", []float64{35.6, 40.2, 24.2}, []int{36, 40, 24}},
		// One share above 1 means the whole set is on the percent scale,
		// even if other entries look fractional.
		{"mixed treated as percent", []float64{0.5, 45, 54.5}, []int{1, 45, 55}},
		{"empty", nil, nil},
	}
	for _, tt := range tests {
		got := normalizeShares(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("%s: normalizeShares(%v) = %v, want %v", tt.name, tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%s: normalizeShares(%v) = %v, want %v", tt.name, tt.in, got, tt.want)
				break
			}
		}
	}
}

func TestRescaleSeats(t *testing.T) {
	seats := rescaleSeats([]core.PartySeats{
		{Party: "A", Seats: 7},
		{Party: "B", Seats: 7},
	}, 12)

	total := 0
	for _, s := range seats {
		total += s.Seats
	}
	if total != 12 {
		t.Errorf("rescaled seats sum to %d, want 12", total)
	}
	if seats[0].Seats < seats[1].Seats {
		t.Errorf("rescaling inverted the order: %v", seats)
	}
}

func TestRescaleSeats_ResidualGoesToLargest(t *testing.T) {
	// Each entry rounds to 3, leaving one seat unassigned; the residual
	// lands on the first largest entry.
	seats := rescaleSeats([]core.PartySeats{
		{Party: "A", Seats: 3},
		{Party: "B", Seats: 3},
		{Party: "C", Seats: 3},
	}, 10)

	total := 0
	for _, s := range seats {
		total += s.Seats
	}
	if total != 10 {
		t.Errorf("rescaled seats sum to %d, want 10", total)
	}
	if seats[0].Party != "A" || seats[0].Seats != 4 {
		t.Errorf("residual should land on A: %v", seats)
	}
}

func TestRescaleSeats_DropsZeroEntries(t *testing.T) {
	seats := rescaleSeats([]core.PartySeats{
		{Party: "A", Seats: 30},
		{Party: "B", Seats: 1},
	}, 3)

	total := 0
	for _, s := range seats {
		total += s.Seats
		if s.Seats <= 0 {
			t.Errorf("entry with non-positive seats survived: %v", s)
		}
	}
	if total != 3 {
		t.Errorf("rescaled seats sum to %d, want 3", total)
	}
}

func TestReconcile_RecountsFromDistricts(t *testing.T) {
	pred := core.PrefecturePrediction{
		// Declared seats disagree with the district winners on purpose.
		SeatPrediction: []core.PartySeats{{Party: "公明党", Seats: 99}},
		Districts: []core.DistrictPrediction{
			{DistrictNumber: 1, Candidates: []core.Candidate{
				{Name: "a", Party: "自民党", PredictedVoteShare: 45},
				{Name: "b", Party: "中道改革連合", PredictedVoteShare: 40},
			}},
			{DistrictNumber: 2, Candidates: []core.Candidate{
				{Name: "c", Party: "自民党", PredictedVoteShare: 50},
				{Name: "d", Party: "共産党", PredictedVoteShare: 30},
			}},
			{DistrictNumber: 3, Candidates: []core.Candidate{
				{Name: "e", Party: "中道改革連合", PredictedVoteShare: 48},
				{Name: "f", Party: "自民党", PredictedVoteShare: 42},
			}},
		},
	}

	Reconcile(&pred, 3)

	if got := pred.SeatTotal(); got != 3 {
		t.Errorf("seat total = %d, want 3", got)
	}
	if pred.LeadingParty != "自民党" {
		t.Errorf("leading party = %q, want 自民党", pred.LeadingParty)
	}
	for _, s := range pred.SeatPrediction {
		if s.Party == "公明党" {
			t.Error("declared seats should have been replaced by the recount")
		}
	}
}

func TestReconcile_RescalesWithoutDistricts(t *testing.T) {
	pred := core.PrefecturePrediction{
		SeatPrediction: []core.PartySeats{
			{Party: "自民党", Seats: 8},
			{Party: "中道改革連合", Seats: 6},
		},
	}

	Reconcile(&pred, 7)

	if got := pred.SeatTotal(); got != 7 {
		t.Errorf("seat total = %d, want 7", got)
	}
	if pred.LeadingParty != "自民党" {
		t.Errorf("leading party = %q, want 自民党", pred.LeadingParty)
	}
}

func TestTooUniform(t *testing.T) {
	uniform := []core.Candidate{
		{PredictedVoteShare: 33}, {PredictedVoteShare: 33}, {PredictedVoteShare: 34},
	}
	if !tooUniform(uniform) {
		t.Error("33/33/34 should be flagged as too uniform")
	}

	distinct := []core.Candidate{
		{PredictedVoteShare: 45}, {PredictedVoteShare: 35}, {PredictedVoteShare: 20},
	}
	if tooUniform(distinct) {
		t.Error("45/35/20 should not be flagged")
	}

	// A walkover district carries signal even with one candidate.
	if tooUniform([]core.Candidate{{PredictedVoteShare: 100}}) {
		t.Error("single-candidate district should never be flagged")
	}
}

func TestRejectedByQualityGate(t *testing.T) {
	flat := core.DistrictPrediction{Candidates: []core.Candidate{
		{PredictedVoteShare: 33}, {PredictedVoteShare: 33},
	}}
	sharp := core.DistrictPrediction{Candidates: []core.Candidate{
		{PredictedVoteShare: 55}, {PredictedVoteShare: 30},
	}}

	if !rejectedByQualityGate([]core.DistrictPrediction{flat, flat, sharp}) {
		t.Error("2 of 3 uniform districts should fail the gate")
	}
	if rejectedByQualityGate([]core.DistrictPrediction{flat, sharp, sharp}) {
		t.Error("1 of 3 uniform districts should pass the gate")
	}
	if rejectedByQualityGate(nil) {
		t.Error("empty district set should not be rejected")
	}
}
