package core

import "testing"

func TestIsPlaceholder(t *testing.T) {
	placeholder := &Prediction{Timestamp: ""}
	if !placeholder.IsPlaceholder() {
		t.Error("Prediction with empty timestamp should be a placeholder")
	}

	real := &Prediction{Timestamp: "2026-02-01T00:00:00Z"}
	if real.IsPlaceholder() {
		t.Error("Prediction with a timestamp should not be a placeholder")
	}
}

func TestSeatTotal(t *testing.T) {
	pred := PrefecturePrediction{
		SeatPrediction: []PartySeats{
			{Party: "自民党", Seats: 7},
			{Party: "中道改革連合", Seats: 4},
			{Party: "日本維新の会", Seats: 1},
		},
	}
	if got := pred.SeatTotal(); got != 12 {
		t.Errorf("SeatTotal = %d, want 12", got)
	}

	empty := PrefecturePrediction{}
	if got := empty.SeatTotal(); got != 0 {
		t.Errorf("SeatTotal of empty prediction = %d, want 0", got)
	}
}
