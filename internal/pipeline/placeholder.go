package pipeline

import (
	"fmt"

	"senkyo/internal/core"
	"senkyo/internal/predict"
	"senkyo/internal/refdata"
)

// Placeholder builds the no-data prediction served when no cached result
// exists and generation is unavailable. Its empty timestamp marks it as
// synthetic so it is never written back to the cache.
func Placeholder(prefectureID int) *core.Prediction {
	pred := &core.Prediction{
		Timestamp:        "",
		NationalSummary:  predict.BaselineNationalSummary(),
		KeyBattlegrounds: []string{"東京1区", "大阪5区", "愛知1区", "神奈川18区", "福岡2区"},
	}

	pref := refdata.PrefectureByID(prefectureID)
	if pref == nil {
		return pred
	}

	// A rough even split keeps the map render sensible until real data
	// arrives.
	lead := (pref.Districts + 1) / 2
	rest := pref.Districts - lead
	seats := []core.PartySeats{{Party: "自民党", Seats: lead}}
	if rest > 0 {
		seats = append(seats, core.PartySeats{Party: "中道改革連合", Seats: rest})
	}

	pred.PrefecturePredictions = []core.PrefecturePrediction{{
		PrefectureID:   pref.ID,
		PrefectureName: pref.Name,
		LeadingParty:   "自民党",
		Confidence:     core.ConfidenceLow,
		SeatPrediction: seats,
	}}
	pred.KeyBattlegrounds = []string{fmt.Sprintf("%s1区", pref.Name)}
	return pred
}
