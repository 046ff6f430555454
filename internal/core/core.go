package core

// Confidence is a qualitative label on how reliable a prediction is.
// It is derived from data quality and contentiousness, not a probability.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// TotalSeats is the fixed size of the House of Representatives.
const TotalSeats = 465

// Candidate represents one candidate running in a single-member district.
type Candidate struct {
	Name               string `json:"name"`               // Candidate name
	Party              string `json:"party"`              // Party affiliation (free text until normalized)
	IsIncumbent        bool   `json:"isIncumbent"`        // Whether the candidate currently holds the seat
	PredictedVoteShare int    `json:"predictedVoteShare"` // Predicted vote share, percent (0-100)
}

// DistrictPrediction is the predicted outcome for one single-member district.
type DistrictPrediction struct {
	DistrictNumber   int         `json:"districtNumber"`   // 1..prefecture district count
	DistrictName     string      `json:"districtName"`     // e.g. "東京1区"
	Candidates       []Candidate `json:"candidates"`       // Ordered by predicted vote share
	LeadingCandidate string      `json:"leadingCandidate"` // Name of the highest-share candidate
	Confidence       Confidence  `json:"confidence"`
}

// PartySeats is a party's predicted seat count within one prefecture.
type PartySeats struct {
	Party string `json:"party"`
	Seats int    `json:"seats"`
}

// PrefecturePrediction is the predicted outcome for one prefecture.
// SeatPrediction must sum to the prefecture's district count after
// reconciliation; LeadingParty is always derived from the seat totals.
type PrefecturePrediction struct {
	PrefectureID   int                  `json:"prefectureId"`
	PrefectureName string               `json:"prefectureName"`
	LeadingParty   string               `json:"leadingParty"`
	Confidence     Confidence           `json:"confidence"`
	SeatPrediction []PartySeats         `json:"seatPrediction"`
	Districts      []DistrictPrediction `json:"districts,omitempty"`
	Commentary     string               `json:"commentary,omitempty"` // Free-text situation analysis
}

// PartyForecast is a party's national seat-range forecast.
type PartyForecast struct {
	Party     string `json:"party"`
	SeatRange [2]int `json:"seatRange"` // [min, max]
	Change    int    `json:"change"`    // Change from the previous election
}

// NationalSummary holds the nationwide seat forecast.
type NationalSummary struct {
	TotalSeats  int             `json:"totalSeats"`
	Predictions []PartyForecast `json:"predictions"`
}

// Prediction is the envelope returned to callers for both national and
// single-prefecture requests. An empty Timestamp marks a placeholder that
// carries no real data and must never be persisted as authoritative.
type Prediction struct {
	Timestamp             string                 `json:"timestamp"` // ISO 8601; "" = placeholder
	NationalSummary       NationalSummary        `json:"nationalSummary"`
	PrefecturePredictions []PrefecturePrediction `json:"prefecturePredictions"`
	KeyBattlegrounds      []string               `json:"keyBattlegrounds"`
}

// IsPlaceholder reports whether p carries no real data.
func (p *Prediction) IsPlaceholder() bool {
	return p.Timestamp == ""
}

// SeatTotal returns the summed seat prediction of a prefecture.
func (p *PrefecturePrediction) SeatTotal() int {
	total := 0
	for _, s := range p.SeatPrediction {
		total += s.Seats
	}
	return total
}
