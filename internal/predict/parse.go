package predict

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"senkyo/internal/core"
)

// ParseError reports model output that was not JSON-shaped or could not be
// decoded after repair.
type ParseError struct {
	Reason string
	Raw    string // Truncated raw output for diagnostics
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse model output: %s", e.Reason)
}

func newParseError(reason, raw string) *ParseError {
	if len(raw) > 500 {
		raw = raw[:500]
	}
	return &ParseError{Reason: reason, Raw: raw}
}

var codeFenceRe = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")

// extractJSON pulls the first balanced JSON object or array out of raw
// model output. Code fences are stripped first, then the text is scanned
// for the opening bracket and matched with string-aware bracket counting.
func extractJSON(text string) (string, error) {
	if m := codeFenceRe.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return "", newParseError("no JSON object or array found", text)
	}

	open := text[start]
	var close byte = '}'
	if open == '[' {
		close = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == open:
			depth++
		case ch == close:
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", newParseError("unbalanced JSON brackets", text)
}

// repairJSON rewrites known-bad model idioms into valid JSON. Currently the
// only repair is leading-plus integers ("change": +5). The scan is
// string-aware so a "+3" inside commentary text is left alone.
func repairJSON(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		ch := text[i]
		b.WriteByte(ch)
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == ':':
			j := i + 1
			for j < len(text) && (text[j] == ' ' || text[j] == '\t' || text[j] == '\n' || text[j] == '\r') {
				b.WriteByte(text[j])
				j++
			}
			if j+1 < len(text) && text[j] == '+' && text[j+1] >= '0' && text[j+1] <= '9' {
				j++ // drop the plus sign
			}
			i = j - 1
		}
	}
	return b.String()
}

// Wire types decode model output leniently: vote shares and seat counts
// may arrive as fractions or floats and are normalized before they become
// core types.

type wireCandidate struct {
	Name               string  `json:"name"`
	Party              string  `json:"party"`
	IsIncumbent        bool    `json:"isIncumbent"`
	PredictedVoteShare float64 `json:"predictedVoteShare"`
}

type wireDistrict struct {
	DistrictNumber   int            `json:"districtNumber"`
	DistrictName     string         `json:"districtName"`
	Candidates       []wireCandidate `json:"candidates"`
	LeadingCandidate string         `json:"leadingCandidate"`
	Confidence       string         `json:"confidence"`
}

type wireSeats struct {
	Party string  `json:"party"`
	Seats float64 `json:"seats"`
}

type wireForecast struct {
	Party     string `json:"party"`
	SeatRange [2]int `json:"seatRange"`
	Change    int    `json:"change"`
}

type wirePrefecture struct {
	PrefectureID   int            `json:"prefectureId"`
	PrefectureName string         `json:"prefectureName"`
	LeadingParty   string         `json:"leadingParty"`
	Confidence     string         `json:"confidence"`
	SeatPrediction []wireSeats    `json:"seatPrediction"`
	Districts      []wireDistrict `json:"districts"`
	Commentary     string         `json:"commentary"`
}

type wirePrediction struct {
	Timestamp       string `json:"timestamp"`
	NationalSummary struct {
		TotalSeats  int            `json:"totalSeats"`
		Predictions []wireForecast `json:"predictions"`
	} `json:"nationalSummary"`
	PrefecturePredictions []wirePrefecture `json:"prefecturePredictions"`
	KeyBattlegrounds      []string         `json:"keyBattlegrounds"`
}

// decodePrediction extracts and decodes a full prediction envelope from raw
// model output.
func decodePrediction(raw string) (*wirePrediction, error) {
	jsonText, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}
	jsonText = repairJSON(jsonText)

	pred := &wirePrediction{}
	if err := json.Unmarshal([]byte(jsonText), pred); err != nil {
		return nil, newParseError(err.Error(), jsonText)
	}
	return pred, nil
}

// decodeDistricts extracts and decodes a district array from raw model
// output.
func decodeDistricts(raw string) ([]wireDistrict, error) {
	jsonText, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}
	jsonText = repairJSON(jsonText)

	var districts []wireDistrict
	if err := json.Unmarshal([]byte(jsonText), &districts); err != nil {
		return nil, newParseError(err.Error(), jsonText)
	}
	return districts, nil
}

// parseConfidence maps a model-reported confidence label to the known set,
// defaulting to medium for anything unrecognized.
func parseConfidence(s string) core.Confidence {
	switch core.Confidence(strings.ToLower(strings.TrimSpace(s))) {
	case core.ConfidenceHigh:
		return core.ConfidenceHigh
	case core.ConfidenceLow:
		return core.ConfidenceLow
	default:
		return core.ConfidenceMedium
	}
}
