package predict

import (
	"fmt"
	"math"

	"senkyo/internal/core"
	"senkyo/internal/refdata"
)

// Base strength scores by candidate status, plus the bonus for major-party
// affiliation. The scores are arbitrary weights, not probabilities; they
// only need to produce a stable, plausible ordering.
const (
	scoreIncumbent  = 15
	scoreFormer     = 10
	scoreNewcomer   = 5
	scoreMajorParty = 5
)

// majorParties are the parties that get the affiliation bonus in the
// deterministic fallback.
var majorParties = map[string]struct{}{
	"自由民主党":  {},
	"自民党":    {},
	"中道改革連合": {},
	"日本維新の会": {},
	"国民民主党":  {},
	"公明党":    {},
}

// FallbackDistrict builds a deterministic district prediction from the
// candidate roster. Candidate strength is scored by incumbency status plus
// a major-party bonus, then normalized to vote shares summing to ~100.
// No randomness: repeated calls produce identical output.
func FallbackDistrict(roster *refdata.Roster, pref *refdata.Prefecture, districtNumber int) core.DistrictPrediction {
	name := fmt.Sprintf("%s%d区", pref.Name, districtNumber)

	rosterCandidates := roster.DistrictCandidates(pref.ID, districtNumber)
	if len(rosterCandidates) == 0 {
		// No roster data for this district at all.
		return core.DistrictPrediction{
			DistrictNumber: districtNumber,
			DistrictName:   name,
			Candidates: []core.Candidate{
				{Name: "候補者未詳", Party: "無所属", PredictedVoteShare: 100},
			},
			LeadingCandidate: "候補者未詳",
			Confidence:       core.ConfidenceLow,
		}
	}

	points := make([]int, len(rosterCandidates))
	total := 0
	for i, rc := range rosterCandidates {
		p := scoreNewcomer
		switch rc.Status {
		case refdata.StatusIncumbent:
			p = scoreIncumbent
		case refdata.StatusFormer:
			p = scoreFormer
		}
		if _, ok := majorParties[rc.Party]; ok {
			p += scoreMajorParty
		}
		points[i] = p
		total += p
	}

	candidates := make([]core.Candidate, len(rosterCandidates))
	for i, rc := range rosterCandidates {
		candidates[i] = core.Candidate{
			Name:               rc.Name,
			Party:              rc.Party,
			IsIncumbent:        rc.Status == refdata.StatusIncumbent,
			PredictedVoteShare: int(math.Round(float64(points[i]) / float64(total) * 100)),
		}
	}

	d := core.DistrictPrediction{
		DistrictNumber: districtNumber,
		DistrictName:   name,
		Candidates:     candidates,
		Confidence:     core.ConfidenceMedium,
	}
	d.LeadingCandidate = districtWinner(candidates).Name
	return d
}

// FallbackDistricts builds deterministic predictions for every district of
// a prefecture.
func FallbackDistricts(roster *refdata.Roster, pref *refdata.Prefecture) []core.DistrictPrediction {
	districts := make([]core.DistrictPrediction, 0, pref.Districts)
	for i := 1; i <= pref.Districts; i++ {
		districts = append(districts, FallbackDistrict(roster, pref, i))
	}
	return districts
}

// FallbackPrefecture builds a complete prefecture prediction from the
// roster alone: fallback districts, seats recounted from district winners,
// reconciled to the district count.
func FallbackPrefecture(roster *refdata.Roster, pref *refdata.Prefecture) core.PrefecturePrediction {
	p := core.PrefecturePrediction{
		PrefectureID:   pref.ID,
		PrefectureName: pref.Name,
		Confidence:     core.ConfidenceLow,
		Districts:      FallbackDistricts(roster, pref),
	}
	Reconcile(&p, pref.Districts)
	return p
}
