package predict

import "senkyo/internal/core"

// uniformSpread is the max-minus-min vote share gap, in percentage points,
// at or below which a district's shares carry no usable signal.
const uniformSpread = 5

// tooUniform reports whether a district's candidate vote shares are too
// flat to be a meaningful prediction: either every share is identical or
// the spread between best and worst is at most uniformSpread points.
func tooUniform(candidates []core.Candidate) bool {
	if len(candidates) < 2 {
		return false
	}

	min, max := candidates[0].PredictedVoteShare, candidates[0].PredictedVoteShare
	for _, c := range candidates[1:] {
		if c.PredictedVoteShare < min {
			min = c.PredictedVoteShare
		}
		if c.PredictedVoteShare > max {
			max = c.PredictedVoteShare
		}
	}
	return max-min <= uniformSpread
}

// countUniform returns how many districts fail the uniformity gate.
func countUniform(districts []core.DistrictPrediction) int {
	n := 0
	for _, d := range districts {
		if tooUniform(d.Candidates) {
			n++
		}
	}
	return n
}

// rejectedByQualityGate reports whether a generated district set should be
// discarded: more than half of its districts are too uniform.
func rejectedByQualityGate(districts []core.DistrictPrediction) bool {
	if len(districts) == 0 {
		return false
	}
	return countUniform(districts) > len(districts)/2
}
