package predict

import (
	"math"
	"sort"

	"senkyo/internal/core"
)

// normalizeShares converts one district's declared vote shares to integer
// percentages. Scale detection runs over the whole candidate set at once:
// only when every share is at most 1 is the set treated as fractional
// (0-1 scale) and multiplied by 100. Mixed per-candidate detection would
// produce inconsistent scales within one district.
func normalizeShares(shares []float64) []int {
	if len(shares) == 0 {
		return nil
	}

	fractional := true
	for _, s := range shares {
		if s > 1 {
			fractional = false
			break
		}
	}

	out := make([]int, len(shares))
	for i, s := range shares {
		if fractional {
			s *= 100
		}
		out[i] = int(math.Round(s))
	}
	return out
}

// districtFromWire converts a decoded district into a core district with
// normalized vote shares and the leading candidate recomputed from them.
func districtFromWire(d wireDistrict) core.DistrictPrediction {
	shares := make([]float64, len(d.Candidates))
	for i, c := range d.Candidates {
		shares[i] = c.PredictedVoteShare
	}
	normalized := normalizeShares(shares)

	candidates := make([]core.Candidate, len(d.Candidates))
	for i, c := range d.Candidates {
		candidates[i] = core.Candidate{
			Name:               c.Name,
			Party:              c.Party,
			IsIncumbent:        c.IsIncumbent,
			PredictedVoteShare: normalized[i],
		}
	}

	out := core.DistrictPrediction{
		DistrictNumber:   d.DistrictNumber,
		DistrictName:     d.DistrictName,
		Candidates:       candidates,
		LeadingCandidate: d.LeadingCandidate,
		Confidence:       parseConfidence(d.Confidence),
	}
	if w := districtWinner(candidates); w != nil {
		out.LeadingCandidate = w.Name
	}
	return out
}

// districtWinner returns the candidate with the highest vote share, or nil
// for an empty district.
func districtWinner(candidates []core.Candidate) *core.Candidate {
	if len(candidates) == 0 {
		return nil
	}
	best := 0
	for i := 1; i < len(candidates); i++ {
		if candidates[i].PredictedVoteShare > candidates[best].PredictedVoteShare {
			best = i
		}
	}
	return &candidates[best]
}

// seatsFromDistricts recounts party seats by awarding each district to its
// highest-vote-share candidate's party. The count is authoritative and
// overrides whatever seat totals the model declared.
func seatsFromDistricts(districts []core.DistrictPrediction) []core.PartySeats {
	counts := make(map[string]int)
	var order []string
	for _, d := range districts {
		w := districtWinner(d.Candidates)
		if w == nil || w.Party == "" {
			continue
		}
		if _, seen := counts[w.Party]; !seen {
			order = append(order, w.Party)
		}
		counts[w.Party]++
	}

	seats := make([]core.PartySeats, 0, len(order))
	for _, party := range order {
		seats = append(seats, core.PartySeats{Party: party, Seats: counts[party]})
	}
	sort.SliceStable(seats, func(i, j int) bool { return seats[i].Seats > seats[j].Seats })
	return seats
}

// rescaleSeats scales declared party seat counts so they sum to target,
// dumping any rounding residual on the largest party, then drops entries
// that ended up at zero or below.
func rescaleSeats(seats []core.PartySeats, target int) []core.PartySeats {
	if len(seats) == 0 {
		return seats
	}

	current := 0
	for _, s := range seats {
		current += s.Seats
	}
	if current == target {
		return seats
	}
	if current <= 0 {
		return nil
	}

	ratio := float64(target) / float64(current)
	scaled := make([]core.PartySeats, len(seats))
	newTotal := 0
	for i, s := range seats {
		scaled[i] = core.PartySeats{Party: s.Party, Seats: int(math.Round(float64(s.Seats) * ratio))}
		newTotal += scaled[i].Seats
	}

	if diff := target - newTotal; diff != 0 {
		maxIdx := 0
		for i, s := range scaled {
			if s.Seats > scaled[maxIdx].Seats {
				maxIdx = i
			}
		}
		scaled[maxIdx].Seats += diff
	}

	out := scaled[:0]
	for _, s := range scaled {
		if s.Seats > 0 {
			out = append(out, s)
		}
	}
	return out
}

// leadingParty returns the party with the most seats, or "" for an empty
// seat table.
func leadingParty(seats []core.PartySeats) string {
	if len(seats) == 0 {
		return ""
	}
	best := 0
	for i := 1; i < len(seats); i++ {
		if seats[i].Seats > seats[best].Seats {
			best = i
		}
	}
	return seats[best].Party
}

// Reconcile enforces the seat-total invariant on one prefecture
// prediction: afterwards the seat prediction sums exactly to target and
// the leading party is derived from the reconciled totals. When district
// data is present the seats are recounted from district winners; otherwise
// the declared totals are rescaled.
func Reconcile(pred *core.PrefecturePrediction, target int) {
	if len(pred.Districts) > 0 {
		pred.SeatPrediction = seatsFromDistricts(pred.Districts)
		// Recounted seats can still fall short when districts are missing
		// candidates; rescale closes the gap.
		pred.SeatPrediction = rescaleSeats(pred.SeatPrediction, target)
	} else {
		pred.SeatPrediction = rescaleSeats(pred.SeatPrediction, target)
	}
	pred.LeadingParty = leadingParty(pred.SeatPrediction)
}
