// Package aggregate rebuilds the national seat forecast from the cached
// per-prefecture predictions instead of asking the model for a nationwide
// answer. The bottom-up sum is cheaper and stays consistent with whatever
// the dashboard already shows per prefecture.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"senkyo/internal/cache"
	"senkyo/internal/core"
	"senkyo/internal/logger"
	"senkyo/internal/refdata"
)

const (
	// minPrefectures is the coverage floor below which an aggregate would
	// be misleading rather than merely incomplete.
	minPrefectures = 3

	// seatRangeMargin widens the summed seat count into a [min, max] range.
	seatRangeMargin = 10

	maxBattlegrounds = 10
)

// ErrInsufficientData is returned when too few prefectures have cached
// predictions to build a meaningful national summary.
var ErrInsufficientData = errors.New("aggregate: not enough cached prefecture predictions")

// baselineChanges holds the seat change vs. the previous election for each
// major party, used to annotate aggregated forecasts. Parties outside this
// table get a change of zero.
var baselineChanges = map[string]int{
	"自民党":    -15,
	"中道改革連合": 12,
	"日本維新の会": 8,
	"公明党":    -2,
	"国民民主党":  4,
	"共産党":    -1,
	"れいわ新選組": 3,
}

// Aggregator sums cached prefecture predictions into a national forecast.
type Aggregator struct {
	cache      *cache.PredictionCache
	normalizer *refdata.Normalizer
	now        func() time.Time
}

// New creates an aggregator over the given prediction cache.
func New(c *cache.PredictionCache) *Aggregator {
	return &Aggregator{
		cache:      c,
		normalizer: refdata.NewNormalizer(refdata.Parties),
		now:        time.Now,
	}
}

// Aggregate scans every prefecture's cached prediction and builds a fresh
// national envelope. Placeholders and missing prefectures are skipped; if
// fewer than minPrefectures remain, ErrInsufficientData is returned.
func (a *Aggregator) Aggregate(ctx context.Context) (*core.Prediction, error) {
	log := logger.Get()

	seats := make(map[string]int)
	var partyOrder []string
	var summaries []core.PrefecturePrediction
	var battlegrounds []string
	covered := 0

	for _, pref := range refdata.Prefectures {
		pred, err := a.cache.LoadPrefecture(ctx, pref.ID)
		if err != nil {
			return nil, err
		}
		if pred == nil || pred.IsPlaceholder() {
			continue
		}

		pp := prefectureEntry(pred, pref.ID)
		if pp == nil {
			continue
		}
		covered++

		// Party names in cached data may predate the current canonical
		// table, so normalize before summing.
		for _, s := range pp.SeatPrediction {
			name := a.normalizer.Normalize(s.Party)
			if _, seen := seats[name]; !seen {
				partyOrder = append(partyOrder, name)
			}
			seats[name] += s.Seats
		}

		if pp.Confidence != core.ConfidenceHigh && len(battlegrounds) < maxBattlegrounds {
			battlegrounds = append(battlegrounds, fmt.Sprintf("%s1区", pref.Name))
		}

		summary := *pp
		summary.LeadingParty = a.normalizer.Normalize(pp.LeadingParty)
		summary.Districts = nil // keep the national payload small
		summaries = append(summaries, summary)
	}

	if covered < minPrefectures {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientData, covered, minPrefectures)
	}

	forecasts := make([]core.PartyForecast, 0, len(partyOrder))
	for _, name := range partyOrder {
		sum := seats[name]
		low := sum - seatRangeMargin
		if low < 0 {
			low = 0
		}
		forecasts = append(forecasts, core.PartyForecast{
			Party:     name,
			SeatRange: [2]int{low, sum + seatRangeMargin},
			Change:    baselineChanges[name],
		})
	}
	sort.SliceStable(forecasts, func(i, j int) bool {
		return seats[forecasts[i].Party] > seats[forecasts[j].Party]
	})

	log.Info("aggregated national forecast",
		"prefectures", covered,
		"parties", len(forecasts),
		"battlegrounds", len(battlegrounds))

	return &core.Prediction{
		Timestamp: a.now().UTC().Format(time.RFC3339),
		NationalSummary: core.NationalSummary{
			TotalSeats:  core.TotalSeats,
			Predictions: forecasts,
		},
		PrefecturePredictions: summaries,
		KeyBattlegrounds:      battlegrounds,
	}, nil
}

// Run aggregates and stores the result in the national cache slot.
func (a *Aggregator) Run(ctx context.Context) (*core.Prediction, error) {
	pred, err := a.Aggregate(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.cache.SaveNational(ctx, pred); err != nil {
		return nil, err
	}
	return pred, nil
}

// prefectureEntry finds the block for one prefecture inside a cached
// envelope. Per-prefecture cache records normally hold exactly one block,
// but the ID is checked rather than assumed.
func prefectureEntry(pred *core.Prediction, prefectureID int) *core.PrefecturePrediction {
	for i := range pred.PrefecturePredictions {
		if pred.PrefecturePredictions[i].PrefectureID == prefectureID {
			return &pred.PrefecturePredictions[i]
		}
	}
	return nil
}
