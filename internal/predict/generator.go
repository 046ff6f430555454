package predict

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"senkyo/internal/core"
	"senkyo/internal/logger"
	"senkyo/internal/refdata"
)

const (
	// Prefectures with more districts than this get their district-level
	// output generated in batches to stay inside output-length limits.
	largePrefectureThreshold = 10
	batchSize                = 5

	commentaryTemperature = 0.7
	defaultTemperature    = 0.7
)

// Generator produces structured election predictions from news text and
// the candidate roster. It owns prompt construction, output parsing, the
// uniformity quality gate, batched district generation, and the
// deterministic fallback; its output always satisfies the seat-total
// invariant for the requested prefecture.
type Generator struct {
	llm    TextGenerator
	roster *refdata.Roster
	policy RetryPolicy
	now    func() time.Time
}

// NewGenerator creates a prediction generator.
func NewGenerator(llm TextGenerator, roster *refdata.Roster, policy RetryPolicy) *Generator {
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}
	return &Generator{
		llm:    llm,
		roster: roster,
		policy: policy,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Generate produces a prediction for one prefecture, or the national scope
// when pref is nil. fastMode uses the cheaper prompt without per-district
// generation. Generate never returns an empty prediction: on external
// failure or unrecoverable parse failure it falls back to the
// deterministic roster-derived estimate.
func (g *Generator) Generate(ctx context.Context, newsText string, pref *refdata.Prefecture, fastMode bool) *core.Prediction {
	rosterText := FormatRoster(g.roster, pref)

	var prompt string
	if fastMode {
		prompt = buildFastPrompt(newsText, rosterText, pref, g.now())
	} else {
		prompt = buildMainPrompt(newsText, rosterText, pref, g.now())
	}

	wire, err := g.generateEnvelope(ctx, prompt)
	if err != nil {
		logger.Warn("prediction generation failed, using roster fallback",
			"prefecture", prefName(pref), "error", err.Error())
		return g.fallbackEnvelope(pref)
	}

	if pref == nil {
		return g.nationalFromWire(wire)
	}
	return g.prefectureFromWire(ctx, wire, newsText, pref, fastMode)
}

// generateEnvelope runs the main prompt with bounded retries, raising the
// temperature on each attempt.
func (g *Generator) generateEnvelope(ctx context.Context, prompt string) (*wirePrediction, error) {
	var lastErr error
	for attempt := 1; attempt <= g.policy.MaxAttempts; attempt++ {
		raw, err := g.llm.GenerateText(ctx, prompt, g.policy.Temperature(attempt))
		if err != nil {
			lastErr = err
			continue
		}
		wire, err := decodePrediction(raw)
		if err != nil {
			lastErr = err
			continue
		}
		return wire, nil
	}
	return nil, fmt.Errorf("all %d generation attempts failed: %w", g.policy.MaxAttempts, lastErr)
}

// nationalFromWire converts a decoded national envelope, reconciling every
// prefecture entry against its known district count.
func (g *Generator) nationalFromWire(wire *wirePrediction) *core.Prediction {
	pred := &core.Prediction{
		Timestamp:        g.now().Format(time.RFC3339),
		NationalSummary:  nationalSummaryFromWire(wire),
		KeyBattlegrounds: wire.KeyBattlegrounds,
	}

	for _, wp := range wire.PrefecturePredictions {
		p := prefecturePredictionFromWire(wp)
		if ref := refdata.PrefectureByID(wp.PrefectureID); ref != nil {
			Reconcile(&p, ref.Districts)
		}
		pred.PrefecturePredictions = append(pred.PrefecturePredictions, p)
	}
	return pred
}

// prefectureFromWire converts a decoded envelope for a single-prefecture
// request, running district-level supplementation, the quality gate, and
// reconciliation.
func (g *Generator) prefectureFromWire(ctx context.Context, wire *wirePrediction, newsText string, pref *refdata.Prefecture, fastMode bool) *core.Prediction {
	var p core.PrefecturePrediction
	found := false
	for _, wp := range wire.PrefecturePredictions {
		if wp.PrefectureID == pref.ID || wp.PrefectureName == pref.Name {
			p = prefecturePredictionFromWire(wp)
			found = true
			break
		}
	}
	if !found {
		p = FallbackPrefecture(g.roster, pref)
	}
	p.PrefectureID = pref.ID
	p.PrefectureName = pref.Name

	if !fastMode {
		g.ensureDistricts(ctx, &p, newsText, pref)
	}
	Reconcile(&p, pref.Districts)

	if !fastMode && len(p.Districts) > 0 && p.Commentary == "" {
		p.Commentary = g.generateCommentary(ctx, newsText, p.Districts, pref)
	}

	pred := &core.Prediction{
		Timestamp:             g.now().Format(time.RFC3339),
		NationalSummary:       nationalSummaryFromWire(wire),
		PrefecturePredictions: []core.PrefecturePrediction{p},
		KeyBattlegrounds:      wire.KeyBattlegrounds,
	}
	if len(pred.KeyBattlegrounds) == 0 {
		pred.KeyBattlegrounds = []string{fmt.Sprintf("%s1区", pref.Name)}
	}
	return pred
}

// ensureDistricts makes sure p carries a full, quality-checked district
// set: batched generation for large prefectures with incomplete output, a
// retry loop when the first pass failed the uniformity gate or produced
// nothing, and roster fallback for whatever is still missing.
func (g *Generator) ensureDistricts(ctx context.Context, p *core.PrefecturePrediction, newsText string, pref *refdata.Prefecture) {
	existing := len(p.Districts)

	switch {
	case pref.Districts > largePrefectureThreshold && existing < pref.Districts/2:
		logger.Info("district data incomplete, generating in batches",
			"prefecture", pref.Name, "have", existing, "want", pref.Districts)
		p.Districts = g.generateDistrictsInBatches(ctx, newsText, pref)
	case existing > 0 && rejectedByQualityGate(p.Districts):
		logger.Info("district vote shares too uniform, regenerating",
			"prefecture", pref.Name, "uniform", countUniform(p.Districts), "total", existing)
		p.Districts = g.generateDistrictsWithRetry(ctx, newsText, pref)
	case existing == 0:
		p.Districts = g.generateDistrictsWithRetry(ctx, newsText, pref)
	default:
		p.Districts = g.mergeAndFill(p.Districts, pref)
	}
}

// generateDistrictsWithRetry regenerates the full district set with the
// bounded retry policy; each attempt runs hotter. All attempts exhausted
// means the deterministic roster fallback.
func (g *Generator) generateDistrictsWithRetry(ctx context.Context, newsText string, pref *refdata.Prefecture) []core.DistrictPrediction {
	rosterText := formatDistrictRoster(g.roster, pref, nil)
	prompt := buildDistrictPrompt(newsText, rosterText, pref)

	for attempt := 1; attempt <= g.policy.MaxAttempts; attempt++ {
		raw, err := g.llm.GenerateText(ctx, prompt, g.policy.Temperature(attempt))
		if err != nil {
			logger.Warn("district generation attempt failed",
				"prefecture", pref.Name, "attempt", attempt, "error", err.Error())
			continue
		}

		wireDistricts, err := decodeDistricts(raw)
		if err != nil {
			logger.Warn("district generation output unparseable",
				"prefecture", pref.Name, "attempt", attempt, "error", err.Error())
			continue
		}

		districts := make([]core.DistrictPrediction, 0, len(wireDistricts))
		for _, wd := range wireDistricts {
			if wd.DistrictNumber >= 1 && wd.DistrictNumber <= pref.Districts {
				districts = append(districts, districtFromWire(wd))
			}
		}

		if rejectedByQualityGate(districts) {
			logger.Info("district vote shares too uniform, retrying",
				"prefecture", pref.Name, "attempt", attempt)
			continue
		}

		return g.mergeAndFill(districts, pref)
	}

	logger.Warn("all district generation attempts failed, using roster fallback",
		"prefecture", pref.Name)
	return FallbackDistricts(g.roster, pref)
}

// generateDistrictsInBatches generates district predictions in fixed-size
// batches. Batch results are merged by district number, first writer wins,
// and any district missing from every batch is filled from the fallback.
func (g *Generator) generateDistrictsInBatches(ctx context.Context, newsText string, pref *refdata.Prefecture) []core.DistrictPrediction {
	byNumber := make(map[int]core.DistrictPrediction)

	for start := 1; start <= pref.Districts; start += batchSize {
		end := start + batchSize - 1
		if end > pref.Districts {
			end = pref.Districts
		}
		numbers := make([]int, 0, end-start+1)
		for n := start; n <= end; n++ {
			numbers = append(numbers, n)
		}

		rosterText := formatDistrictRoster(g.roster, pref, numbers)
		prompt := buildBatchPrompt(newsText, rosterText, pref, numbers)

		raw, err := g.llm.GenerateText(ctx, prompt, defaultTemperature)
		if err != nil {
			logger.Warn("batch generation failed",
				"prefecture", pref.Name, "from", start, "to", end, "error", err.Error())
			continue
		}

		wireDistricts, err := decodeDistricts(raw)
		if err != nil {
			logger.Warn("batch output unparseable",
				"prefecture", pref.Name, "from", start, "to", end, "error", err.Error())
			continue
		}

		for _, wd := range wireDistricts {
			num := wd.DistrictNumber
			if num < 1 || num > pref.Districts {
				continue
			}
			if _, exists := byNumber[num]; exists {
				continue
			}
			byNumber[num] = districtFromWire(wd)
		}
		logger.Info("batch merged", "prefecture", pref.Name,
			"have", len(byNumber), "want", pref.Districts)
	}

	districts := make([]core.DistrictPrediction, 0, len(byNumber))
	for _, d := range byNumber {
		districts = append(districts, d)
	}
	return g.mergeAndFill(districts, pref)
}

// mergeAndFill deduplicates districts by number (first writer wins), tops
// up each district's candidate list from the roster, normalizes district
// names, and fills any missing district from the deterministic fallback.
// The result covers district numbers 1..N exactly once, sorted.
func (g *Generator) mergeAndFill(districts []core.DistrictPrediction, pref *refdata.Prefecture) []core.DistrictPrediction {
	byNumber := make(map[int]core.DistrictPrediction, pref.Districts)
	for _, d := range districts {
		if d.DistrictNumber < 1 || d.DistrictNumber > pref.Districts {
			continue
		}
		if _, exists := byNumber[d.DistrictNumber]; exists {
			continue
		}
		d.DistrictName = fmt.Sprintf("%s%d区", pref.Name, d.DistrictNumber)
		d.Candidates = g.mergeRosterCandidates(d.Candidates, pref, d.DistrictNumber)
		if w := districtWinner(d.Candidates); w != nil {
			d.LeadingCandidate = w.Name
		}
		byNumber[d.DistrictNumber] = d
	}

	for n := 1; n <= pref.Districts; n++ {
		if _, ok := byNumber[n]; !ok {
			byNumber[n] = FallbackDistrict(g.roster, pref, n)
		}
	}

	merged := make([]core.DistrictPrediction, 0, pref.Districts)
	for _, d := range byNumber {
		merged = append(merged, d)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].DistrictNumber < merged[j].DistrictNumber })
	return merged
}

// mergeRosterCandidates appends roster candidates the model omitted, with
// fallback-derived vote shares, so districts are never missing filed
// candidates.
func (g *Generator) mergeRosterCandidates(candidates []core.Candidate, pref *refdata.Prefecture, districtNumber int) []core.Candidate {
	rosterCandidates := g.roster.DistrictCandidates(pref.ID, districtNumber)
	if len(rosterCandidates) <= len(candidates) {
		return candidates
	}

	fallback := FallbackDistrict(g.roster, pref, districtNumber)
	existing := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		existing[c.Name] = struct{}{}
	}
	for _, fc := range fallback.Candidates {
		if _, ok := existing[fc.Name]; !ok {
			candidates = append(candidates, fc)
		}
	}
	return candidates
}

// generateCommentary produces the short free-text situation analysis for a
// prefecture. Commentary is best-effort: failures return an empty string.
func (g *Generator) generateCommentary(ctx context.Context, newsText string, districts []core.DistrictPrediction, pref *refdata.Prefecture) string {
	var summary strings.Builder
	for _, d := range districts {
		leader := districtWinner(d.Candidates)
		if leader == nil {
			continue
		}
		fmt.Fprintf(&summary, "%d区: %s(%s)優勢", d.DistrictNumber, leader.Name, leader.Party)

		var second *core.Candidate
		for i := range d.Candidates {
			c := &d.Candidates[i]
			if c.Name == leader.Name {
				continue
			}
			if second == nil || c.PredictedVoteShare > second.PredictedVoteShare {
				second = c
			}
		}
		if second != nil && leader.PredictedVoteShare-second.PredictedVoteShare <= 5 {
			fmt.Fprintf(&summary, "（%sと接戦）", second.Name)
		}
		summary.WriteString("\n")
	}

	prompt := buildCommentaryPrompt(newsText, summary.String(), pref)
	raw, err := g.llm.GenerateText(ctx, prompt, commentaryTemperature)
	if err != nil {
		logger.Warn("commentary generation failed", "prefecture", pref.Name, "error", err.Error())
		return ""
	}

	text := strings.TrimSpace(raw)
	text = strings.Trim(text, "「」『』\"'")
	text = strings.Join(strings.Fields(text), " ")
	if runes := []rune(text); len(runes) > 200 {
		text = string(runes[:197]) + "..."
	}
	return text
}

// fallbackEnvelope builds the roster-derived prediction used when
// generation fails entirely.
func (g *Generator) fallbackEnvelope(pref *refdata.Prefecture) *core.Prediction {
	pred := &core.Prediction{
		Timestamp:       g.now().Format(time.RFC3339),
		NationalSummary: BaselineNationalSummary(),
	}

	if pref != nil {
		p := FallbackPrefecture(g.roster, pref)
		pred.PrefecturePredictions = []core.PrefecturePrediction{p}
		pred.KeyBattlegrounds = []string{fmt.Sprintf("%s1区", pref.Name)}
		return pred
	}

	for _, id := range []int{13, 27, 23} {
		ref := refdata.PrefectureByID(id)
		if ref == nil {
			continue
		}
		pred.PrefecturePredictions = append(pred.PrefecturePredictions, FallbackPrefecture(g.roster, ref))
	}
	pred.KeyBattlegrounds = []string{"東京1区", "大阪5区", "愛知1区", "神奈川18区", "福岡2区"}
	return pred
}

// BaselineNationalSummary is the fixed national forecast used when the
// model did not supply one.
func BaselineNationalSummary() core.NationalSummary {
	return core.NationalSummary{
		TotalSeats: core.TotalSeats,
		Predictions: []core.PartyForecast{
			{Party: "自民党", SeatRange: [2]int{170, 200}, Change: -15},
			{Party: "中道改革連合", SeatRange: [2]int{85, 105}, Change: 12},
			{Party: "日本維新の会", SeatRange: [2]int{50, 65}, Change: 8},
			{Party: "公明党", SeatRange: [2]int{25, 32}, Change: -2},
			{Party: "国民民主党", SeatRange: [2]int{15, 22}, Change: 4},
			{Party: "共産党", SeatRange: [2]int{8, 12}, Change: -1},
			{Party: "れいわ新選組", SeatRange: [2]int{5, 10}, Change: 3},
			{Party: "その他", SeatRange: [2]int{8, 15}, Change: 0},
		},
	}
}

// nationalSummaryFromWire converts the decoded national summary, falling
// back to the baseline when the model omitted it.
func nationalSummaryFromWire(wire *wirePrediction) core.NationalSummary {
	if len(wire.NationalSummary.Predictions) == 0 {
		return BaselineNationalSummary()
	}
	summary := core.NationalSummary{TotalSeats: core.TotalSeats}
	for _, f := range wire.NationalSummary.Predictions {
		summary.Predictions = append(summary.Predictions, core.PartyForecast{
			Party:     f.Party,
			SeatRange: f.SeatRange,
			Change:    f.Change,
		})
	}
	return summary
}

// prefecturePredictionFromWire converts one decoded prefecture entry,
// normalizing district vote shares and rounding seat counts.
func prefecturePredictionFromWire(wp wirePrefecture) core.PrefecturePrediction {
	p := core.PrefecturePrediction{
		PrefectureID:   wp.PrefectureID,
		PrefectureName: wp.PrefectureName,
		LeadingParty:   wp.LeadingParty,
		Confidence:     parseConfidence(wp.Confidence),
		Commentary:     wp.Commentary,
	}
	for _, s := range wp.SeatPrediction {
		p.SeatPrediction = append(p.SeatPrediction, core.PartySeats{
			Party: s.Party,
			Seats: int(s.Seats + 0.5),
		})
	}
	for _, wd := range wp.Districts {
		p.Districts = append(p.Districts, districtFromWire(wd))
	}
	return p
}

// prefName labels a scope for logging.
func prefName(pref *refdata.Prefecture) string {
	if pref == nil {
		return "全国"
	}
	return pref.Name
}
