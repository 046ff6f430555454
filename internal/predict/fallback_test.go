package predict

import (
	"reflect"
	"testing"

	"senkyo/internal/core"
	"senkyo/internal/refdata"
)

func mustRoster(t *testing.T) *refdata.Roster {
	t.Helper()
	roster, err := refdata.LoadRoster()
	if err != nil {
		t.Fatalf("LoadRoster failed: %v", err)
	}
	return roster
}

func TestFallbackDistrict_Deterministic(t *testing.T) {
	roster := mustRoster(t)
	tokyo := refdata.PrefectureByID(13)

	first := FallbackDistrict(roster, tokyo, 1)
	second := FallbackDistrict(roster, tokyo, 1)
	if !reflect.DeepEqual(first, second) {
		t.Error("fallback must be deterministic for identical inputs")
	}
}

func TestFallbackDistrict_IncumbentLeads(t *testing.T) {
	roster := mustRoster(t)
	tokyo := refdata.PrefectureByID(13)

	// 東京1区: 山田太郎 is the incumbent from a major party and must
	// outscore every newcomer.
	d := FallbackDistrict(roster, tokyo, 1)
	if d.LeadingCandidate != "山田太郎" {
		t.Errorf("leading candidate = %q, want 山田太郎", d.LeadingCandidate)
	}
	if d.Confidence != core.ConfidenceMedium {
		t.Errorf("confidence = %q, want medium", d.Confidence)
	}

	var incumbent, newcomerMinor int
	for _, c := range d.Candidates {
		switch c.Name {
		case "山田太郎":
			incumbent = c.PredictedVoteShare
			if !c.IsIncumbent {
				t.Error("山田太郎 should be marked incumbent")
			}
		case "森川修": // newcomer, non-major party
			newcomerMinor = c.PredictedVoteShare
		}
	}
	if incumbent <= newcomerMinor {
		t.Errorf("incumbent share %d should exceed minor-party newcomer share %d",
			incumbent, newcomerMinor)
	}
}

func TestFallbackDistrict_NoRosterData(t *testing.T) {
	roster := mustRoster(t)
	tokyo := refdata.PrefectureByID(13)

	// District 30 has no filed candidates in the roster.
	d := FallbackDistrict(roster, tokyo, 30)
	if len(d.Candidates) != 1 {
		t.Fatalf("got %d candidates, want the single unknown placeholder", len(d.Candidates))
	}
	if d.Candidates[0].Name != "候補者未詳" || d.Candidates[0].PredictedVoteShare != 100 {
		t.Errorf("unexpected placeholder candidate: %+v", d.Candidates[0])
	}
	if d.Confidence != core.ConfidenceLow {
		t.Errorf("confidence = %q, want low", d.Confidence)
	}
	if d.DistrictName != "東京都30区" {
		t.Errorf("district name = %q", d.DistrictName)
	}
}

func TestFallbackPrefecture_SeatInvariant(t *testing.T) {
	roster := mustRoster(t)

	for _, id := range []int{1, 13, 18, 27} {
		pref := refdata.PrefectureByID(id)
		p := FallbackPrefecture(roster, pref)

		if len(p.Districts) != pref.Districts {
			t.Errorf("%s: got %d districts, want %d", pref.Name, len(p.Districts), pref.Districts)
		}
		if got := p.SeatTotal(); got != pref.Districts {
			t.Errorf("%s: seat total = %d, want %d", pref.Name, got, pref.Districts)
		}
		if p.Confidence != core.ConfidenceLow {
			t.Errorf("%s: confidence = %q, want low", pref.Name, p.Confidence)
		}
		if p.LeadingParty == "" {
			t.Errorf("%s: leading party must be derived", pref.Name)
		}
	}
}
