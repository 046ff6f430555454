package refdata

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
)

// Candidate status values as they appear in the roster data.
const (
	StatusIncumbent = "前職" // Held the seat in the outgoing house
	StatusFormer    = "元職" // Held the seat before the outgoing house
	StatusNewcomer  = "新人"
)

// RosterCandidate is one candidate as recorded in the roster data.
type RosterCandidate struct {
	Name   string `json:"name"`
	Party  string `json:"party"`
	Status string `json:"status"`
}

// RosterDistrict holds the candidates filed in one district.
type RosterDistrict struct {
	Number     int               `json:"number"`
	Candidates []RosterCandidate `json:"candidates"`
}

// RosterPrefecture holds the filed districts of one prefecture. The roster
// may be partial; districts without data are simply absent.
type RosterPrefecture struct {
	ID        int              `json:"id"`
	Name      string           `json:"name"`
	Districts []RosterDistrict `json:"districts"`
}

// Election identifies the election the roster belongs to.
type Election struct {
	Name string `json:"name"`
	Date string `json:"date"`
}

// Roster is the full candidate roster reference data.
type Roster struct {
	Election    Election           `json:"election"`
	Prefectures []RosterPrefecture `json:"prefectures"`
}

//go:embed candidates.json
var candidatesJSON []byte

var (
	rosterOnce sync.Once
	roster     *Roster
	rosterErr  error
)

// LoadRoster parses the embedded candidate roster. The roster is parsed
// once and shared; it is read-only after load.
func LoadRoster() (*Roster, error) {
	rosterOnce.Do(func() {
		r := &Roster{}
		if err := json.Unmarshal(candidatesJSON, r); err != nil {
			rosterErr = fmt.Errorf("failed to parse embedded candidate roster: %w", err)
			return
		}
		roster = r
	})
	return roster, rosterErr
}

// Prefecture returns the roster entry for a prefecture, or nil when the
// roster has no data for it.
func (r *Roster) Prefecture(prefectureID int) *RosterPrefecture {
	for i := range r.Prefectures {
		if r.Prefectures[i].ID == prefectureID {
			return &r.Prefectures[i]
		}
	}
	return nil
}

// DistrictCandidates returns the candidates filed in one district. The
// returned slice is empty when the roster has no data for the district.
func (r *Roster) DistrictCandidates(prefectureID, districtNumber int) []RosterCandidate {
	pref := r.Prefecture(prefectureID)
	if pref == nil {
		return nil
	}
	for _, d := range pref.Districts {
		if d.Number == districtNumber {
			return d.Candidates
		}
	}
	return nil
}
