package domain

import (
	"time"
)

// Counters is the fixed set of per-player kill and survival statistics the
// game server reports. Session counters reset when the character dies;
// lifetime counters (extended accounting) never do.
type Counters struct {
	PlayerKills int `json:"playerKills"`
	AnimalKills int `json:"animalKills"`
	DaysAlive   int `json:"daysAlive"`
}

// Plus returns the field-wise sum of c and o.
func (c Counters) Plus(o Counters) Counters {
	return Counters{
		PlayerKills: c.PlayerKills + o.PlayerKills,
		AnimalKills: c.AnimalKills + o.AnimalKills,
		DaysAlive:   c.DaysAlive + o.DaysAlive,
	}
}

// Minus returns the field-wise difference of c and o, clamped at zero.
func (c Counters) Minus(o Counters) Counters {
	return Counters{
		PlayerKills: clampZero(c.PlayerKills - o.PlayerKills),
		AnimalKills: clampZero(c.AnimalKills - o.AnimalKills),
		DaysAlive:   clampZero(c.DaysAlive - o.DaysAlive),
	}
}

// IsZero reports whether every counter is zero.
func (c Counters) IsZero() bool {
	return c == Counters{}
}

func clampZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// ChallengeProgress is one challenge's current value against its completion target.
type ChallengeProgress struct {
	Current int `json:"current"`
	Target  int `json:"target"`
}

// Completed reports whether progress has reached the target.
func (p ChallengeProgress) Completed() bool {
	return p.Target > 0 && p.Current >= p.Target
}

// PlayerSnapshot is one player's record from a polled game save. Session
// holds the current-life counters; Lifetime is only set when the save
// exposes extended (never-resetting) accounting.
type PlayerSnapshot struct {
	PlayerID    string                       `json:"playerId"`
	Name        string                       `json:"name"`
	Session     Counters                     `json:"session"`
	Lifetime    *Counters                    `json:"lifetime,omitempty"`
	FishCaught  int                          `json:"fishCaught"`
	TimesBitten int                          `json:"timesBitten"`
	Recipes     []string                     `json:"recipes,omitempty"`
	Skills      []string                     `json:"skills,omitempty"`
	Challenges  map[string]ChallengeProgress `json:"challenges,omitempty"`
}

// HasExtendedAccounting reports whether the save exposes lifetime counters
// directly, as opposed to per-life counters that reset on death.
func (s PlayerSnapshot) HasExtendedAccounting() bool {
	return s.Lifetime != nil
}

// PlayerKillAccount is the durable, reconciled view of one player's
// statistics, persisted across process restarts and in-game deaths.
// Exactly one of the two accounting paths is active at a time: legacy
// banking (Extended=false) or extended accounting (Extended=true). The
// migration is one-way, legacy to extended.
type PlayerKillAccount struct {
	PlayerID        string                       `json:"playerId"`
	Name            string                       `json:"name,omitempty"`
	Banked          Counters                     `json:"banked"`
	LastSession     Counters                     `json:"lastSession"`
	Extended        bool                         `json:"extended"`
	Lifetime        *Counters                    `json:"lifetime,omitempty"`
	DeathCheckpoint *Counters                    `json:"deathCheckpoint,omitempty"`
	LastKnownDeaths int                          `json:"lastKnownDeaths"`
	Scalars         map[string]int               `json:"scalars,omitempty"`
	Arrays          map[string][]string          `json:"arrays,omitempty"`
	Challenges      map[string]ChallengeProgress `json:"challenges,omitempty"`
}

// PvpKillRecord is one attributed player-versus-player kill, kept in a
// capped, append-only ring.
type PvpKillRecord struct {
	ID        string    `json:"id"` // nanoid
	Killer    string    `json:"killer"`
	Victim    string    `json:"victim"`
	Damage    float64   `json:"damage"`
	Timestamp time.Time `json:"timestamp"`
}
