package pvp

import (
	"strings"
	"time"
	"survival-tracker/internal/config"
	"survival-tracker/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// nonPlayerSources is the denylist of known non-player damage source names
// and prefixes. Anything not listed is judged to be a player, so an unknown
// mob name will be misattributed as PvP; the upstream data gives nothing
// better to classify on, and this preserves that known accuracy limit.
var nonPlayerSources = []string{
	"Decay",
	"Wildlife",
	"a Wolf",
	"a Bear",
	"a Boar",
	"a Fox",
	"a Snake",
	"Turret",
	"Fall",
	"Hunger",
	"Thirst",
	"Cold",
	"Drowning",
	"Fire",
}

// damageRecord tracks the most recent plausible-player damage against one
// victim. Same-attacker hits accumulate; a different attacker replaces the
// record outright (last hit wins).
type damageRecord struct {
	attacker string
	at       time.Time
	damage   float64
}

// Correlator joins damage events to later death events within a time
// window, attributing kills to the last distinct attacker. Log timestamps
// are minute-precision, which makes recency a more stable signal than
// damage totals.
type Correlator struct {
	window  time.Duration
	tracked map[string]*damageRecord // keyed by lowercased victim name
	logger  zerolog.Logger
}

func NewCorrelator(cfg *config.Config, logger zerolog.Logger) *Correlator {
	return &Correlator{
		window:  cfg.AttributionWindow,
		tracked: make(map[string]*damageRecord),
		logger:  logger.With().Str("component", "pvp-correlator").Logger(),
	}
}

// ObserveDamage records damage judged to come from a player. Non-player
// sources are ignored.
func (c *Correlator) ObserveDamage(ev domain.DamageTaken) {
	if !SourceIsPlayer(ev.Source) {
		return
	}

	key := strings.ToLower(ev.Victim)
	rec, ok := c.tracked[key]
	if ok && strings.EqualFold(rec.attacker, ev.Source) {
		rec.damage += ev.Amount
		rec.at = ev.TS
		return
	}
	c.tracked[key] = &damageRecord{attacker: ev.Source, at: ev.TS, damage: ev.Amount}
}

// ObserveDeath attributes the death to a tracked attacker when the last
// recorded damage is recent enough. When it is not, the death is non-PvP
// and any stale record is dropped.
func (c *Correlator) ObserveDeath(ev domain.Death) (domain.PvpKillRecord, bool) {
	key := strings.ToLower(ev.Player)
	rec, ok := c.tracked[key]
	if !ok {
		return domain.PvpKillRecord{}, false
	}

	delete(c.tracked, key)

	age := ev.TS.Sub(rec.at)
	if age < 0 || age > c.window {
		c.logger.Debug().
			Str("victim", ev.Player).
			Str("attacker", rec.attacker).
			Dur("age", age).
			Msg("tracked damage outside attribution window, death is non-pvp")
		return domain.PvpKillRecord{}, false
	}

	kill := domain.PvpKillRecord{
		ID:        gonanoid.Must(),
		Killer:    rec.attacker,
		Victim:    ev.Player,
		Damage:    rec.damage,
		Timestamp: ev.TS,
	}
	c.logger.Info().
		Str("killer", kill.Killer).
		Str("victim", kill.Victim).
		Float64("damage", kill.Damage).
		Msg("pvp kill attributed")
	return kill, true
}

// Sweep drops tracked records older than twice the attribution window, so
// victims who never die do not pin memory. Runs once per poll cycle.
func (c *Correlator) Sweep(now time.Time) int {
	var removed int
	for key, rec := range c.tracked {
		if now.Sub(rec.at) > 2*c.window {
			delete(c.tracked, key)
			removed++
		}
	}
	return removed
}

// TrackedCount reports how many victims currently have live damage records.
func (c *Correlator) TrackedCount() int {
	return len(c.tracked)
}

// SourceIsPlayer applies the non-player denylist heuristic.
func SourceIsPlayer(source string) bool {
	for _, deny := range nonPlayerSources {
		if strings.EqualFold(source, deny) || hasFoldPrefix(source, deny) {
			return false
		}
	}
	return true
}

func hasFoldPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
