package stats

import (
	"fmt"
	"sort"
	"strings"
	"survival-tracker/internal/domain"
	"survival-tracker/internal/pvp"
	"survival-tracker/internal/sink"
	"survival-tracker/internal/store"

	"github.com/rs/zerolog"
)

// Activity field names used as keys in the per-account diff snapshots.
const (
	scalarFishCaught  = "fishCaught"
	scalarTimesBitten = "timesBitten"
	arrayRecipes      = "recipes"
	arraySkills       = "skills"
)

// Reconciler merges periodically-resampled save snapshots into durable
// all-time and current-life statistics. Two upstream accounting regimes
// coexist: legacy saves report per-life counters that reset on death, and
// are banked into a cumulative total when a reset is detected; extended
// saves report true lifetime counters directly. The migration from legacy
// to extended is one-way and clears the banked total so nothing is counted
// twice.
type Reconciler struct {
	accounts *store.AccountStore
	ledger   *pvp.DeathLedger
	weekly   *store.WeeklyStore
	sink     sink.Sink
	logger   zerolog.Logger
}

func NewReconciler(accounts *store.AccountStore, ledger *pvp.DeathLedger, weekly *store.WeeklyStore, snk sink.Sink, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		accounts: accounts,
		ledger:   ledger,
		weekly:   weekly,
		sink:     snk,
		logger:   logger.With().Str("component", "reconciler").Logger(),
	}
}

// Apply folds one snapshot poll into the kill accounts and publishes the
// derived feeds.
func (r *Reconciler) Apply(snaps map[string]domain.PlayerSnapshot) {
	for id, snap := range snaps {
		r.applyPlayer(id, snap)
	}
}

func (r *Reconciler) applyPlayer(id string, snap domain.PlayerSnapshot) {
	acct := r.accounts.Get(id)
	if snap.Name != "" {
		acct.Name = snap.Name
	}

	// The very first snapshot for an account seeds the diff baselines
	// without reporting; its values are history, not news.
	firstPoll := acct.Scalars == nil
	prevAllTime := allTimeOf(acct)
	migrated := false

	if snap.HasExtendedAccounting() {
		if !acct.Extended {
			// One-way migration. The banked legacy total would double
			// count against the directly-reported lifetime values.
			acct.Extended = true
			acct.Banked = domain.Counters{}
			migrated = true
			r.logger.Info().Str("player_id", id).Msg("account migrated to extended accounting")
		}

		lifetime := *snap.Lifetime

		deaths := r.ledger.Deaths(snap.Name)
		if deaths < acct.LastKnownDeaths {
			// A lost or reset ledger file reads lower than the stored
			// high-water mark; resync it or later deaths go undetected.
			acct.LastKnownDeaths = deaths
		}
		if deaths > acct.LastKnownDeaths {
			// The new life may already have accrued kills by the time
			// this poll runs; subtracting the session counters reported
			// in the same poll isolates the pre-death baseline.
			cp := lifetime.Minus(snap.Session)
			acct.DeathCheckpoint = &cp
			acct.LastKnownDeaths = deaths
			r.logger.Info().
				Str("player_id", id).
				Int("deaths", deaths).
				Interface("checkpoint", cp).
				Msg("death checkpoint set")
		}

		acct.Lifetime = &lifetime
		acct.LastSession = snap.Session
	} else {
		if snap.Session.PlayerKills < acct.LastSession.PlayerKills {
			// Per-life counters shrank: the character died. Bank the
			// previous snapshot before the values are overwritten.
			acct.Banked = acct.Banked.Plus(acct.LastSession)
			r.logger.Info().
				Str("player_id", id).
				Interface("banked", acct.Banked).
				Msg("legacy counters banked after death reset")
		}
		acct.LastSession = snap.Session
	}

	newAllTime := allTimeOf(acct)
	if !migrated && !firstPoll {
		r.publishKillDeltas(acct.Name, prevAllTime, newAllTime)
	}

	if _, ok := r.weekly.Baseline(id); !ok {
		r.weekly.SetBaseline(id, newAllTime)
	}

	r.diffActivity(acct, snap, firstPoll)
	r.accounts.MarkDirty()
}

// AllTime returns the durable lifetime statistics for playerID.
func (r *Reconciler) AllTime(playerID string) domain.Counters {
	return allTimeOf(r.accounts.Get(playerID))
}

// CurrentLife returns the statistics of the life the player is currently
// on. A player who has never died since tracking began reads the same as
// all-time.
func (r *Reconciler) CurrentLife(playerID string) domain.Counters {
	acct := r.accounts.Get(playerID)

	if !acct.Extended {
		// Legacy session counters already are current-life.
		return acct.LastSession
	}
	if acct.DeathCheckpoint == nil {
		return allTimeOf(acct)
	}
	if acct.Lifetime == nil {
		return domain.Counters{}
	}
	return acct.Lifetime.Minus(*acct.DeathCheckpoint)
}

// WeeklyDelta returns how much playerID's all-time counters grew since the
// start of the current week.
func (r *Reconciler) WeeklyDelta(playerID string) domain.Counters {
	baseline, ok := r.weekly.Baseline(playerID)
	if !ok {
		return domain.Counters{}
	}
	return allTimeOf(r.accounts.Get(playerID)).Minus(baseline)
}

func allTimeOf(acct *domain.PlayerKillAccount) domain.Counters {
	if acct.Extended && acct.Lifetime != nil {
		return *acct.Lifetime
	}
	return acct.Banked.Plus(acct.LastSession)
}

func (r *Reconciler) publishKillDeltas(name string, prev, cur domain.Counters) {
	if name == "" {
		return
	}
	if d := cur.PlayerKills - prev.PlayerKills; d > 0 {
		r.sink.Post(sink.GroupKills, fmt.Sprintf("%s killed %d player(s), %d all-time", name, d, cur.PlayerKills))
	}
	if d := cur.AnimalKills - prev.AnimalKills; d > 0 {
		r.sink.Post(sink.GroupActivity, fmt.Sprintf("%s hunted %d animal(s)", name, d))
	}
}

// diffActivity reports scalar deltas, newly-present array elements and
// challenge completions since the previous poll, then stores the new
// snapshots on the account.
func (r *Reconciler) diffActivity(acct *domain.PlayerKillAccount, snap domain.PlayerSnapshot, firstPoll bool) {
	if acct.Scalars == nil {
		acct.Scalars = make(map[string]int)
	}
	if acct.Arrays == nil {
		acct.Arrays = make(map[string][]string)
	}
	if acct.Challenges == nil {
		acct.Challenges = make(map[string]domain.ChallengeProgress)
	}

	r.diffScalar(acct, scalarFishCaught, snap.FishCaught, "%s caught %d fish", firstPoll)
	r.diffScalar(acct, scalarTimesBitten, snap.TimesBitten, "%s was bitten %d time(s)", firstPoll)

	r.diffArray(acct, arrayRecipes, snap.Recipes, "%s learned recipe(s): %s", firstPoll)
	r.diffArray(acct, arraySkills, snap.Skills, "%s unlocked skill(s): %s", firstPoll)

	for name, progress := range snap.Challenges {
		prev := acct.Challenges[name]
		// Only the transition across the target is news, not every tick.
		if !firstPoll && progress.Completed() && !prev.Completed() {
			r.sink.Post(sink.GroupActivity, fmt.Sprintf("%s completed challenge %q", acct.Name, name))
		}
		acct.Challenges[name] = progress
	}
}

func (r *Reconciler) diffScalar(acct *domain.PlayerKillAccount, field string, value int, format string, firstPoll bool) {
	if d := value - acct.Scalars[field]; d > 0 && !firstPoll && acct.Name != "" {
		r.sink.Post(sink.GroupActivity, fmt.Sprintf(format, acct.Name, d))
	}
	acct.Scalars[field] = value
}

func (r *Reconciler) diffArray(acct *domain.PlayerKillAccount, field string, values []string, format string, firstPoll bool) {
	prev := make(map[string]bool, len(acct.Arrays[field]))
	for _, v := range acct.Arrays[field] {
		prev[v] = true
	}

	var added []string
	for _, v := range values {
		if !prev[v] {
			added = append(added, v)
		}
	}
	if len(added) > 0 && !firstPoll && acct.Name != "" {
		sort.Strings(added)
		r.sink.Post(sink.GroupActivity, fmt.Sprintf(format, acct.Name, strings.Join(added, ", ")))
	}
	if values != nil {
		acct.Arrays[field] = values
	}
}
