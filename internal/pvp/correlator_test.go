package pvp

import (
	"testing"
	"time"
	"survival-tracker/internal/config"
	"survival-tracker/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

func testCorrelator() *Correlator {
	cfg := &config.Config{AttributionWindow: 5 * time.Minute}
	return NewCorrelator(cfg, zerolog.Nop())
}

func damage(victim, source string, amount float64, at time.Time) domain.DamageTaken {
	return domain.DamageTaken{Victim: victim, Source: source, Amount: amount, TS: at}
}

func TestLastHitWins(t *testing.T) {
	c := testCorrelator()

	c.ObserveDamage(damage("Sven", "Astrid", 80, t0))
	c.ObserveDamage(damage("Sven", "Bjorn", 20, t0.Add(time.Minute)))

	kill, ok := c.ObserveDeath(domain.Death{Player: "Sven", TS: t0.Add(2 * time.Minute)})
	require.True(t, ok)
	assert.Equal(t, "Bjorn", kill.Killer, "the most recent distinct attacker gets the kill, not the heaviest hitter")
	assert.Equal(t, "Sven", kill.Victim)
	assert.Equal(t, 20.0, kill.Damage)
	assert.NotEmpty(t, kill.ID)
}

func TestSameAttackerAccumulates(t *testing.T) {
	c := testCorrelator()

	c.ObserveDamage(damage("Sven", "Astrid", 30, t0))
	c.ObserveDamage(damage("Sven", "astrid", 25, t0.Add(time.Minute)))

	kill, ok := c.ObserveDeath(domain.Death{Player: "SVEN", TS: t0.Add(2 * time.Minute)})
	require.True(t, ok)
	assert.Equal(t, 55.0, kill.Damage, "same-attacker repeats accumulate, case-insensitively")
}

func TestDeathOutsideWindowIsNotPvp(t *testing.T) {
	c := testCorrelator()

	c.ObserveDamage(damage("Sven", "Astrid", 50, t0))

	_, ok := c.ObserveDeath(domain.Death{Player: "Sven", TS: t0.Add(6 * time.Minute)})
	assert.False(t, ok)
	assert.Zero(t, c.TrackedCount(), "the stale record is dropped")
}

func TestDeathBeforeDamageIsNotPvp(t *testing.T) {
	c := testCorrelator()

	c.ObserveDamage(damage("Sven", "Astrid", 50, t0))

	// Poll-cycle ordering can surface a death stamped before the damage.
	_, ok := c.ObserveDeath(domain.Death{Player: "Sven", TS: t0.Add(-time.Minute)})
	assert.False(t, ok)
}

func TestDeathWithoutDamageIsNotPvp(t *testing.T) {
	c := testCorrelator()

	_, ok := c.ObserveDeath(domain.Death{Player: "Sven", TS: t0})
	assert.False(t, ok)
}

func TestNonPlayerSourcesIgnored(t *testing.T) {
	c := testCorrelator()

	for _, source := range []string{"a Wolf", "A BEAR", "Turret MK2", "Fall", "Drowning"} {
		c.ObserveDamage(damage("Sven", source, 100, t0))
	}
	assert.Zero(t, c.TrackedCount())

	_, ok := c.ObserveDeath(domain.Death{Player: "Sven", TS: t0.Add(time.Minute)})
	assert.False(t, ok)
}

func TestSweepDropsStaleRecords(t *testing.T) {
	c := testCorrelator()

	c.ObserveDamage(damage("Sven", "Astrid", 10, t0))
	c.ObserveDamage(damage("Erik", "Astrid", 10, t0.Add(9*time.Minute)))

	removed := c.Sweep(t0.Add(11 * time.Minute))
	assert.Equal(t, 1, removed, "records older than twice the window are swept")
	assert.Equal(t, 1, c.TrackedCount())
}

func TestConsumedRecordIsGone(t *testing.T) {
	c := testCorrelator()

	c.ObserveDamage(damage("Sven", "Astrid", 10, t0))

	_, ok := c.ObserveDeath(domain.Death{Player: "Sven", TS: t0.Add(time.Minute)})
	require.True(t, ok)

	// Dying again without new damage is a plain death.
	_, ok = c.ObserveDeath(domain.Death{Player: "Sven", TS: t0.Add(2 * time.Minute)})
	assert.False(t, ok)
}

func TestDeathLedger(t *testing.T) {
	l := NewDeathLedger(&config.Config{StateDir: t.TempDir()}, zerolog.Nop())

	l.Record("Sven")
	l.Record("SVEN")
	l.Record("Astrid")

	assert.Equal(t, 2, l.Deaths("sven"))
	assert.Equal(t, 1, l.Deaths("Astrid"))
	assert.Zero(t, l.Deaths("Bjorn"))
}

func TestDeathLedgerPersistsAcrossRestart(t *testing.T) {
	cfg := &config.Config{StateDir: t.TempDir()}

	l := NewDeathLedger(cfg, zerolog.Nop())
	l.Record("Sven")
	l.Record("Sven")
	require.NoError(t, l.Save())

	restored := NewDeathLedger(cfg, zerolog.Nop())
	assert.Equal(t, 2, restored.Deaths("sven"), "death counts must not rewind on restart")
}
