package domain

import "time"

// Kind identifies the event type inside the Event union.
type Kind string

const (
	KindDeath       Kind = "death"
	KindDamageTaken Kind = "damage_taken"
	KindBuild       Kind = "build"
	KindLoot        Kind = "loot"
	KindRaidHit     Kind = "raid_hit"
	KindAdminAccess Kind = "admin_access"
	KindCheatFlag   Kind = "cheat_flag"
	KindConnect     Kind = "connect"
	KindDisconnect  Kind = "disconnect"
)

// Event is a typed log line. Timestamps are already converted to UTC by the
// parser; the raw log embeds local time in an unstated zone.
type Event interface {
	EventKind() Kind
	OccurredAt() time.Time
}

// Death is a character death. The log line only carries the display name;
// the 17-digit platform id is not present on death lines.
type Death struct {
	Player string
	TS     time.Time
}

// DamageTaken is damage dealt to a player by any source, player or not.
type DamageTaken struct {
	Victim string
	Source string
	Amount float64
	TS     time.Time
}

// Build is a structure or item placement.
type Build struct {
	Player   string
	PlayerID string
	Item     string
	TS       time.Time
}

// Loot is a container being opened by someone other than its owner.
type Loot struct {
	Looter        string
	LooterID      string
	OwnerID       string
	ContainerKind string
	TS            time.Time
}

// RaidHit is damage to an owned structure. Destroyed marks full destruction;
// for unowned structures only destruction is ever reported.
type RaidHit struct {
	Attacker      string
	AttackerID    string
	OwnerID       string
	StructureKind string
	Destroyed     bool
	TS            time.Time
}

// AdminAccess records a player opening the admin command interface.
type AdminAccess struct {
	Player string
	TS     time.Time
}

// CheatFlag is an anti-cheat detection report.
type CheatFlag struct {
	Player   string
	PlayerID string
	Reason   string
	TS       time.Time
}

// Connect is a player joining the server.
type Connect struct {
	Player   string
	PlayerID string
	TS       time.Time
}

// Disconnect is a player leaving the server.
type Disconnect struct {
	Player   string
	PlayerID string
	TS       time.Time
}

func (e Death) EventKind() Kind       { return KindDeath }
func (e DamageTaken) EventKind() Kind { return KindDamageTaken }
func (e Build) EventKind() Kind       { return KindBuild }
func (e Loot) EventKind() Kind        { return KindLoot }
func (e RaidHit) EventKind() Kind     { return KindRaidHit }
func (e AdminAccess) EventKind() Kind { return KindAdminAccess }
func (e CheatFlag) EventKind() Kind   { return KindCheatFlag }
func (e Connect) EventKind() Kind     { return KindConnect }
func (e Disconnect) EventKind() Kind  { return KindDisconnect }

func (e Death) OccurredAt() time.Time       { return e.TS }
func (e DamageTaken) OccurredAt() time.Time { return e.TS }
func (e Build) OccurredAt() time.Time       { return e.TS }
func (e Loot) OccurredAt() time.Time        { return e.TS }
func (e RaidHit) OccurredAt() time.Time     { return e.TS }
func (e AdminAccess) OccurredAt() time.Time { return e.TS }
func (e CheatFlag) OccurredAt() time.Time   { return e.TS }
func (e Connect) OccurredAt() time.Time     { return e.TS }
func (e Disconnect) OccurredAt() time.Time  { return e.TS }
