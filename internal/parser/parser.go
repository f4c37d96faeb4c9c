package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"survival-tracker/internal/constants"
	"survival-tracker/internal/domain"
)

// Non-player damage sources written by the game server itself. Decay is the
// slow structure rot; the sentinel name stands in for every environment NPC.
const (
	DecaySource = "Decay"
	NPCSentinel = "Wildlife"
)

// timestampPattern matches the log's embedded "(D/M/Y H:M[:S])" prefix.
// Separators vary between /, - and . across server versions, the year
// occasionally carries a thousands comma, and seconds are optional.
const timestampPattern = `\((\d{1,2})[/\-.](\d{1,2})[/\-.](\d{1,2}(?:,\d{3})?|\d{2,4})\s+(\d{1,2}):(\d{2})(?::\d{2})?\)`

// idPattern captures the fixed-width platform id embedded in brackets on
// most non-death lines.
var idPattern = fmt.Sprintf(`(\d{%d})`, constants.PlatformIDLength)

// Parser turns raw log lines into typed events. The source timezone is an
// explicit, required input: the log never states its own zone.
type Parser struct {
	loc *time.Location
}

func New(loc *time.Location) *Parser {
	return &Parser{loc: loc}
}

type grammar struct {
	kind  domain.Kind
	re    *regexp.Regexp
	build func(p *Parser, m []string) (domain.Event, bool)
}

// grammars is evaluated in order, first match wins. The order is a contract:
// several patterns deliberately overlap (owned vs unowned structure damage)
// and rely on earlier entries claiming their exclusive prefixes.
var grammars = []grammar{
	{
		kind: domain.KindCheatFlag,
		re:   regexp.MustCompile(`^` + timestampPattern + `\s+Anti-cheat flagged (.+?) \[` + idPattern + `\]: (.+)$`),
		build: func(p *Parser, m []string) (domain.Event, bool) {
			ts, ok := p.parseTimestamp(m)
			if !ok {
				return nil, false
			}
			return domain.CheatFlag{Player: m[6], PlayerID: m[7], Reason: m[8], TS: ts}, true
		},
	},
	{
		kind: domain.KindAdminAccess,
		re:   regexp.MustCompile(`^` + timestampPattern + `\s+(.+?) accessed admin commands$`),
		build: func(p *Parser, m []string) (domain.Event, bool) {
			ts, ok := p.parseTimestamp(m)
			if !ok {
				return nil, false
			}
			return domain.AdminAccess{Player: m[6], TS: ts}, true
		},
	},
	{
		kind: domain.KindConnect,
		re:   regexp.MustCompile(`^` + timestampPattern + `\s+(.+?) \[` + idPattern + `\] joined the server$`),
		build: func(p *Parser, m []string) (domain.Event, bool) {
			ts, ok := p.parseTimestamp(m)
			if !ok {
				return nil, false
			}
			return domain.Connect{Player: m[6], PlayerID: m[7], TS: ts}, true
		},
	},
	{
		kind: domain.KindDisconnect,
		re:   regexp.MustCompile(`^` + timestampPattern + `\s+(.+?) \[` + idPattern + `\] left the server$`),
		build: func(p *Parser, m []string) (domain.Event, bool) {
			ts, ok := p.parseTimestamp(m)
			if !ok {
				return nil, false
			}
			return domain.Disconnect{Player: m[6], PlayerID: m[7], TS: ts}, true
		},
	},
	{
		kind: domain.KindDeath,
		re:   regexp.MustCompile(`^` + timestampPattern + `\s+(.+?) died!$`),
		build: func(p *Parser, m []string) (domain.Event, bool) {
			ts, ok := p.parseTimestamp(m)
			if !ok {
				return nil, false
			}
			return domain.Death{Player: m[6], TS: ts}, true
		},
	},
	{
		kind: domain.KindDamageTaken,
		re:   regexp.MustCompile(`^` + timestampPattern + `\s+(.+?) took ([0-9.]+) damage from (.+)$`),
		build: func(p *Parser, m []string) (domain.Event, bool) {
			ts, ok := p.parseTimestamp(m)
			if !ok {
				return nil, false
			}
			source := strings.TrimSpace(m[8])
			// Decay and environment NPC damage is never PvP-eligible.
			if strings.EqualFold(source, DecaySource) || strings.EqualFold(source, NPCSentinel) {
				return nil, false
			}
			amount, err := strconv.ParseFloat(m[7], 64)
			if err != nil {
				return nil, false
			}
			return domain.DamageTaken{Victim: m[6], Source: source, Amount: amount, TS: ts}, true
		},
	},
	{
		kind: domain.KindLoot,
		re:   regexp.MustCompile(`^` + timestampPattern + `\s+(.+?) \[` + idPattern + `\] looted a (.+?) owned by \[` + idPattern + `\]$`),
		build: func(p *Parser, m []string) (domain.Event, bool) {
			ts, ok := p.parseTimestamp(m)
			if !ok {
				return nil, false
			}
			return domain.Loot{Looter: m[6], LooterID: m[7], ContainerKind: m[8], OwnerID: m[9], TS: ts}, true
		},
	},
	{
		// Unowned structures: only full destruction is ever reported, and
		// never for decay or environment NPC attackers. Partial damage to
		// unowned structures is noise.
		kind: domain.KindRaidHit,
		re:   regexp.MustCompile(`^` + timestampPattern + `\s+(.+?)(?: \[` + idPattern + `\])? (damaged|destroyed) an unowned (.+)$`),
		build: func(p *Parser, m []string) (domain.Event, bool) {
			ts, ok := p.parseTimestamp(m)
			if !ok {
				return nil, false
			}
			attacker := m[6]
			if m[8] != "destroyed" {
				return nil, false
			}
			if strings.EqualFold(attacker, DecaySource) || strings.EqualFold(attacker, NPCSentinel) {
				return nil, false
			}
			return domain.RaidHit{Attacker: attacker, AttackerID: m[7], StructureKind: m[9], Destroyed: true, TS: ts}, true
		},
	},
	{
		kind: domain.KindRaidHit,
		re:   regexp.MustCompile(`^` + timestampPattern + `\s+(.+?) \[` + idPattern + `\] (damaged|destroyed) a (.+?) owned by \[` + idPattern + `\]$`),
		build: func(p *Parser, m []string) (domain.Event, bool) {
			ts, ok := p.parseTimestamp(m)
			if !ok {
				return nil, false
			}
			// Hitting your own structure is not a raid.
			if m[7] == m[10] {
				return nil, false
			}
			return domain.RaidHit{
				Attacker:      m[6],
				AttackerID:    m[7],
				OwnerID:       m[10],
				StructureKind: m[9],
				Destroyed:     m[8] == "destroyed",
				TS:            ts,
			}, true
		},
	},
	{
		kind: domain.KindBuild,
		re:   regexp.MustCompile(`^` + timestampPattern + `\s+(.+?) \[` + idPattern + `\] built a (.+)$`),
		build: func(p *Parser, m []string) (domain.Event, bool) {
			ts, ok := p.parseTimestamp(m)
			if !ok {
				return nil, false
			}
			return domain.Build{Player: m[6], PlayerID: m[7], Item: m[8], TS: ts}, true
		},
	},
}

// ParseLine matches raw against the grammar table and returns the typed
// event. Unmatched lines are dropped without error; the upstream log
// interleaves many shapes this system does not care about.
func (p *Parser) ParseLine(raw string) (domain.Event, bool) {
	line := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
	if line == "" {
		return nil, false
	}

	for _, g := range grammars {
		if m := g.re.FindStringSubmatch(line); m != nil {
			return g.build(p, m)
		}
	}
	return nil, false
}

// GrammarOrder exposes the fixed evaluation order for the priority-order
// contract test.
func GrammarOrder() []domain.Kind {
	kinds := make([]domain.Kind, len(grammars))
	for i, g := range grammars {
		kinds[i] = g.kind
	}
	return kinds
}

// parseTimestamp converts the captured D/M/Y H:M groups into UTC using the
// configured source timezone. Seconds, when present, are ignored.
func (p *Parser) parseTimestamp(m []string) (time.Time, bool) {
	day, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, false
	}
	month, err := strconv.Atoi(m[2])
	if err != nil {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(strings.ReplaceAll(m[3], ",", ""))
	if err != nil {
		return time.Time{}, false
	}
	if year < 100 {
		year += 2000
	}
	hour, err := strconv.Atoi(m[4])
	if err != nil {
		return time.Time{}, false
	}
	minute, err := strconv.Atoi(m[5])
	if err != nil {
		return time.Time{}, false
	}

	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 {
		return time.Time{}, false
	}

	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, p.loc).UTC(), true
}
