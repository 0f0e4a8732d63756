// Package model is the Model Builder (§4.4): it declares the decision
// variables, emits every constraint family, and composes the weighted
// objective for a single solve. Per the "sparse variable dictionaries"
// design note of §9, every variable table is a contiguous array indexed
// by (player index × gameweek index [× slot]) rather than a map keyed on
// tuples; Indexing is the side-table that maps those array positions back
// to player/gameweek ids for the extractor.
package model

import (
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/domain"
)

// BenchSlots is the fixed number of ordered bench positions (§3/§4.4).
const BenchSlots = 4

// FTStates enumerates the indicator states used for the piecewise FT-value
// lookup (§9): free-transfer counts range over 1..5.
var FTStates = []int{1, 2, 3, 4, 5}

// Indexing maps the contiguous array positions the Builder uses back to
// domain identifiers, and vice versa.
type Indexing struct {
	Players       []domain.Player
	PlayerIndex   map[int]int // player id -> index in Players
	Gameweeks     []int       // w0 .. w0+H-1, ascending
	GameweekIndex map[int]int // gameweek number -> index in Gameweeks

	NP int
	NW int
}

// NewIndexing builds the side-table for the filtered player set and the
// planning horizon's gameweeks.
func NewIndexing(players []domain.Player, gameweeks []int) *Indexing {
	idx := &Indexing{
		Players:       players,
		PlayerIndex:   make(map[int]int, len(players)),
		Gameweeks:     gameweeks,
		GameweekIndex: make(map[int]int, len(gameweeks)),
		NP:            len(players),
		NW:            len(gameweeks),
	}
	for i, p := range players {
		idx.PlayerIndex[p.ID] = i
	}
	for i, w := range gameweeks {
		idx.GameweekIndex[w] = i
	}
	return idx
}

// FirstGameweek returns w0.
func (idx *Indexing) FirstGameweek() int { return idx.Gameweeks[0] }

// flat computes a contiguous offset for a (player, gameweek) pair.
func (idx *Indexing) flat(pi, wi int) int { return pi*idx.NW + wi }

// flatSlot computes a contiguous offset for a (player, gameweek, slot)
// triple.
func (idx *Indexing) flatSlot(pi, wi, o int) int { return (pi*idx.NW+wi)*BenchSlots + o }

// Flat exposes the (player, gameweek) offset formula to other packages
// (the iteration-cut loop in internal/engine needs it to address
// TransferIn at w0 without reaching into unexported fields).
func (idx *Indexing) Flat(pi, wi int) int { return idx.flat(pi, wi) }
