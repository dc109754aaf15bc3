package engine

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Phase is where a table is in the hand lifecycle.
type Phase string

const (
	PhaseNotStarted     Phase = "not_started"
	PhaseInProgress     Phase = "hand_in_progress"
	PhaseAwaitingWinner Phase = "awaiting_winner_declaration"
)

// Round labels a betting round. No cards are involved.
type Round string

const (
	RoundNone    Round = ""
	RoundPreflop Round = "preflop"
	RoundFlop    Round = "flop"
	RoundTurn    Round = "turn"
	RoundRiver   Round = "river"
)

// next returns the round that follows r and false after the river.
func (r Round) next() (Round, bool) {
	switch r {
	case RoundPreflop:
		return RoundFlop, true
	case RoundFlop:
		return RoundTurn, true
	case RoundTurn:
		return RoundRiver, true
	}
	return RoundNone, false
}

// ActionKind is a betting action.
type ActionKind string

const (
	ActionFold  ActionKind = "fold"
	ActionCheck ActionKind = "check"
	ActionCall  ActionKind = "call"
	ActionRaise ActionKind = "raise"
)

// ParseAction converts a wire action name into an ActionKind.
func ParseAction(s string) (ActionKind, error) {
	switch kind := ActionKind(strings.ToLower(strings.TrimSpace(s))); kind {
	case ActionFold, ActionCheck, ActionCall, ActionRaise:
		return kind, nil
	}
	return "", ErrUnknownAction
}

const (
	// DefaultMaxPlayers is the seat limit used when a table is created with
	// a non-positive limit.
	DefaultMaxPlayers = 10
	// MaxNameLength bounds display names, counted in runes.
	MaxNameLength = 24
)

// Player is a seated player. Committed is the amount put in during the
// current betting round; Contributed is the amount put in during the whole
// hand.
type Player struct {
	ConnID      string
	Name        string
	Chips       decimal.Decimal
	Committed   decimal.Decimal
	Contributed decimal.Decimal
	Folded      bool
	InHand      bool

	acted bool
}

// active reports whether p is still contesting the pot.
func (p *Player) active() bool {
	return p.InHand && !p.Folded
}

// canAct reports whether p can still put chips in. All-in players cannot.
func (p *Player) canAct() bool {
	return p.active() && p.Chips.IsPositive()
}

func (p *Player) dealtIn() bool {
	return p.InHand
}

func (p *Player) resetForHand() {
	p.Committed = decimal.Zero
	p.Contributed = decimal.Zero
	p.Folded = false
	p.InHand = false
	p.acted = false
}

// Hand is the state of the hand being played.
type Hand struct {
	Phase       Phase
	Round       Round
	Pot         decimal.Decimal
	Forfeited   decimal.Decimal
	Dealer      string
	CurrentTurn string
	Number      int
}

// EventKind classifies table events.
type EventKind string

const (
	EventLog      EventKind = "action_log"
	EventHandOver EventKind = "hand_over"
)

// Event is something that happened at the table and should be told to the
// room. Result is set for EventHandOver.
type Event struct {
	Kind    EventKind
	Message string
	Result  *HandResult
}

// Stack is a player's balance at a point in time.
type Stack struct {
	Name  string          `json:"name"`
	Chips decimal.Decimal `json:"chips"`
}

// HandResult describes a resolved hand.
type HandResult struct {
	Number int             `json:"number"`
	Winner string          `json:"winner"`
	Pot    decimal.Decimal `json:"pot"`
	Round  Round           `json:"round"`
	Stacks []Stack         `json:"stacks"`
}
