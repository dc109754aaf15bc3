package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// StartHand deals in every player with chips, moves the button and posts
// the blinds. Heads-up, the dealer posts the small blind and acts first
// before the flop.
func (t *Table) StartHand(by string) error {
	if !t.IsLeader(by) {
		return ErrNotLeader
	}
	if t.hand.Phase != PhaseNotStarted {
		return ErrHandInProgress
	}
	if !t.configured {
		return fmt.Errorf("%w: configure the game before starting a hand", ErrInvalidConfig)
	}
	funded := t.countFunded()
	if funded < 2 {
		return ErrNotEnoughPlayers
	}

	for _, p := range t.players {
		p.resetForHand()
		p.InHand = p.Chips.IsPositive()
	}
	t.dealerSeat = t.nextSeat(t.dealerSeat, (*Player).dealtIn)
	dealer := t.players[t.dealerSeat]
	t.hand = Hand{
		Phase:  PhaseInProgress,
		Round:  RoundPreflop,
		Pot:    decimal.Zero,
		Dealer: dealer.Name,
		Number: t.hand.Number + 1,
	}
	t.logf("--- New Hand Started ---")
	t.logf("%s is the dealer", dealer.Name)

	sb := t.dealerSeat
	if funded > 2 {
		sb = t.nextSeat(t.dealerSeat, (*Player).dealtIn)
	}
	bb := t.nextSeat(sb, (*Player).dealtIn)
	t.postBlind(t.players[sb], t.settings.SmallBlind, "small")
	t.postBlind(t.players[bb], t.settings.BigBlind, "big")

	t.settle(bb)
	return nil
}

func (t *Table) postBlind(p *Player, blind decimal.Decimal, label string) {
	paid := decimal.Min(blind, p.Chips)
	t.commit(p, paid)
	t.logf("%s posts %s blind (%s)%s", p.Name, label, money(paid), allInSuffix(p))
}

// Act applies a betting action for the player bound to by. For a raise,
// amount is the total the player adds this action, call included.
func (t *Table) Act(by string, kind ActionKind, amount decimal.Decimal) error {
	p := t.PlayerByConn(by)
	if p == nil {
		return ErrUnknownPlayer
	}
	switch t.hand.Phase {
	case PhaseNotStarted:
		return ErrHandNotStarted
	case PhaseAwaitingWinner:
		return fmt.Errorf("%w: betting is closed", ErrOutOfTurn)
	}
	if t.hand.CurrentTurn != p.Name {
		return ErrOutOfTurn
	}

	owed := t.CallAmount(p)
	switch kind {
	case ActionFold:
		p.Folded = true
		t.logf("%s folds", p.Name)
	case ActionCheck:
		if owed.IsPositive() {
			return fmt.Errorf("%w: cannot check facing %s", ErrIllegalAction, money(owed))
		}
		t.logf("%s checks", p.Name)
	case ActionCall:
		paid := decimal.Min(owed, p.Chips)
		if paid.IsZero() {
			t.logf("%s checks", p.Name)
			break
		}
		t.commit(p, paid)
		t.logf("%s calls %s%s", p.Name, money(paid), allInSuffix(p))
	case ActionRaise:
		if !amount.IsPositive() || amount.LessThanOrEqual(owed) || amount.GreaterThan(p.Chips) {
			return fmt.Errorf("%w: raise must be more than %s and at most %s",
				ErrInvalidAmount, money(owed), money(p.Chips))
		}
		t.commit(p, amount)
		for _, other := range t.players {
			if other != p {
				other.acted = false
			}
		}
		t.logf("%s raises %s%s", p.Name, money(amount), allInSuffix(p))
	default:
		return ErrUnknownAction
	}

	p.acted = true
	t.settle(t.seatOf(p))
	return nil
}

// settle moves the hand forward after any change: it picks the next player
// to act, closes finished rounds and ends betting when nothing is left to
// decide. from is the seat the search for the next actor starts after.
func (t *Table) settle(from int) {
	for t.hand.Phase == PhaseInProgress {
		if t.countActive() <= 1 {
			t.closeBetting()
			return
		}
		if !t.roundComplete() {
			if cur := t.PlayerByName(t.hand.CurrentTurn); cur == nil || !t.needsAction(cur) {
				t.hand.CurrentTurn = ""
				if next := t.nextSeat(from, t.needsAction); next >= 0 {
					t.hand.CurrentTurn = t.players[next].Name
				}
			}
			return
		}
		next, ok := t.hand.Round.next()
		if !ok {
			t.closeBetting()
			return
		}
		t.startRound(next)
		from = t.dealerSeat
	}
}

// roundComplete reports whether every player who can still bet has acted
// since the last raise and matched the highest commitment.
func (t *Table) roundComplete() bool {
	top := t.highest()
	var actors []*Player
	for _, p := range t.players {
		if p.canAct() {
			actors = append(actors, p)
		}
	}
	switch len(actors) {
	case 0:
		return true
	case 1:
		// Nobody is left to bet against.
		if !actors[0].Committed.LessThan(top) {
			return true
		}
	}
	for _, p := range actors {
		if !p.acted || p.Committed.LessThan(top) {
			return false
		}
	}
	return true
}

func (t *Table) startRound(r Round) {
	for _, p := range t.players {
		p.Committed = decimal.Zero
		p.acted = false
	}
	t.hand.Round = r
	t.hand.CurrentTurn = ""
	t.logf("--- %s ---", roundTitle(r))
}

func (t *Table) closeBetting() {
	t.hand.Phase = PhaseAwaitingWinner
	t.hand.CurrentTurn = ""
	if t.countActive() == 1 {
		for _, p := range t.players {
			if p.active() {
				t.logf("%s is the last player in the hand", p.Name)
			}
		}
	}
	t.logf("Betting closed. Waiting for the winner to be declared.")
}

// DeclareWinner pays the whole pot to the named player and resets the
// table for the next hand. Declaring with an empty pot only resets.
func (t *Table) DeclareWinner(by, winner string) (HandResult, error) {
	if !t.IsLeader(by) {
		return HandResult{}, ErrNotLeader
	}
	w := t.PlayerByName(winner)
	if w == nil {
		return HandResult{}, fmt.Errorf("%w: %q", ErrUnknownPlayer, winner)
	}

	pot := t.hand.Pot
	result := HandResult{
		Number: t.hand.Number,
		Winner: w.Name,
		Pot:    pot,
		Round:  t.hand.Round,
	}
	w.Chips = w.Chips.Add(pot)
	for _, p := range t.players {
		p.resetForHand()
	}
	t.hand = Hand{Phase: PhaseNotStarted, Pot: decimal.Zero, Number: t.hand.Number}
	result.Stacks = t.stacks()

	t.logf("%s wins %s!", w.Name, money(pot))
	t.events = append(t.events, Event{Kind: EventHandOver, Result: &result})
	return result, nil
}

func allInSuffix(p *Player) string {
	if p.Chips.IsZero() {
		return " (all-in)"
	}
	return ""
}

func roundTitle(r Round) string {
	switch r {
	case RoundFlop:
		return "FLOP"
	case RoundTurn:
		return "TURN"
	case RoundRiver:
		return "RIVER"
	}
	return "PREFLOP"
}
