package engine

import "github.com/shopspring/decimal"

// money formats an amount as dollars and cents.
func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// nextSeat returns the first seat after from, wrapping, whose player
// satisfies ok. from itself is checked last. It returns -1 when no seat
// matches. from may be -1 to start at the first seat.
func (t *Table) nextSeat(from int, ok func(*Player) bool) int {
	n := len(t.players)
	for i := 1; i <= n; i++ {
		idx := ((from+i)%n + n) % n
		if ok(t.players[idx]) {
			return idx
		}
	}
	return -1
}

func (t *Table) countActive() int {
	n := 0
	for _, p := range t.players {
		if p.active() {
			n++
		}
	}
	return n
}

func (t *Table) countFunded() int {
	n := 0
	for _, p := range t.players {
		if p.Chips.IsPositive() {
			n++
		}
	}
	return n
}

// highest returns the largest commitment made this round.
func (t *Table) highest() decimal.Decimal {
	top := decimal.Zero
	for _, p := range t.players {
		if p.InHand && p.Committed.GreaterThan(top) {
			top = p.Committed
		}
	}
	return top
}

// CallAmount returns what p must add to match the highest commitment this
// round. It is never negative.
func (t *Table) CallAmount(p *Player) decimal.Decimal {
	owed := t.highest().Sub(p.Committed)
	if owed.IsNegative() {
		return decimal.Zero
	}
	return owed
}

func (t *Table) needsAction(p *Player) bool {
	return p.canAct() && (!p.acted || p.Committed.LessThan(t.highest()))
}

// commit moves amount from p's balance into the pot.
func (t *Table) commit(p *Player, amount decimal.Decimal) {
	p.Chips = p.Chips.Sub(amount)
	p.Committed = p.Committed.Add(amount)
	p.Contributed = p.Contributed.Add(amount)
	t.hand.Pot = t.hand.Pot.Add(amount)
}
