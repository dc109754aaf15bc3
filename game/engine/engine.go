package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Table is the complete state of one room: seats, leader, settings and the
// hand in play.
type Table struct {
	code       string
	players    []*Player
	leader     string
	settings   Settings
	configured bool
	showConfig bool
	maxPlayers int
	hand       Hand
	dealerSeat int
	events     []Event
}

// NewTable creates an empty table. The defaults are used until the leader
// configures the game.
func NewTable(code string, defaults Settings, maxPlayers int) *Table {
	if maxPlayers <= 0 {
		maxPlayers = DefaultMaxPlayers
	}
	return &Table{
		code:       code,
		settings:   defaults,
		maxPlayers: maxPlayers,
		hand:       Hand{Phase: PhaseNotStarted},
		dealerSeat: -1,
	}
}

// Code returns the room code the table was created with.
func (t *Table) Code() string {
	return t.code
}

// Seat adds a player at the end of the seating order with the current
// starting chips. The first player seated becomes the leader. A player
// seated while a hand is running sits out until the next one.
func (t *Table) Seat(connID, name string) (*Player, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return nil, fmt.Errorf("%w: names must be 1-%d characters", ErrInvalidName, MaxNameLength)
	}
	if t.PlayerByName(name) != nil {
		return nil, fmt.Errorf("%w: %q", ErrNameTaken, name)
	}
	if t.PlayerByConn(connID) != nil {
		return nil, fmt.Errorf("%w: connection already seated", ErrNameTaken)
	}
	if len(t.players) >= t.maxPlayers {
		return nil, fmt.Errorf("%w: %d players max", ErrRoomFull, t.maxPlayers)
	}

	p := &Player{
		ConnID: connID,
		Name:   name,
		Chips:  t.settings.StartingChips,
	}
	t.players = append(t.players, p)
	if t.leader == "" {
		t.leader = connID
	}
	t.logf("%s has joined the room.", name)
	return p, nil
}

// Remove takes the player bound to connID off the table. Chips the player
// put into a running hand stay in the pot. If the leader leaves, the player
// seated after them takes over.
func (t *Table) Remove(connID string, disconnected bool) (*Player, error) {
	idx := t.seatOfConn(connID)
	if idx < 0 {
		return nil, ErrUnknownPlayer
	}
	p := t.players[idx]
	hadTurn := t.hand.Phase == PhaseInProgress && t.hand.CurrentTurn == p.Name

	if t.hand.Phase != PhaseNotStarted && p.InHand {
		t.hand.Forfeited = t.hand.Forfeited.Add(p.Contributed)
	}
	t.players = append(t.players[:idx], t.players[idx+1:]...)

	// Keep the button where it was so the next rotation lands on the
	// player who moved into the vacated seat.
	if idx <= t.dealerSeat {
		t.dealerSeat--
	}

	if disconnected {
		t.logf("%s disconnected.", p.Name)
	} else {
		t.logf("%s has left the room.", p.Name)
	}

	if len(t.players) == 0 {
		t.leader = ""
		t.hand = Hand{Phase: PhaseNotStarted, Number: t.hand.Number}
		return p, nil
	}

	if t.leader == connID {
		next := t.players[idx%len(t.players)]
		t.leader = next.ConnID
		t.logf("%s is now the room leader.", next.Name)
	}

	if t.hand.Phase == PhaseInProgress {
		if hadTurn {
			t.hand.CurrentTurn = ""
		}
		t.settle(idx - 1)
	}
	return p, nil
}

// Leader returns the connection ID holding leader authority, or "" for an
// empty table.
func (t *Table) Leader() string {
	return t.leader
}

// IsLeader reports whether connID holds leader authority.
func (t *Table) IsLeader(connID string) bool {
	return connID != "" && t.leader == connID
}

// Len returns the number of seated players.
func (t *Table) Len() int {
	return len(t.players)
}

// Empty reports whether no one is seated.
func (t *Table) Empty() bool {
	return len(t.players) == 0
}

// PlayerByConn returns the player bound to connID or nil.
func (t *Table) PlayerByConn(connID string) *Player {
	if i := t.seatOfConn(connID); i >= 0 {
		return t.players[i]
	}
	return nil
}

// PlayerByName returns the seated player with the exact name or nil.
func (t *Table) PlayerByName(name string) *Player {
	for _, p := range t.players {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// ConnIDs returns the connection IDs of everyone seated, in seat order.
func (t *Table) ConnIDs() []string {
	ids := make([]string, len(t.players))
	for i, p := range t.players {
		ids[i] = p.ConnID
	}
	return ids
}

// Hand returns a copy of the current hand state.
func (t *Table) Hand() Hand {
	return t.hand
}

// DrainEvents returns the events recorded since the last call and clears
// them.
func (t *Table) DrainEvents() []Event {
	events := t.events
	t.events = nil
	return events
}

func (t *Table) logf(format string, args ...any) {
	t.events = append(t.events, Event{Kind: EventLog, Message: fmt.Sprintf(format, args...)})
}

func (t *Table) seatOfConn(connID string) int {
	for i, p := range t.players {
		if p.ConnID == connID {
			return i
		}
	}
	return -1
}

func (t *Table) seatOf(p *Player) int {
	for i, q := range t.players {
		if q == p {
			return i
		}
	}
	return -1
}

// stacks lists every seated balance in seat order.
func (t *Table) stacks() []Stack {
	out := make([]Stack, len(t.players))
	for i, p := range t.players {
		out[i] = Stack{Name: p.Name, Chips: p.Chips}
	}
	return out
}

// TotalChips returns the chips on the table: balances plus the pot.
func (t *Table) TotalChips() decimal.Decimal {
	total := t.hand.Pot
	for _, p := range t.players {
		total = total.Add(p.Chips)
	}
	return total
}
