package engine

import "github.com/shopspring/decimal"

// PlayerView is the public view of a seated player.
type PlayerView struct {
	Name      string          `json:"name"`
	Chips     decimal.Decimal `json:"chips"`
	Committed decimal.Decimal `json:"committed"`
	Folded    bool            `json:"folded"`
	InHand    bool            `json:"in_hand"`
}

// Snapshot is the full room state sent to every seated connection after a
// change.
type Snapshot struct {
	Code           string          `json:"code"`
	Leader         string          `json:"leader"`
	LeaderName     string          `json:"leader_name"`
	Players        []PlayerView    `json:"players"`
	HandStarted    bool            `json:"hand_started"`
	Phase          Phase           `json:"phase"`
	Pot            decimal.Decimal `json:"pot"`
	Round          Round           `json:"round"`
	Dealer         string          `json:"dealer"`
	CurrentTurn    string          `json:"current_turn"`
	CallAmount     decimal.Decimal `json:"call_amount"`
	GameConfigured bool            `json:"game_configured"`
	StartingChips  decimal.Decimal `json:"starting_chips"`
	SmallBlind     decimal.Decimal `json:"small_blind"`
	BigBlind       decimal.Decimal `json:"big_blind"`
	ShowConfig     bool            `json:"show_config"`
	HandNumber     int             `json:"hand_number"`
}

// Snapshot captures the table. call_amount is the amount owed by the player
// whose turn it is, zero when no one is to act.
func (t *Table) Snapshot() Snapshot {
	s := Snapshot{
		Code:           t.code,
		Leader:         t.leader,
		Players:        make([]PlayerView, 0, len(t.players)),
		HandStarted:    t.hand.Phase != PhaseNotStarted,
		Phase:          t.hand.Phase,
		Pot:            t.hand.Pot,
		Round:          t.hand.Round,
		Dealer:         t.hand.Dealer,
		CurrentTurn:    t.hand.CurrentTurn,
		CallAmount:     decimal.Zero,
		GameConfigured: t.configured,
		StartingChips:  t.settings.StartingChips,
		SmallBlind:     t.settings.SmallBlind,
		BigBlind:       t.settings.BigBlind,
		ShowConfig:     t.showConfig,
		HandNumber:     t.hand.Number,
	}
	for _, p := range t.players {
		if p.ConnID == t.leader {
			s.LeaderName = p.Name
		}
		s.Players = append(s.Players, PlayerView{
			Name:      p.Name,
			Chips:     p.Chips,
			Committed: p.Committed,
			Folded:    p.Folded,
			InHand:    p.InHand,
		})
	}
	if cur := t.PlayerByName(t.hand.CurrentTurn); cur != nil {
		s.CallAmount = t.CallAmount(cur)
	}
	return s
}
