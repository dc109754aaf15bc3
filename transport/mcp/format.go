package mcp

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wricardo/chip-tracker/game/config"
	"github.com/wricardo/chip-tracker/game/engine"
	"github.com/wricardo/chip-tracker/game/history"
	"github.com/wricardo/chip-tracker/game/service"
)

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func formatRooms(rooms []service.RoomSummary) string {
	if len(rooms) == 0 {
		return "No open rooms."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Open Rooms (%d):\n\n", len(rooms))
	for _, r := range rooms {
		status := "waiting"
		if r.HandStarted {
			status = fmt.Sprintf("hand #%d in play", r.HandNumber)
		}
		fmt.Fprintf(&b, "- %s: %d players, leader %s, %s (last active %s)\n",
			r.Code, r.Players, r.LeaderName, status, r.LastActive.Format("15:04:05"))
	}
	return b.String()
}

func formatSnapshot(s *engine.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Room %s (leader: %s)\n", s.Code, s.LeaderName)

	if s.GameConfigured {
		fmt.Fprintf(&b, "Stakes: %s starting, blinds %s/%s\n",
			money(s.StartingChips), money(s.SmallBlind), money(s.BigBlind))
	} else {
		b.WriteString("Stakes: not configured yet\n")
	}

	switch s.Phase {
	case engine.PhaseInProgress:
		fmt.Fprintf(&b, "Hand #%d, %s. Dealer: %s. Pot: %s\n", s.HandNumber, s.Round, s.Dealer, money(s.Pot))
		fmt.Fprintf(&b, "To act: %s (call %s)\n", s.CurrentTurn, money(s.CallAmount))
	case engine.PhaseAwaitingWinner:
		fmt.Fprintf(&b, "Hand #%d betting closed. Pot: %s. Waiting for the leader to declare a winner.\n",
			s.HandNumber, money(s.Pot))
	default:
		fmt.Fprintf(&b, "No hand in play (%d played).\n", s.HandNumber)
	}

	b.WriteString("\nPlayers:\n")
	for _, p := range s.Players {
		line := fmt.Sprintf("- %s: %s", p.Name, money(p.Chips))
		if p.Committed.IsPositive() {
			line += fmt.Sprintf(", %s in this round", money(p.Committed))
		}
		switch {
		case p.Folded:
			line += " [folded]"
		case s.HandStarted && !p.InHand:
			line += " [sitting out]"
		}
		if p.Name == s.CurrentTurn {
			line += " <- to act"
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func formatHistory(room string, hands []history.Entry) string {
	if len(hands) == 0 {
		return fmt.Sprintf("No hands recorded for room %s.", room)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hands in room %s (%d):\n\n", room, len(hands))
	for _, h := range hands {
		fmt.Fprintf(&b, "#%d %s won %s", h.Number, h.Winner, money(h.Pot))
		if h.Round != engine.RoundNone {
			fmt.Fprintf(&b, " (betting ended on the %s)", h.Round)
		}
		b.WriteString("\n")
		stacks := make([]string, len(h.Stacks))
		for i, st := range h.Stacks {
			stacks[i] = fmt.Sprintf("%s %s", st.Name, money(st.Chips))
		}
		fmt.Fprintf(&b, "   stacks: %s\n", strings.Join(stacks, ", "))
	}
	return b.String()
}

func formatPreset(p *config.Preset) string {
	s := fmt.Sprintf("%s (%s): %s starting, blinds %s/%s",
		p.ID, p.Name, money(p.StartingChips), money(p.SmallBlind), money(p.BigBlind))
	if p.Description != "" {
		s += " - " + p.Description
	}
	return s
}
