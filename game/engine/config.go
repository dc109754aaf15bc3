package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Settings are the per-room chip settings.
type Settings struct {
	StartingChips decimal.Decimal `json:"starting_chips"`
	SmallBlind    decimal.Decimal `json:"small_blind"`
	BigBlind      decimal.Decimal `json:"big_blind"`
}

// DefaultSettings returns $10.00 starting chips with $0.10/$0.20 blinds.
func DefaultSettings() Settings {
	return Settings{
		StartingChips: decimal.NewFromInt(10),
		SmallBlind:    decimal.New(10, -2),
		BigBlind:      decimal.New(20, -2),
	}
}

// Validate checks that every value is positive and the small blind is
// below the big blind.
func (s Settings) Validate() error {
	if !s.StartingChips.IsPositive() {
		return fmt.Errorf("%w: starting_chips must be positive, got %s", ErrInvalidConfig, s.StartingChips)
	}
	if !s.SmallBlind.IsPositive() {
		return fmt.Errorf("%w: small_blind must be positive, got %s", ErrInvalidConfig, s.SmallBlind)
	}
	if !s.BigBlind.IsPositive() {
		return fmt.Errorf("%w: big_blind must be positive, got %s", ErrInvalidConfig, s.BigBlind)
	}
	if !s.SmallBlind.LessThan(s.BigBlind) {
		return fmt.Errorf("%w: small_blind (%s) must be less than big_blind (%s)", ErrInvalidConfig, s.SmallBlind, s.BigBlind)
	}
	return nil
}

// Settings returns the settings in effect.
func (t *Table) Settings() Settings {
	return t.settings
}

// Configured reports whether the leader has applied a configuration.
func (t *Table) Configured() bool {
	return t.configured
}

// Configure replaces the room settings. Seated balances are left alone;
// players who join later start with the new starting chips.
func (t *Table) Configure(by string, s Settings) error {
	if !t.IsLeader(by) {
		return ErrNotLeader
	}
	if t.hand.Phase != PhaseNotStarted {
		return ErrHandInProgress
	}
	if err := s.Validate(); err != nil {
		return err
	}

	t.settings = s
	t.configured = true
	t.logf("Game configured: %s starting, blinds %s/%s",
		money(s.StartingChips), money(s.SmallBlind), money(s.BigBlind))
	return nil
}

// OpenConfig raises the hint that the leader is editing settings.
func (t *Table) OpenConfig(by string) error {
	if !t.IsLeader(by) {
		return ErrNotLeader
	}
	t.showConfig = true
	return nil
}

// CloseConfig clears the settings hint. Any seated player may close it.
func (t *Table) CloseConfig(by string) error {
	if t.PlayerByConn(by) == nil {
		return ErrUnknownPlayer
	}
	t.showConfig = false
	return nil
}
