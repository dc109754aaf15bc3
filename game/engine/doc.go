// Package engine provides the chip-tracking rules for a single poker room.
//
// The engine package implements:
//   - Seating, leader authority and departures (the player directory)
//   - Per-room settings and when they may change
//   - Blind posting, turn rotation and call amounts
//   - Round advancement from preflop to river
//   - Pot accumulation and winner payout
//
// Core Types:
//
// Table holds the whole state of one room. It is not safe for concurrent
// use: callers serialize access, normally by owning the Table from a single
// goroutine (see package room). Every mutating method validates first and
// only then changes state, so a returned error never leaves a partial update.
//
// Amounts are shopspring decimals. Nothing in this package deals or reads
// cards; the winner of a hand is declared by the room leader.
//
// Usage:
//
//	table := engine.NewTable("ABCD1", engine.DefaultSettings(), 10)
//	table.Seat(aliceConn, "Alice")
//	table.Seat(bobConn, "Bob")
//	table.Configure(aliceConn, engine.DefaultSettings())
//	table.StartHand(aliceConn)
//	table.Act(aliceConn, engine.ActionCall, decimal.Zero)
//	for _, ev := range table.DrainEvents() {
//		fmt.Println(ev.Message)
//	}
//
// Hand Lifecycle:
//
// A hand moves from PhaseNotStarted to PhaseInProgress on StartHand, through
// the preflop, flop, turn and river betting rounds, and into
// PhaseAwaitingWinner once betting closes. DeclareWinner pays the pot out
// and returns the table to PhaseNotStarted.
package engine
