// Command analyze prints quick, human-readable statistics about archived
// hands. It reads the JSON-lines files the server writes with --history-dir
// and summarizes, per room, the number of hands, pot sizes, who won how often
// and on which street betting ended.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/chip-tracker/game/engine"
	"github.com/wricardo/chip-tracker/game/history"
)

// PlayerStats is one player's record within a room.
type PlayerStats struct {
	Name  string
	Wins  int
	Won   decimal.Decimal
	Stack decimal.Decimal
}

// RoomStats summarizes the archived hands of one room.
type RoomStats struct {
	Room     string
	Hands    int
	TotalPot decimal.Decimal
	Biggest  history.Entry
	Rounds   map[engine.Round]int
	Players  []PlayerStats
}

// AveragePot returns the mean pot, rounded to cents.
func (s RoomStats) AveragePot() decimal.Decimal {
	if s.Hands == 0 {
		return decimal.Zero
	}
	return s.TotalPot.Div(decimal.NewFromInt(int64(s.Hands))).Round(2)
}

// analyzeRoom folds a room's hands into RoomStats. Stacks come from the
// latest hand each player appears in.
func analyzeRoom(room string, hands []history.Entry) RoomStats {
	stats := RoomStats{
		Room:   room,
		Hands:  len(hands),
		Rounds: make(map[engine.Round]int),
	}

	players := make(map[string]*PlayerStats)
	get := func(name string) *PlayerStats {
		p, ok := players[name]
		if !ok {
			p = &PlayerStats{Name: name}
			players[name] = p
		}
		return p
	}

	for _, h := range hands {
		stats.TotalPot = stats.TotalPot.Add(h.Pot)
		if h.Pot.GreaterThan(stats.Biggest.Pot) {
			stats.Biggest = h
		}
		stats.Rounds[h.Round]++

		if h.Winner != "" {
			w := get(h.Winner)
			w.Wins++
			w.Won = w.Won.Add(h.Pot)
		}
		for _, st := range h.Stacks {
			get(st.Name).Stack = st.Chips
		}
	}

	for _, p := range players {
		stats.Players = append(stats.Players, *p)
	}
	sort.Slice(stats.Players, func(i, j int) bool {
		a, b := stats.Players[i], stats.Players[j]
		if !a.Stack.Equal(b.Stack) {
			return a.Stack.GreaterThan(b.Stack)
		}
		return a.Name < b.Name
	})
	return stats
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func printStats(w io.Writer, s RoomStats) {
	fmt.Fprintf(w, "\n=== Room %s ===\n", s.Room)
	if s.Hands == 0 {
		fmt.Fprintln(w, "No hands recorded")
		return
	}

	fmt.Fprintf(w, "Hands: %d\n", s.Hands)
	fmt.Fprintf(w, "Total pot: %s (average %s)\n", money(s.TotalPot), money(s.AveragePot()))
	fmt.Fprintf(w, "Biggest pot: %s, hand #%d won by %s\n", money(s.Biggest.Pot), s.Biggest.Number, s.Biggest.Winner)

	fmt.Fprint(w, "Betting ended:")
	for _, r := range []engine.Round{engine.RoundPreflop, engine.RoundFlop, engine.RoundTurn, engine.RoundRiver} {
		fmt.Fprintf(w, " %s %d", r, s.Rounds[r])
	}
	if n := s.Rounds[engine.RoundNone]; n > 0 {
		fmt.Fprintf(w, ", declared between hands %d", n)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Players:")
	for _, p := range s.Players {
		fmt.Fprintf(w, "  %-16s stack %-10s wins %-4d won %s\n", p.Name, money(p.Stack), p.Wins, money(p.Won))
	}
}

func analyze(w io.Writer, dir string, rooms []string) error {
	archive, err := history.NewFileArchive(dir)
	if err != nil {
		return err
	}

	if len(rooms) == 0 {
		rooms, err = archive.Rooms()
		if err != nil {
			return err
		}
		if len(rooms) == 0 {
			return fmt.Errorf("no archived rooms in %s", dir)
		}
	}

	for _, room := range rooms {
		hands, err := archive.ReadAll(room)
		if err != nil {
			return fmt.Errorf("room %s: %w", room, err)
		}
		printStats(w, analyzeRoom(room, hands))
	}
	return nil
}

func newCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "summarize archived hands",
		ArgsUsage: "[ROOM ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Value: "data/hands", Usage: "hand archive directory", Sources: cli.EnvVars("CHIPS_HISTORY_DIR")},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return analyze(out, cmd.String("dir"), cmd.Args().Slice())
		},
	}
}

func main() {
	if err := newCommand(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
