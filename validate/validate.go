// Command validate checks table preset YAML files in ../configs/presets, or
// the files given as arguments. It checks:
//   - YAML structure and required fields
//   - amounts parse as exact decimals and are positive
//   - the small blind is below the big blind
//   - amounts are whole cents
//   - stacks are at least ten big blinds deep (warning only)
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/chip-tracker/game/config"
)

var errInvalid = errors.New("some presets have errors")

// minDepth is the stack depth, in big blinds, below which a warning is shown.
var minDepth = decimal.NewFromInt(10)

// ValidationResult captures the outcome of validating a single file.
// Info holds informational lines for valid files; Errors and Warnings hold
// problems found.
type ValidationResult struct {
	File     string
	Valid    bool
	Errors   []string
	Warnings []string
	Info     []string
}

// rawPreset holds the amounts as written so each one can be reported.
type rawPreset struct {
	Name          string `yaml:"name"`
	Description   string `yaml:"description"`
	StartingChips string `yaml:"starting_chips"`
	SmallBlind    string `yaml:"small_blind"`
	BigBlind      string `yaml:"big_blind"`
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validatePreset loads and validates a single preset file. Field problems
// are collected before the file is run through the same loader the server
// uses.
func validatePreset(path string) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(path),
		Valid: true,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var raw rawPreset
	if err := yaml.Unmarshal(data, &raw); err != nil {
		result.fail("Invalid YAML: %v", err)
		return result
	}

	if strings.TrimSpace(raw.Name) == "" {
		result.fail("name is required")
	}

	amounts := make(map[string]decimal.Decimal)
	for _, f := range []struct{ key, value string }{
		{"starting_chips", raw.StartingChips},
		{"small_blind", raw.SmallBlind},
		{"big_blind", raw.BigBlind},
	} {
		v := strings.TrimSpace(f.value)
		if v == "" {
			result.fail("%s is required", f.key)
			continue
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			result.fail("%s must be a decimal, got %q", f.key, f.value)
			continue
		}
		if !d.IsPositive() {
			result.fail("%s must be positive, got %s", f.key, d)
		}
		if !d.Equal(d.Round(2)) {
			result.fail("%s must be whole cents, got %s", f.key, d)
		}
		amounts[f.key] = d
	}

	sb, okSB := amounts["small_blind"]
	bb, okBB := amounts["big_blind"]
	if okSB && okBB && !sb.LessThan(bb) {
		result.fail("small_blind (%s) must be less than big_blind (%s)", sb, bb)
	}

	if !result.Valid {
		return result
	}

	preset, err := config.LoadPresetFile(path)
	if err != nil {
		result.fail("%v", err)
		return result
	}

	depth := preset.StartingChips.Div(preset.BigBlind)
	if depth.LessThan(minDepth) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("starting stack is only %s big blinds deep", depth.StringFixed(1)))
	}

	result.Info = append(result.Info,
		fmt.Sprintf("✓ ID: %s", preset.ID),
		fmt.Sprintf("✓ Name: %s", preset.Name),
		fmt.Sprintf("✓ Stack: %s (%s big blinds)", preset.StartingChips.StringFixed(2), depth.StringFixed(0)),
		fmt.Sprintf("✓ Blinds: %s/%s", preset.SmallBlind.StringFixed(2), preset.BigBlind.StringFixed(2)),
	)
	return result
}

// report prints one block per result and returns whether all were valid.
func report(w io.Writer, results []ValidationResult) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Info {
				fmt.Fprintln(w, "  "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Fprintln(w, "  ❌ "+err)
			}
		}
		for _, warn := range result.Warnings {
			fmt.Fprintln(w, "  ⚠ "+warn)
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "✅ All presets are valid!")
	} else {
		fmt.Fprintln(w, "❌ Some presets have errors")
	}
	return allValid
}

func presetFiles(dir string, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("error finding preset files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no preset files in %s", dir)
	}
	return files, nil
}

func newCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "validate table preset files",
		ArgsUsage: "[file.yaml ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Value: "../configs/presets", Usage: "preset directory scanned when no files are given"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files, err := presetFiles(cmd.String("dir"), cmd.Args().Slice())
			if err != nil {
				return err
			}

			results := make([]ValidationResult, 0, len(files))
			for _, file := range files {
				results = append(results, validatePreset(file))
			}
			if !report(out, results) {
				return errInvalid
			}
			return nil
		},
	}
}

func main() {
	if err := newCommand(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
