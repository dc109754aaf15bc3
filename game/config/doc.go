// Package config provides configuration for the chip tracker server.
//
// The config package handles:
//   - Table presets (named starting chips and blinds) loaded from YAML files
//   - Default preset management and preset discovery
//   - The server settings file (listener, logging, room limits, history)
//
// Preset Format:
//
// Presets are YAML files in the presets directory. The file name without
// its extension is the preset ID:
//
//	name: Deep Stack
//	description: Long sessions with a hundred big blinds
//	starting_chips: "20.00"
//	small_blind: "0.10"
//	big_blind: "0.20"
//
// Amounts are parsed as exact decimals. A "classic" preset is always
// available, even without a presets directory.
//
// Usage:
//
//	manager, err := config.NewManager("configs/presets")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	preset, err := manager.LoadPreset("deep")
//	table := engine.NewTable(code, preset.Settings(), 10)
//
//	settings, err := config.Load("chip-tracker.yaml")
package config
