package config

import (
	"slices"
	"strings"
)

var Presets = map[string]map[string]*Config{
	"lqr": {
		"small": {
			Model: "lqr", Integrator: "none", Control: "zero", Dt: 0.1, Horizon: 10,
			LQR:       LQRConfig{NX: 2, NU: 2, DriftFree: true},
			InitState: []float64{1, -1}, InitControl: []float64{-0.1, 0.1},
		},
		"random": {
			Model: "lqr", Integrator: "none", Control: "zero", Dt: 0.1, Horizon: 20, Seed: 7,
			LQR: LQRConfig{NX: 4, NU: 2, Random: true},
		},
	},
	"unicycle": {
		"park": {
			Model: "unicycle", Integrator: "none", Control: "zero", Dt: 0.1, Horizon: 30,
			Unicycle:  UnicycleConfig{StateWeight: 10, ControlWeight: 1},
			InitState: []float64{-1, -1, 1}, InitControl: []float64{0.5, -0.2},
		},
	},
	"integrated": {
		"rk4": {
			Model: "unicycle", Integrator: "rk4", Control: "two_rk4", Dt: 0.1, Horizon: 30,
			Unicycle:  UnicycleConfig{StateWeight: 10, ControlWeight: 1},
			InitState: []float64{-1, -1, 1}, InitControl: []float64{0.5, -0.2},
		},
		"euler": {
			Model: "lqr", Integrator: "euler", Control: "zero", Dt: 0.05, Horizon: 40, Seed: 3,
			LQR: LQRConfig{NX: 3, NU: 1, Random: true},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(group, preset string) *Config {
	groupPresets, ok := Presets[group]
	if !ok {
		return nil
	}
	cfg, ok := groupPresets[preset]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

// Lookup resolves a "group/preset" name.
func Lookup(name string) *Config {
	group, preset, ok := strings.Cut(name, "/")
	if !ok {
		return nil
	}
	return GetPreset(group, preset)
}

func ListPresets(group string) []string {
	groupPresets, ok := Presets[group]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(groupPresets))
	for name := range groupPresets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Names lists every preset as "group/preset", sorted.
func Names() []string {
	var names []string
	for group := range Presets {
		for _, preset := range ListPresets(group) {
			names = append(names, group+"/"+preset)
		}
	}
	slices.Sort(names)
	return names
}
