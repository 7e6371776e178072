package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// fileConfig is the yaml configuration surface. Every field is optional;
// command-line flags override file values.
type fileConfig struct {
	Atoms           []float64 `yaml:"atoms"`
	Queries         []float64 `yaml:"queries"`
	Precision       *int      `yaml:"precision"`
	Epsilon         *float64  `yaml:"epsilon"`
	KMin            *int      `yaml:"k_min"`
	KMax            *int      `yaml:"k_max"`
	KFixed          *int      `yaml:"k_fixed"`
	BoardK          *int      `yaml:"k_zb"`
	MaxBoardEntries *uint64   `yaml:"max_board_entries"`
	Workers         *int      `yaml:"workers"`
}

func loadConfig(path string) (*fileConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg fileConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// parseAtomsFile reads whitespace- or comma-separated positive reals.
func parseAtomsFile(path string) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseAtoms(string(data))
}

func parseAtoms(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == ','
	})

	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("parse atom %q: %w", f, err)
		}
		out = append(out, v)
	}
	return out, nil
}
