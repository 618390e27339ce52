package pipeline

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// #region ops
// Step operations.
const (
	OpInsert       = "insert"
	OpReplace      = "replace"
	OpBoost        = "boost"
	OpNormalize    = "normalize"
	OpArcSort      = "arcsort"
	OpConnect      = "connect"
	OpDeterminize  = "determinize"
	OpMinimize     = "minimize"
	OpShortestPath = "shortestpath"
	OpCompose      = "compose"
	OpExpand       = "expand"
	OpBoundary     = "boundary"
)

// #endregion ops

// #region recipe-types
// Recipe is an ordered list of edits applied to one automaton.
type Recipe struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Steps       []Step `yaml:"steps"`
}

// Step is one edit. Only the fields its Op reads are consulted; pointer
// fields fall back to the runner's configured defaults when nil.
type Step struct {
	Op string `yaml:"op"`

	// insert, replace
	Marker int      `yaml:"marker,omitempty"`
	Donor  string   `yaml:"donor,omitempty"`
	Bias   *float64 `yaml:"bias,omitempty"`
	Strict *bool    `yaml:"strict,omitempty"`

	// boost
	Sequences     [][]int  `yaml:"sequences,omitempty"`
	SequencesFile string   `yaml:"sequences_file,omitempty"`
	Factor        *float64 `yaml:"factor,omitempty"`

	// arcsort
	SortBy string `yaml:"sort_by,omitempty"`

	// determinize, minimize, shortestpath
	Delta           *float64 `yaml:"delta,omitempty"`
	WeightThreshold *float64 `yaml:"weight_threshold,omitempty"`
	AllowNondet     bool     `yaml:"allow_nondet,omitempty"`
	NShortest       int      `yaml:"nshortest,omitempty"`
	NonUnique       bool     `yaml:"non_unique,omitempty"`

	// compose
	RHS string `yaml:"rhs,omitempty"`

	// expand, boundary
	Split    []string `yaml:"split,omitempty"`
	Boundary string   `yaml:"boundary,omitempty"`
}

// #endregion recipe-types

// #region recipe-loader
// LoadRecipe reads and validates a YAML recipe file.
func LoadRecipe(path string) (*Recipe, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read recipe %s: %w", path, err)
	}
	defer f.Close()
	r, err := ReadRecipe(f)
	if err != nil {
		return nil, fmt.Errorf("parse recipe %s: %w", path, err)
	}
	return r, nil
}

// ReadRecipe decodes and validates a YAML recipe.
func ReadRecipe(r io.Reader) (*Recipe, error) {
	var rec Recipe
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode recipe: %w", err)
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Validate checks that every step names a known op and carries the inputs it
// needs. It returns all problems joined.
func (r *Recipe) Validate() error {
	if len(r.Steps) == 0 {
		return errors.New("recipe has no steps")
	}
	var errs []error
	for i, s := range r.Steps {
		if err := s.validate(); err != nil {
			errs = append(errs, fmt.Errorf("step %d (%s): %w", i, s.Op, err))
		}
	}
	return errors.Join(errs...)
}

func (s Step) validate() error {
	switch s.Op {
	case OpInsert, OpReplace:
		if s.Donor == "" {
			return errors.New("donor is required")
		}
	case OpBoost:
		if len(s.Sequences) == 0 && s.SequencesFile == "" {
			return errors.New("sequences or sequences_file is required")
		}
	case OpArcSort:
		if s.SortBy != "" && s.SortBy != "ilabel" && s.SortBy != "olabel" {
			return fmt.Errorf("sort_by %q must be ilabel or olabel", s.SortBy)
		}
	case OpCompose:
		if s.RHS == "" {
			return errors.New("rhs is required")
		}
	case OpExpand:
		if len(s.Split) == 0 {
			return errors.New("split is required")
		}
	case OpNormalize, OpConnect, OpDeterminize, OpMinimize, OpShortestPath, OpBoundary:
	default:
		return fmt.Errorf("unknown op %q", s.Op)
	}
	if s.NShortest < 0 {
		return fmt.Errorf("nshortest %d must not be negative", s.NShortest)
	}
	return nil
}

// #endregion recipe-loader

// #region sequences
// ReadSequences parses one label sequence per line, labels separated by
// whitespace. Blank lines are skipped.
func ReadSequences(r io.Reader) ([][]int, error) {
	var out [][]int
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		seq := make([]int, len(fields))
		for i, f := range fields {
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("sequences line %d: %w", line, err)
			}
			seq[i] = v
		}
		out = append(out, seq)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read sequences: %w", err)
	}
	return out, nil
}

// #endregion sequences
