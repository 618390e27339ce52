package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/idiap/icassp-oov-recognition/internal/codec"
	"github.com/idiap/icassp-oov-recognition/internal/fst"
	"github.com/idiap/icassp-oov-recognition/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", envOr("WFST_DB", ""), "path to the version store")
	name := flag.String("name", "", "only show versions of this automaton")
	last := flag.Int("last", 20, "show N most recent versions")
	version := flag.String("version", "", "show single version detail")
	state := flag.Int("state", -1, "with --version: list the arcs of this state")
	walk := flag.Int("walk", 0, "with --version: breadth-first walk of up to N states from the start")
	export := flag.String("export", "", "with --version: write the version as a binary automaton to this path")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/wfst.db [--name n] [--last N] [--version id [--state s] [--walk N] [--export path]] [--json]")
		os.Exit(2)
	}

	st, err := store.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if *version != "" {
		opts := detailOptions{state: *state, walk: *walk, export: *export, json: *jsonOut}
		if err := runDetailMode(st, *version, opts); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	} else {
		if err := runListMode(st, *name, *last, *jsonOut); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion main

// #region list-mode

type listRow struct {
	VersionID string `json:"version_id"`
	Name      string `json:"name"`
	ParentID  string `json:"parent_id,omitempty"`
	NumStates int    `json:"num_states"`
	NumArcs   int    `json:"num_arcs"`
	Operation string `json:"operation,omitempty"`
	CreatedAt string `json:"created_at"`
}

func runListMode(st *store.Store, name string, last int, jsonOut bool) error {
	versions, err := st.ListVersionsWithEdits(name, last)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		fmt.Fprintln(os.Stderr, "no versions found")
		return nil
	}

	// Store returns DESC, reverse for chronological
	rows := make([]listRow, len(versions))
	for i, v := range versions {
		rows[len(versions)-1-i] = listRow{
			VersionID: v.VersionID,
			Name:      v.Name,
			ParentID:  v.ParentID,
			NumStates: v.NumStates,
			NumArcs:   v.NumArcs,
			Operation: v.Operation,
			CreatedAt: v.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}
	printListTable(rows)
	return nil
}

func printListTable(rows []listRow) {
	fmt.Printf("%-8s  %-16s  %-8s  %8s  %8s  %-20s  %s\n",
		"Version", "Name", "Parent", "States", "Arcs", "Operation", "Time")
	fmt.Printf("%-8s+-%-16s+-%-8s+-%8s+-%8s+-%-20s+-%s\n",
		"--------", "----------------", "--------", "--------", "--------", "--------------------", "--------------------")
	for _, r := range rows {
		parent := "-"
		if r.ParentID != "" {
			parent = shortID(r.ParentID)
		}
		op := r.Operation
		if op == "" {
			op = "-"
		}
		fmt.Printf("%-8s  %-16s  %-8s  %8d  %8d  %-20s  %s\n",
			shortID(r.VersionID), r.Name, parent, r.NumStates, r.NumArcs, op, r.CreatedAt)
	}
}

// #endregion list-mode

// #region detail-mode

type detailOptions struct {
	state  int
	walk   int
	export string
	json   bool
}

type detailOutput struct {
	VersionID string            `json:"version_id"`
	Name      string            `json:"name"`
	ParentID  string            `json:"parent_id"`
	CreatedAt string            `json:"created_at"`
	NumStates int               `json:"num_states"`
	NumArcs   int               `json:"num_arcs"`
	Start     int               `json:"start"`
	Note      string            `json:"note,omitempty"`
	Operation string            `json:"operation,omitempty"`
	Params    json.RawMessage   `json:"params,omitempty"`
	Result    json.RawMessage   `json:"result,omitempty"`
	Arcs      []store.StoredArc `json:"arcs,omitempty"`
	Walk      *store.WalkResult `json:"walk,omitempty"`
}

func runDetailMode(st *store.Store, versionID string, opts detailOptions) error {
	v, err := st.GetVersionWithEdit(versionID)
	if err != nil {
		return err
	}

	out := detailOutput{
		VersionID: v.VersionID,
		Name:      v.Name,
		ParentID:  v.ParentID,
		CreatedAt: v.CreatedAt.Format("2006-01-02T15:04:05Z"),
		NumStates: v.NumStates,
		NumArcs:   v.NumArcs,
		Start:     v.Start,
		Note:      v.Note,
		Operation: v.Operation,
		Params:    rawOrNil(v.ParamsJSON),
		Result:    rawOrNil(v.ResultJSON),
	}

	if opts.state >= 0 {
		if out.Arcs, err = st.StateArcs(versionID, opts.state); err != nil {
			return err
		}
	}
	if opts.walk > 0 && v.Start != fst.NoState {
		w, err := st.Walk(versionID, v.Start, 0, opts.walk)
		if err != nil {
			return err
		}
		out.Walk = &w
	}
	if opts.export != "" {
		f, err := st.Load(versionID)
		if err != nil {
			return err
		}
		if err := codec.WriteFile(opts.export, f); err != nil {
			return err
		}
	}

	if opts.json {
		return printJSON(out)
	}

	fmt.Printf("Version:    %s\n", out.VersionID)
	fmt.Printf("Name:       %s\n", out.Name)
	fmt.Printf("Parent:     %s\n", out.ParentID)
	fmt.Printf("Created:    %s\n", out.CreatedAt)
	fmt.Printf("States:     %d\n", out.NumStates)
	fmt.Printf("Arcs:       %d\n", out.NumArcs)
	fmt.Printf("Start:      %d\n", out.Start)
	if out.Operation != "" {
		fmt.Printf("Operation:  %s\n", out.Operation)
	}

	if out.Arcs != nil {
		fmt.Printf("\nArcs of state %d:\n", opts.state)
		for _, a := range out.Arcs {
			fmt.Printf("  %3d  %6d:%-6d  %8.4f  -> %d\n", a.Ordinal, a.ILabel, a.OLabel, a.Weight, a.NextState)
		}
	}
	if out.Walk != nil {
		fmt.Printf("\nWalk from %d:\n", v.Start)
		for i, s := range out.Walk.States {
			fmt.Printf("  %6d  %8.4f\n", s, out.Walk.Costs[i])
		}
	}
	if opts.export != "" {
		fmt.Printf("\nWrote %s\n", opts.export)
	}
	return nil
}

// #endregion detail-mode

// #region output

func rawOrNil(s string) json.RawMessage {
	if s == "" {
		return nil
	}
	return json.RawMessage(s)
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
