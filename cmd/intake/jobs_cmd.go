// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ManuGH/intake/internal/daemon"
	"github.com/ManuGH/intake/internal/pipeline"
)

// msgNoJobs is printed for an empty registry.
const msgNoJobs = "No jobs registered yet."

// runJobsCLI prints the backend job registry once, newest first as the backend orders it.
func runJobsCLI(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("intake jobs", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgFlag := fs.String("config", "", "path to config file (YAML)")
	asJSON := fs.Bool("json", false, "print the raw registry as JSON")
	timeout := fs.Duration("timeout", 10*time.Second, "request timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(*cfgFlag)
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return 1
	}
	client, err := daemon.NewBackend(cfg.Backend)
	if err != nil {
		fmt.Fprintf(stderr, "Backend error: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	snap, err := client.ListJobs(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load jobs: %v\n", err)
		return 1
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			fmt.Fprintf(stderr, "Encode error: %v\n", err)
			return 1
		}
		return 0
	}
	printJobs(stdout, snap)
	return 0
}

func printJobs(w io.Writer, snap *pipeline.Snapshot) {
	if snap.Len() == 0 {
		fmt.Fprintln(w, msgNoJobs)
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "JOB\tPROJECT\tSTATUS\tCREATED\tSTAGES\tERRORS")
	for _, j := range snap.Jobs {
		created := "-"
		if !j.CreatedAt.IsZero() {
			created = j.CreatedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n", j.JobID, j.ProjectID, j.Status, created, stageSummary(j.Stages), len(j.Errors))
	}
	_ = tw.Flush()

	for _, j := range snap.Jobs {
		for _, e := range j.Errors {
			fmt.Fprintf(w, "%s: %s\n", j.JobID, e)
		}
	}
}

func stageSummary(stages []pipeline.StageSnapshot) string {
	if len(stages) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(stages))
	for _, st := range stages {
		parts = append(parts, string(st.Stage)+":"+string(st.Status))
	}
	return strings.Join(parts, ",")
}
