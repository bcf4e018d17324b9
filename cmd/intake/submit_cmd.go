// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ManuGH/intake/internal/daemon"
	"github.com/ManuGH/intake/internal/submission"
)

// stringList collects a repeatable flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// runSubmitCLI sends files and reference URLs to the backend once, without the daemon.
func runSubmitCLI(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("intake submit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: intake submit [flags] [file ...]")
		fs.PrintDefaults()
	}
	var urls stringList
	fs.Var(&urls, "url", "reference URL (repeatable)")
	cfgFlag := fs.String("config", "", "path to config file (YAML)")
	tag := fs.String("tag", string(submission.DefaultTagCategory), "tag category")
	detail := fs.String("detail", string(submission.DefaultNoteDetail), "note detail")
	label := fs.String("label", "", "project label")
	timeout := fs.Duration("timeout", 10*time.Minute, "upload timeout, 0 for none")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	draft := submission.NewDraft()
	if err := draft.SetTagCategory(*tag); err != nil {
		fmt.Fprintf(stderr, "Invalid -tag: %v\n", err)
		return 2
	}
	if err := draft.SetNoteDetail(*detail); err != nil {
		fmt.Fprintf(stderr, "Invalid -detail: %v\n", err)
		return 2
	}
	draft.SetProjectLabel(*label)
	draft.SetURLText(strings.Join(urls, "\n"))

	for _, path := range fs.Args() {
		f, err := readLocalFile(path)
		if err != nil {
			fmt.Fprintf(stderr, "Cannot read %s: %v\n", path, err)
			return 1
		}
		draft.AddFile(f)
	}

	payload, err := submission.Build(draft)
	if err != nil {
		if errors.Is(err, submission.ErrEmptySubmission) {
			fmt.Fprintln(stderr, "Add at least one file or URL before submitting.")
			return 2
		}
		fmt.Fprintf(stderr, "Invalid submission: %v\n", err)
		return 2
	}

	cfg, err := loadConfig(*cfgFlag)
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return 1
	}
	cfg.Backend.SubmitTimeout = *timeout
	client, err := daemon.NewBackend(cfg.Backend)
	if err != nil {
		fmt.Fprintf(stderr, "Backend error: %v\n", err)
		return 1
	}

	res, err := client.Submit(context.Background(), payload)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to queue ingestion: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Queued job %s for project %s.\n", res.JobID, res.ProjectSlug)
	fmt.Fprintf(stdout, "project_id=%s\n", res.ProjectID)
	return 0
}

func readLocalFile(path string) (submission.File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return submission.File{}, err
	}
	if info.IsDir() {
		return submission.File{}, fmt.Errorf("%s is a directory", path)
	}
	// #nosec G304 -- paths come from the operator's command line
	content, err := os.ReadFile(path)
	if err != nil {
		return submission.File{}, err
	}
	return submission.File{Name: filepath.Base(path), ModTime: info.ModTime(), Content: content}, nil
}
