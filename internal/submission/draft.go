// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package submission

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// File is a named binary blob selected by the operator.
type File struct {
	Name    string
	ModTime time.Time
	Content []byte
}

// Size returns the content length in bytes.
func (f File) Size() int64 { return int64(len(f.Content)) }

// Entry pairs a file with the local key used to list and remove it before it
// has any backend identity.
type Entry struct {
	ID   string
	File File
}

// Draft accumulates an unsent submission. It is not safe for concurrent use;
// the owning session serialises access.
type Draft struct {
	entries      []Entry
	urlText      string
	tagCategory  TagCategory
	noteDetail   NoteDetail
	projectLabel string
}

// NewDraft returns a draft with no inputs and the default classification.
func NewDraft() *Draft {
	return &Draft{tagCategory: DefaultTagCategory, noteDetail: DefaultNoteDetail}
}

func newEntryID(f File) string {
	return fmt.Sprintf("%s-%d-%s", f.Name, f.ModTime.UnixMilli(), uuid.NewString())
}

// AddFile appends f and returns its generated entry id.
func (d *Draft) AddFile(f File) string {
	id := newEntryID(f)
	d.entries = append(d.entries, Entry{ID: id, File: f})
	return id
}

// RemoveFile drops the entry with the given id and reports whether it existed.
func (d *Draft) RemoveFile(id string) bool {
	for i, e := range d.entries {
		if e.ID == id {
			d.entries = append(d.entries[:i], d.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Entries returns the draft entries in insertion order.
func (d *Draft) Entries() []Entry {
	return append([]Entry(nil), d.entries...)
}

// Files returns the selected files in insertion order.
func (d *Draft) Files() []File {
	out := make([]File, 0, len(d.entries))
	for _, e := range d.entries {
		out = append(out, e.File)
	}
	return out
}

// TotalBytes sums the size of all selected files.
func (d *Draft) TotalBytes() int64 {
	var n int64
	for _, e := range d.entries {
		n += e.File.Size()
	}
	return n
}

// URLText returns the raw reference URL block.
func (d *Draft) URLText() string { return d.urlText }

// SetURLText replaces the raw reference URL block.
func (d *Draft) SetURLText(s string) { d.urlText = s }

// TagCategory returns the selected tag category, empty when unset.
func (d *Draft) TagCategory() TagCategory { return d.tagCategory }

// SetTagCategory validates and stores the tag category.
func (d *Draft) SetTagCategory(s string) error {
	tc, err := ParseTagCategory(s)
	if err != nil {
		return err
	}
	d.tagCategory = tc
	return nil
}

// NoteDetail returns the selected note detail, empty when unset.
func (d *Draft) NoteDetail() NoteDetail { return d.noteDetail }

// SetNoteDetail validates and stores the note detail.
func (d *Draft) SetNoteDetail(s string) error {
	nd, err := ParseNoteDetail(s)
	if err != nil {
		return err
	}
	d.noteDetail = nd
	return nil
}

// ProjectLabel returns the raw project label.
func (d *Draft) ProjectLabel() string { return d.projectLabel }

// SetProjectLabel stores the project label as typed.
func (d *Draft) SetProjectLabel(s string) { d.projectLabel = s }

// Reset drops the files and URL text. Classification and label survive a
// reset so several items can be queued under one setting.
func (d *Draft) Reset() {
	d.entries = nil
	d.urlText = ""
}
