// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"fmt"
	"time"

	xglog "github.com/ManuGH/intake/internal/log"
	"github.com/ManuGH/intake/internal/metrics"
	"github.com/ManuGH/intake/internal/submission"
)

// DraftEntry describes one selected file without its content.
type DraftEntry struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// DraftView is the renderable state of the draft.
type DraftView struct {
	Entries      []DraftEntry `json:"entries"`
	URLText      string       `json:"url_text"`
	TagCategory  string       `json:"tag_category"`
	NoteDetail   string       `json:"note_detail"`
	ProjectLabel string       `json:"project_label"`
	TotalBytes   int64        `json:"total_bytes"`
	Submitting   bool         `json:"submitting"`
	Message      *Message     `json:"message,omitempty"`
}

// DraftUpdate changes the non-file fields of the draft. Nil fields are left alone.
type DraftUpdate struct {
	URLText      *string `json:"url_text"`
	TagCategory  *string `json:"tag_category"`
	NoteDetail   *string `json:"note_detail"`
	ProjectLabel *string `json:"project_label"`
}

// Caller must hold mu.
func (s *Session) draftView() DraftView {
	entries := s.draft.Entries()
	out := DraftView{
		Entries:      make([]DraftEntry, 0, len(entries)),
		URLText:      s.draft.URLText(),
		TagCategory:  string(s.draft.TagCategory()),
		NoteDetail:   string(s.draft.NoteDetail()),
		ProjectLabel: s.draft.ProjectLabel(),
		TotalBytes:   s.draft.TotalBytes(),
		Submitting:   s.submitting,
		Message:      s.message,
	}
	for _, e := range entries {
		out.Entries = append(out.Entries, DraftEntry{
			ID:       e.ID,
			Name:     e.File.Name,
			Size:     e.File.Size(),
			Modified: e.File.ModTime,
		})
	}
	return out
}

// Draft returns the current draft.
func (s *Session) Draft() DraftView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draftView()
}

// AddFiles appends files to the draft and returns their entry ids. Nothing is
// added when the draft would exceed its byte budget.
func (s *Session) AddFiles(files []submission.File) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := s.draft.TotalBytes()
	for _, f := range files {
		total += f.Size()
	}
	if total > s.opts.MaxDraftBytes {
		return nil, fmt.Errorf("%w: %d bytes > %d", ErrDraftTooLarge, total, s.opts.MaxDraftBytes)
	}

	ids := make([]string, 0, len(files))
	for _, f := range files {
		id := s.draft.AddFile(f)
		ids = append(ids, id)
		s.logger.Debug().Str(xglog.FieldEvent, "draft.file_added").Str(xglog.FieldEntryID, id).Int64("size", f.Size()).Msg("file added to draft")
	}
	s.message = nil
	metrics.SetDraftFiles(len(s.draft.Entries()))
	return ids, nil
}

// RemoveFile drops a draft entry.
func (s *Session) RemoveFile(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.draft.RemoveFile(id) {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	s.message = nil
	metrics.SetDraftFiles(len(s.draft.Entries()))
	return nil
}

// UpdateDraft applies u. Classification values are validated first, so an
// invalid update changes nothing.
func (s *Session) UpdateDraft(u DraftUpdate) (DraftView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.TagCategory != nil {
		if _, err := submission.ParseTagCategory(*u.TagCategory); err != nil {
			return s.draftView(), err
		}
	}
	if u.NoteDetail != nil {
		if _, err := submission.ParseNoteDetail(*u.NoteDetail); err != nil {
			return s.draftView(), err
		}
	}

	if u.URLText != nil {
		s.draft.SetURLText(*u.URLText)
	}
	if u.TagCategory != nil {
		_ = s.draft.SetTagCategory(*u.TagCategory)
	}
	if u.NoteDetail != nil {
		_ = s.draft.SetNoteDetail(*u.NoteDetail)
	}
	if u.ProjectLabel != nil {
		s.draft.SetProjectLabel(*u.ProjectLabel)
	}
	return s.draftView(), nil
}

// ResetDraft clears files, URL text and the status message.
func (s *Session) ResetDraft() DraftView {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.draft.Reset()
	s.message = nil
	metrics.SetDraftFiles(0)
	return s.draftView()
}
