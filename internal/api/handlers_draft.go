// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/intake/internal/session"
	"github.com/ManuGH/intake/internal/submission"
)

// Multipart field names of POST /api/draft/files.
const (
	formFiles        = "files"
	formLastModified = "last_modified"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

type optionsResponse struct {
	TagCategories      []submission.Option `json:"tag_categories"`
	NoteDetails        []submission.Option `json:"note_details"`
	DefaultTagCategory string              `json:"default_tag_category"`
	DefaultNoteDetail  string              `json:"default_note_detail"`
}

func (s *Server) handleOptions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, optionsResponse{
		TagCategories:      submission.TagCategories(),
		NoteDetails:        submission.NoteDetails(),
		DefaultTagCategory: string(submission.DefaultTagCategory),
		DefaultNoteDetail:  string(submission.DefaultNoteDetail),
	})
}

func (s *Server) handleGetDraft(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.dash.Draft())
}

func (s *Server) handleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	var u session.DraftUpdate
	if err := decodeBody(w, r, &u); err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.dash.UpdateDraft(u)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type addFilesResponse struct {
	IDs   []string          `json:"ids"`
	Draft session.DraftView `json:"draft"`
}

// handleAddFiles accepts one or more "files" parts. Optional "last_modified"
// values (Unix milliseconds) pair with the files by position.
func (s *Server) handleAddFiles(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if !errors.As(err, &tooBig) {
			err = errors.Join(ErrBadRequest, err)
		}
		s.writeError(w, r, err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File[formFiles]
	if len(headers) == 0 {
		s.writeError(w, r, fmt.Errorf("%w: no %q parts", ErrBadRequest, formFiles))
		return
	}
	stamps := r.MultipartForm.Value[formLastModified]

	files := make([]submission.File, 0, len(headers))
	for i, fh := range headers {
		f, err := readPart(fh, modTime(stamps, i))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		files = append(files, f)
	}

	ids, err := s.dash.AddFiles(files)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, addFilesResponse{IDs: ids, Draft: s.dash.Draft()})
}

func modTime(stamps []string, i int) time.Time {
	if i < len(stamps) {
		if ms, err := strconv.ParseInt(stamps[i], 10, 64); err == nil && ms > 0 {
			return time.UnixMilli(ms)
		}
	}
	return time.Now()
}

func readPart(fh *multipart.FileHeader, mod time.Time) (submission.File, error) {
	src, err := fh.Open()
	if err != nil {
		return submission.File{}, fmt.Errorf("open part %q: %w", fh.Filename, err)
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		return submission.File{}, fmt.Errorf("read part %q: %w", fh.Filename, err)
	}
	return submission.File{Name: fh.Filename, ModTime: mod, Content: content}, nil
}

func (s *Server) handleRemoveFile(w http.ResponseWriter, r *http.Request) {
	if err := s.dash.RemoveFile(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.dash.Draft())
}

func (s *Server) handleResetDraft(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.dash.ResetDraft())
}
