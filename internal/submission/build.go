// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package submission

import "strings"

// Multipart field names understood by the ingest endpoint.
const (
	FieldFiles         = "files"
	FieldReferenceURLs = "reference_urls"
	FieldTagCategory   = "tag_category"
	FieldNoteDetail    = "note_detail"
	FieldProjectLabel  = "project_label"
)

// Payload is one outbound ingest request. Empty optional fields are omitted
// from the wire entirely so the backend can tell "not specified" from "empty".
type Payload struct {
	Files         []File
	ReferenceURLs string
	TagCategory   TagCategory
	NoteDetail    NoteDetail
	ProjectLabel  string
}

// Fields returns the optional text fields that will be sent, keyed by their
// multipart name. Absent keys are not sent.
func (p Payload) Fields() map[string]string {
	out := make(map[string]string, 4)
	if p.ReferenceURLs != "" {
		out[FieldReferenceURLs] = p.ReferenceURLs
	}
	if p.TagCategory != "" {
		out[FieldTagCategory] = string(p.TagCategory)
	}
	if p.NoteDetail != "" {
		out[FieldNoteDetail] = string(p.NoteDetail)
	}
	if p.ProjectLabel != "" {
		out[FieldProjectLabel] = p.ProjectLabel
	}
	return out
}

// Build turns d into a payload without mutating it.
//
// The URL block is forwarded verbatim when it has any non-blank content;
// splitting and validating individual URLs is left to the backend.
func Build(d *Draft) (Payload, error) {
	files := d.Files()
	urls := d.URLText()
	if len(files) == 0 && strings.TrimSpace(urls) == "" {
		return Payload{}, ErrEmptySubmission
	}

	tc, err := ParseTagCategory(string(d.TagCategory()))
	if err != nil {
		return Payload{}, err
	}
	nd, err := ParseNoteDetail(string(d.NoteDetail()))
	if err != nil {
		return Payload{}, err
	}

	p := Payload{
		Files:        files,
		TagCategory:  tc,
		NoteDetail:   nd,
		ProjectLabel: strings.TrimSpace(d.ProjectLabel()),
	}
	if strings.TrimSpace(urls) != "" {
		p.ReferenceURLs = urls
	}
	return p, nil
}
