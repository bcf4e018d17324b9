// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package submission

import "fmt"

// Option is one entry of a closed, client-side option set.
type Option struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Helper string `json:"helper"`
}

// TagCategory is the tone marker attached to a submission.
type TagCategory string

const (
	TagSource     TagCategory = "source"
	TagEdge       TagCategory = "edge"
	TagConspiracy TagCategory = "conspiracy"
	TagDevotional TagCategory = "devotional"
	TagHistorical TagCategory = "historical"
)

// NoteDetail selects how exhaustive generated notes should be.
type NoteDetail string

const (
	DetailConcise  NoteDetail = "concise"
	DetailStandard NoteDetail = "standard"
	DetailDeep     NoteDetail = "deep"
)

// Defaults applied to a fresh draft.
const (
	DefaultTagCategory = TagSource
	DefaultNoteDetail  = DetailStandard
)

var tagOptions = []Option{
	{ID: string(TagSource), Label: "Source Content", Helper: "Primary trusted material."},
	{ID: string(TagEdge), Label: "Edge Content", Helper: "Handle with measured caution."},
	{ID: string(TagConspiracy), Label: "Conspiracy Watch", Helper: "Flag speculative claims."},
	{ID: string(TagDevotional), Label: "Devotional", Helper: "Pastoral tone."},
	{ID: string(TagHistorical), Label: "Historical Context", Helper: "Prioritise factual framing."},
}

var detailOptions = []Option{
	{ID: string(DetailConcise), Label: "Concise Bullets", Helper: "High-level takeaways only."},
	{ID: string(DetailStandard), Label: "Balanced Notes", Helper: "Blend detail and brevity."},
	{ID: string(DetailDeep), Label: "Deep Dive", Helper: "Exhaustive chapter analyses."},
}

// TagCategories returns the tag category option set in display order.
func TagCategories() []Option {
	return append([]Option(nil), tagOptions...)
}

// NoteDetails returns the note detail option set in display order.
func NoteDetails() []Option {
	return append([]Option(nil), detailOptions...)
}

func known(set []Option, id string) bool {
	for _, o := range set {
		if o.ID == id {
			return true
		}
	}
	return false
}

// ParseTagCategory validates s against the tag option set. Empty means unset.
func ParseTagCategory(s string) (TagCategory, error) {
	if s == "" || known(tagOptions, s) {
		return TagCategory(s), nil
	}
	return "", fmt.Errorf("tag category %q: %w", s, ErrUnknownOption)
}

// ParseNoteDetail validates s against the note detail option set. Empty means unset.
func ParseNoteDetail(s string) (NoteDetail, error) {
	if s == "" || known(detailOptions, s) {
		return NoteDetail(s), nil
	}
	return "", fmt.Errorf("note detail %q: %w", s, ErrUnknownOption)
}
