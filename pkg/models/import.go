package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ImportRow is one parsed input row destined for a collection
type ImportRow struct {
	Title        string         `json:"title" validate:"required"`
	Composer     string         `json:"composer" validate:"required"`
	Author       string         `json:"author,omitempty"`
	Category     string         `json:"category,omitempty"`
	Voicing      string         `json:"voicing,omitempty"`
	Key          string         `json:"key,omitempty"`
	LyricsSource string         `json:"lyricsSource,omitempty"`
	Number       SequenceNumber `json:"number,omitempty"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field
func (r ImportRow) Trimmed() ImportRow {
	return ImportRow{
		Title:        strings.TrimSpace(r.Title),
		Composer:     strings.TrimSpace(r.Composer),
		Author:       strings.TrimSpace(r.Author),
		Category:     strings.TrimSpace(r.Category),
		Voicing:      strings.TrimSpace(r.Voicing),
		Key:          strings.TrimSpace(r.Key),
		LyricsSource: strings.TrimSpace(r.LyricsSource),
		Number:       SequenceNumber(strings.TrimSpace(string(r.Number))),
	}
}

// SequenceNumber is a row's number in its collection. It accepts JSON strings and numbers.
type SequenceNumber string

func (n *SequenceNumber) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*n = SequenceNumber(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*n = SequenceNumber(num.String())
	return nil
}

// MaxSequenceDigits bounds the numbers that take part in auto numbering
const MaxSequenceDigits = 18

// Int returns the numeric value when the number is a plain run of at most
// MaxSequenceDigits digits. Signs and longer numbers are stored verbatim only.
func (n SequenceNumber) Int() (int, bool) {
	if len(n) == 0 || len(n) > MaxSequenceDigits {
		return 0, false
	}
	for _, r := range n {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	value, err := strconv.Atoi(string(n))
	if err != nil {
		return 0, false
	}
	return value, true
}

// ImportRequest is the body of an import submission
type ImportRequest struct {
	Rows        []ImportRow                `json:"rows" validate:"required,min=1"`
	Resolutions map[string]ResolutionInput `json:"resolutions,omitempty"`
}

// SubmitImportResponse is returned with 202 Accepted
type SubmitImportResponse struct {
	JobID string `json:"jobId"`
}
