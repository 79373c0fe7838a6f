// Package imports runs the two-phase spreadsheet import. Inspect analyzes a
// file without touching business data; Commit applies reviewed decisions in
// one transaction.
package imports

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/JaimeStill/tally/pkg/dedupe"
	"github.com/JaimeStill/tally/pkg/mapping"
)

// SchemaStatus tells the caller where the mapping targets came from.
type SchemaStatus string

const (
	UsingExistingStandard SchemaStatus = "USING_EXISTING_STANDARD"
	ColdStartWillLearn    SchemaStatus = "COLD_START_WILL_LEARN"
)

// Action is a per-row duplicate decision.
type Action string

const (
	ActionInsert Action = "insert"
	ActionSkip   Action = "skip"
)

// DupDecision resolves one row from the review bucket.
type DupDecision struct {
	RowIndex int    `json:"rowIndex"`
	Action   Action `json:"action"`
}

// InspectCommand is a file to analyze for entity.
type InspectCommand struct {
	Entity      string
	Sheet       string
	Filename    string
	ContentType string
	Data        []byte
}

// DuplicatePreview is the capped duplicate report returned by Inspect.
type DuplicatePreview struct {
	AutoInsert      []dedupe.AutoInsert `json:"autoInsert"`
	Review          []dedupe.Review     `json:"review"`
	AutoInsertTotal int                 `json:"autoInsertTotal"`
	ReviewTotal     int                 `json:"reviewTotal"`
}

// InspectResult is the dry-run analysis of one file.
type InspectResult struct {
	ImportID         uuid.UUID          `json:"importId"`
	FileHash         string             `json:"fileHash"`
	Sheet            string             `json:"sheet"`
	Headers          []string           `json:"headers"`
	RowCount         int                `json:"rowCount"`
	SchemaStatus     SchemaStatus       `json:"schemaStatus"`
	ProfileVersion   int                `json:"profileVersion,omitempty"`
	Committed        bool               `json:"committed"`
	Mapping          []mapping.Proposal `json:"mapping"`
	SuggestedMapping []mapping.Column   `json:"suggestedMapping"`
	Duplicates       DuplicatePreview   `json:"duplicates"`
}

// CommitCommand carries the reviewed decisions for a file. Data may be
// omitted when ImportID names an inspected file with a stored copy.
type CommitCommand struct {
	Entity          string           `json:"entity"`
	ImportID        *uuid.UUID       `json:"importId,omitempty"`
	Sheet           string           `json:"sheet,omitempty"`
	Filename        string           `json:"filename,omitempty"`
	Data            []byte           `json:"-"`
	Mapping         []mapping.Column `json:"mapping,omitempty"`
	DupDecisions    []DupDecision    `json:"dupDecisions,omitempty"`
	AdoptAsStandard bool             `json:"adoptAsStandard"`
}

// CommitResult reports what a commit wrote.
type CommitResult struct {
	OK             bool      `json:"ok"`
	ImportID       uuid.UUID `json:"importId"`
	Inserted       int       `json:"inserted"`
	Skipped        int       `json:"skipped"`
	Total          int       `json:"total"`
	ProfileVersion int       `json:"profileVersion,omitempty"`
}

// decisions is the audit snapshot stored on the committed session.
type decisions struct {
	Mapping         []mapping.Column `json:"mapping"`
	DupDecisions    []DupDecision    `json:"dupDecisions"`
	AdoptAsStandard bool             `json:"adoptAsStandard"`
}

func (c CommitCommand) snapshot() (json.RawMessage, error) {
	d := decisions{
		Mapping:         c.Mapping,
		DupDecisions:    c.DupDecisions,
		AdoptAsStandard: c.AdoptAsStandard,
	}
	if d.Mapping == nil {
		d.Mapping = []mapping.Column{}
	}
	if d.DupDecisions == nil {
		d.DupDecisions = []DupDecision{}
	}
	return json.Marshal(d)
}
