package document

import "strings"

// Type is the kind of acceptance report. It is fixed at creation and
// selects the transition table.
type Type string

const (
	TypeBAPB Type = "BAPB" // Goods-receipt acceptance report
	TypeBAPP Type = "BAPP" // Work-acceptance report
)

// AllTypes lists every document type
var AllTypes = []Type{TypeBAPB, TypeBAPP}

// IsValid checks if the type is a known document type
func (t Type) IsValid() bool {
	return t == TypeBAPB || t == TypeBAPP
}

// String returns the string representation of Type
func (t Type) String() string {
	return string(t)
}

// ParseType parses a document type, accepting the lower-case form used in URLs
func ParseType(s string) (Type, bool) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	return t, t.IsValid()
}

// Status is a pipeline state
type Status string

const (
	StatusDraft           Status = "draft"
	StatusSubmitted       Status = "submitted"
	StatusPICChecked      Status = "pic_checked"  // BAPB only
	StatusReviewedPIC     Status = "reviewed_pic" // BAPP only
	StatusApproved        Status = "approved"     // BAPB terminal
	StatusApprovedDireksi Status = "approved_direksi"
	StatusRejected        Status = "rejected"
)

// AllStatuses lists the union of states of both pipelines
var AllStatuses = []Status{
	StatusDraft,
	StatusSubmitted,
	StatusPICChecked,
	StatusReviewedPIC,
	StatusApproved,
	StatusApprovedDireksi,
	StatusRejected,
}

// IsValid checks if the status is a known pipeline state
func (s Status) IsValid() bool {
	for _, st := range AllStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true when no further transition is accepted
func (s Status) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusApprovedDireksi, StatusRejected:
		return true
	}
	return false
}

// BelongsTo reports whether the status is part of the pipeline of t
func (s Status) BelongsTo(t Type) bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusRejected:
		return true
	case StatusPICChecked, StatusApproved:
		return t == TypeBAPB
	case StatusReviewedPIC, StatusApprovedDireksi:
		return t == TypeBAPP
	}
	return false
}

// ParseStatuses parses a list of status names, skipping blanks.
// The second return value is the first unknown name, if any.
func ParseStatuses(values []string) ([]Status, string) {
	out := make([]Status, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			s := Status(part)
			if !s.IsValid() {
				return nil, part
			}
			out = append(out, s)
		}
	}
	return out, ""
}
