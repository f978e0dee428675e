package db

import (
	"strings"
	"time"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED"
	StatusRejected Status = "REJECTED"
)

type (
	// Report is a single flagging event filed by one user against another.
	Report struct {
		ID              int64
		ReporterID      string
		ReporterName    string
		ReportedID      string
		ReportedName    string
		Reason          string
		Details         string
		CreatedAt       time.Time
		Status          Status
		OperatorID      string
		OperatorName    string
		RejectionReason string
	}

	ReporterScore struct {
		ReporterName string `db:"reporter_name"`
		Count        int    `db:"count"`
	}
)

// UnsetID marks a report that has not been persisted yet.
const UnsetID int64 = -1

func (s Status) IsTerminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

func (s Status) Valid() bool {
	return s == StatusPending || s.IsTerminal()
}

// DisplayName returns the human form, e.g. "Accepted".
func (s Status) DisplayName() string {
	if s == "" {
		return ""
	}
	lower := strings.ToLower(string(s))
	return strings.ToUpper(lower[:1]) + lower[1:]
}

// ParseStatus accepts any letter case.
func ParseStatus(s string) (Status, bool) {
	status := Status(strings.ToUpper(strings.TrimSpace(s)))
	return status, status.Valid()
}

func (r *Report) IsPending() bool {
	return r != nil && r.Status == StatusPending
}
