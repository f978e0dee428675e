// Package stats answers read-only questions about reports: per-submitter
// history, status queues and leaderboards.
package stats

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/iamwavecut/quickreport/internal/db"
)

const (
	missingName  = "N/A"
	missingCount = "0"
)

type Reader interface {
	ListReportsByStatus(ctx context.Context, status db.Status) ([]*db.Report, error)
	ListReportsByReporter(ctx context.Context, reporterID string) ([]*db.Report, error)
	CountReportsByReporter(ctx context.Context, reporterID string, status db.Status) (int, error)
	TopReporters(ctx context.Context, status db.Status, limit int) ([]*db.ReporterScore, error)
}

// Entry is one leaderboard row.
type Entry struct {
	Name  string
	Count int
}

type Service struct {
	reader Reader
}

func NewService(reader Reader) *Service {
	return &Service{reader: reader}
}

func (s *Service) ListBySubmitter(ctx context.Context, submitterID string) ([]*db.Report, error) {
	reports, err := s.reader.ListReportsByReporter(ctx, submitterID)
	return reports, errors.WithMessagef(err, "list reports of %s", submitterID)
}

func (s *Service) ListByStatus(ctx context.Context, status db.Status) ([]*db.Report, error) {
	if !status.Valid() {
		return nil, errors.Errorf("unknown status %q", status)
	}
	reports, err := s.reader.ListReportsByStatus(ctx, status)
	return reports, errors.WithMessagef(err, "list %s reports", status)
}

func (s *Service) CountBySubmitter(ctx context.Context, submitterID string, status db.Status) (int, error) {
	count, err := s.reader.CountReportsByReporter(ctx, submitterID, status)
	return count, errors.WithMessagef(err, "count %s reports of %s", status, submitterID)
}

// TopSubmitters ranks submitters by report count; equal counts are ordered
// by name.
func (s *Service) TopSubmitters(ctx context.Context, status db.Status, limit int) ([]Entry, error) {
	if limit < 1 {
		return nil, nil
	}
	scores, err := s.reader.TopReporters(ctx, status, limit)
	if err != nil {
		return nil, errors.WithMessagef(err, "top %s submitters", status)
	}
	entries := make([]Entry, 0, len(scores))
	for _, score := range scores {
		entries = append(entries, Entry{Name: score.ReporterName, Count: score.Count})
	}
	return entries, nil
}

// Page returns the 1-based page of reports and the total page count.
// Out of range pages are clamped.
func Page(reports []*db.Report, page int, perPage int) ([]*db.Report, int) {
	if perPage < 1 || len(reports) == 0 {
		return nil, 0
	}
	total := (len(reports) + perPage - 1) / perPage
	page = min(max(page, 1), total)

	from := (page - 1) * perPage
	to := min(from+perPage, len(reports))
	return reports[from:to], total
}

var leaderboardParams = []struct {
	prefix string
	status db.Status
	name   bool
}{
	{"top_accepted_name_", db.StatusAccepted, true},
	{"top_accepted_count_", db.StatusAccepted, false},
	{"top_rejected_name_", db.StatusRejected, true},
	{"top_rejected_count_", db.StatusRejected, false},
}

// Placeholder resolves a display placeholder for submitterID. The second
// result is false when param is not a known placeholder.
func (s *Service) Placeholder(ctx context.Context, submitterID string, param string) (string, bool) {
	param = strings.ToLower(strings.TrimSpace(param))

	if status, ok := map[string]db.Status{
		"accepted": db.StatusAccepted,
		"rejected": db.StatusRejected,
		"pending":  db.StatusPending,
	}[param]; ok {
		count, err := s.CountBySubmitter(ctx, submitterID, status)
		if err != nil {
			return missingCount, true
		}
		return strconv.Itoa(count), true
	}

	for _, p := range leaderboardParams {
		if !strings.HasPrefix(param, p.prefix) {
			continue
		}
		rank, err := strconv.Atoi(param[len(p.prefix):])
		if err != nil || rank < 1 {
			return "", false
		}
		entries, err := s.TopSubmitters(ctx, p.status, rank)
		if err != nil || len(entries) < rank {
			if p.name {
				return missingName, true
			}
			return missingCount, true
		}
		if p.name {
			return entries[rank-1].Name, true
		}
		return strconv.Itoa(entries[rank-1].Count), true
	}
	return "", false
}
