package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iamwavecut/quickreport/internal/db"
)

const reportColumns = `id, reporter_id, reporter_name, reported_id, reported_name, reason, details,
	created_at, status, operator_id, operator_name, rejection_reason`

type reportRow struct {
	ID              int64          `db:"id"`
	ReporterID      string         `db:"reporter_id"`
	ReporterName    string         `db:"reporter_name"`
	ReportedID      string         `db:"reported_id"`
	ReportedName    string         `db:"reported_name"`
	Reason          string         `db:"reason"`
	Details         string         `db:"details"`
	CreatedAt       int64          `db:"created_at"`
	Status          string         `db:"status"`
	OperatorID      sql.NullString `db:"operator_id"`
	OperatorName    sql.NullString `db:"operator_name"`
	RejectionReason sql.NullString `db:"rejection_reason"`
}

func (r *reportRow) toReport() *db.Report {
	return &db.Report{
		ID:              r.ID,
		ReporterID:      r.ReporterID,
		ReporterName:    r.ReporterName,
		ReportedID:      r.ReportedID,
		ReportedName:    r.ReportedName,
		Reason:          r.Reason,
		Details:         r.Details,
		CreatedAt:       time.UnixMilli(r.CreatedAt),
		Status:          db.Status(r.Status),
		OperatorID:      r.OperatorID.String,
		OperatorName:    r.OperatorName.String,
		RejectionReason: r.RejectionReason.String,
	}
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (c *sqliteClient) InsertReport(ctx context.Context, report *db.Report) (int64, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO reports (reporter_id, reporter_name, reported_id, reported_name, reason, details, created_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := c.db.ExecContext(ctx, query,
		report.ReporterID,
		report.ReporterName,
		report.ReportedID,
		report.ReportedName,
		report.Reason,
		report.Details,
		report.CreatedAt.UnixMilli(),
		string(report.Status),
	)
	if err != nil {
		return db.UnsetID, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return db.UnsetID, err
	}
	return id, nil
}

func (c *sqliteClient) UpdateStatusIfPending(ctx context.Context, id int64, status db.Status, operatorID, operatorName, rejectionReason string) (int64, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		UPDATE reports
		SET status = ?,
			operator_id = ?,
			operator_name = ?,
			rejection_reason = ?
		WHERE id = ? AND status = ?
	`
	result, err := c.db.ExecContext(ctx, query,
		string(status),
		nullable(operatorID),
		nullable(operatorName),
		nullable(rejectionReason),
		id,
		string(db.StatusPending),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (c *sqliteClient) GetReport(ctx context.Context, id int64) (*db.Report, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var row reportRow
	err := c.db.GetContext(ctx, &row, `SELECT `+reportColumns+` FROM reports WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.toReport(), nil
}

func (c *sqliteClient) ListReportsByStatus(ctx context.Context, status db.Status) ([]*db.Report, error) {
	return c.selectReports(ctx, `
		SELECT `+reportColumns+` FROM reports
		WHERE status = ?
		ORDER BY created_at DESC, id DESC
	`, string(status))
}

func (c *sqliteClient) ListReportsByReporter(ctx context.Context, reporterID string) ([]*db.Report, error) {
	return c.selectReports(ctx, `
		SELECT `+reportColumns+` FROM reports
		WHERE reporter_id = ?
		ORDER BY created_at DESC, id DESC
	`, reporterID)
}

func (c *sqliteClient) selectReports(ctx context.Context, query string, args ...any) ([]*db.Report, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var rows []*reportRow
	if err := c.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	reports := make([]*db.Report, 0, len(rows))
	for _, row := range rows {
		reports = append(reports, row.toReport())
	}
	return reports, nil
}

func (c *sqliteClient) CountReportsByReporter(ctx context.Context, reporterID string, status db.Status) (int, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var count int
	err := c.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM reports WHERE reporter_id = ? AND status = ?`, reporterID, string(status))
	return count, err
}

func (c *sqliteClient) TopReporters(ctx context.Context, status db.Status, limit int) ([]*db.ReporterScore, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var scores []*db.ReporterScore
	err := c.db.SelectContext(ctx, &scores, `
		SELECT reporter_name, COUNT(*) AS count
		FROM reports
		WHERE status = ?
		GROUP BY reporter_name
		ORDER BY count DESC, reporter_name ASC
		LIMIT ?
	`, string(status), limit)
	return scores, err
}
