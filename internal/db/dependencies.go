package db

import "context"

type Client interface {
	Close() error
	InsertReport(ctx context.Context, report *Report) (int64, error)
	UpdateStatusIfPending(ctx context.Context, id int64, status Status, operatorID, operatorName, rejectionReason string) (int64, error)
	GetReport(ctx context.Context, id int64) (*Report, error)
	ListReportsByStatus(ctx context.Context, status Status) ([]*Report, error)
	ListReportsByReporter(ctx context.Context, reporterID string) ([]*Report, error)
	CountReportsByReporter(ctx context.Context, reporterID string, status Status) (int, error)
	TopReporters(ctx context.Context, status Status, limit int) ([]*ReporterScore, error)
}
