package models

import "time"

// ExportType identifies the report being generated.
type ExportType string

const (
	ExportAttendanceLog   ExportType = "attendance_log"
	ExportPaymentsSummary ExportType = "payments_summary"
)

// Valid returns true when the export type is supported.
func (t ExportType) Valid() bool {
	return t == ExportAttendanceLog || t == ExportPaymentsSummary
}

// ExportFormat is the requested output encoding.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatPDF  ExportFormat = "pdf"
	ExportFormatXLSX ExportFormat = "xlsx"
)

// Valid returns true when the format is supported.
func (f ExportFormat) Valid() bool {
	return f == ExportFormatCSV || f == ExportFormatPDF || f == ExportFormatXLSX
}

// ExportStatus tracks the async job lifecycle.
type ExportStatus string

const (
	ExportStatusQueued  ExportStatus = "queued"
	ExportStatusRunning ExportStatus = "running"
	ExportStatusDone    ExportStatus = "done"
	ExportStatusFailed  ExportStatus = "failed"
)

// ExportJob is one queued report generation request.
type ExportJob struct {
	ID         string       `db:"id" json:"id"`
	Type       ExportType   `db:"type" json:"type"`
	Format     ExportFormat `db:"format" json:"format"`
	Month      time.Time    `db:"month" json:"month"`
	Status     ExportStatus `db:"status" json:"status"`
	FilePath   *string      `db:"file_path" json:"-"`
	ErrorMsg   *string      `db:"error_msg" json:"error,omitempty"`
	CreatedBy  string       `db:"created_by" json:"created_by"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
	FinishedAt *time.Time   `db:"finished_at" json:"finished_at,omitempty"`
}
