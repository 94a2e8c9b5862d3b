// Package export renders the auto-check ledger as a spreadsheet and stores it
// in object storage for moderators to download.
package export

import (
	"context"
	"fmt"
	"time"

	"modcheck/backend/internal/config"
	"modcheck/backend/internal/models"

	"github.com/xuri/excelize/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var header = []interface{}{
	"id", "detail_id", "detail_note", "detail_label", "detail_status", "detail_resolved", "score", "ignore",
}

type Lister interface {
	AllAutoCheckRecords(ctx context.Context) ([]models.AutoCheckRecord, error)
}

type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Result describes an uploaded export.
type Result struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Rows int    `json:"rows"`
}

type Exporter struct {
	Records  Lister
	Uploader Uploader
	Now      func() time.Time
}

func NewExporter(records Lister, uploader Uploader) *Exporter {
	return &Exporter{Records: records, Uploader: uploader, Now: time.Now}
}

// Export writes the whole ledger to a new workbook and uploads it.
func (e *Exporter) Export(ctx context.Context) (*Result, error) {
	records, err := e.Records.AllAutoCheckRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	f, err := Workbook(records)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render workbook: %w", err)
	}

	key := FileName(e.Now())
	url, err := e.Uploader.Upload(ctx, key, buf.Bytes(), xlsxContentType)
	if err != nil {
		return nil, fmt.Errorf("upload export: %w", err)
	}
	return &Result{Key: key, URL: url, Rows: len(records)}, nil
}

// FileName is the object key of an export made at t.
func FileName(t time.Time) string {
	return config.ExportFilePrefix + t.Format(config.ExportTimeLayout) + ".xlsx"
}

// Row flattens one ledger record into spreadsheet cells.
func Row(rec models.AutoCheckRecord) []interface{} {
	d := rec.Detail.Data()
	return []interface{}{
		rec.ID,
		d.ReportID,
		d.NoteText,
		d.Label,
		d.DerivedStatus.String(),
		yesNo(d.Resolved),
		rec.Score,
		yesNo(rec.Ignore),
	}
}

// Workbook builds a single-sheet workbook of the given records.
func Workbook(records []models.AutoCheckRecord) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := config.ExportSheetName
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		f.Close()
		return nil, err
	}

	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		f.Close()
		return nil, err
	}
	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		row := Row(rec)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
