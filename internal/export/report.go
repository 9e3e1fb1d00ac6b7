package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/submission-service/internal/models"
)

const reportSheet = "Submissions"

// ReportRenderer produces spreadsheet report artifacts from submissions.
// The notification dispatcher uses it best-effort: a rendering failure never
// blocks a delivery.
type ReportRenderer struct{}

func NewReportRenderer() *ReportRenderer {
	return &ReportRenderer{}
}

// Render writes a submission report workbook to w.
func (r *ReportRenderer) Render(w io.Writer, submissions []*models.Submission) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(reportSheet)
	if err != nil {
		return fmt.Errorf("failed to create report sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}

	header := []interface{}{"ID", "Owner", "Title", "Target Date", "Status", "Attachment", "Created At"}
	if err := f.SetSheetRow(reportSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}

	for i, s := range submissions {
		row := csvRow(s)
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		cell := "A" + strconv.Itoa(i+2)
		if err := f.SetSheetRow(reportSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write report row: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// RenderToTempFile renders a single-record report into a temp file and
// returns its path. The caller removes the file after use.
func (r *ReportRenderer) RenderToTempFile(submission *models.Submission) (string, error) {
	f, err := os.CreateTemp("", fmt.Sprintf("submission_%d_*.xlsx", submission.ID))
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}

	if err := r.Render(f, []*models.Submission{submission}); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to close report file: %w", err)
	}

	return filepath.Clean(f.Name()), nil
}
