package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/submission-service/internal/models"
)

func sampleSubmissions() []*models.Submission {
	date := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	name := "report.pdf"
	return []*models.Submission{
		{
			ID:             1,
			OwnerUsername:  "alice",
			Title:          "Thesis draft",
			TargetDate:     &date,
			Status:         models.StatusSubmitted,
			AttachmentName: &name,
			CreatedAt:      time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:            2,
			OwnerUsername: "bob",
			Title:         "Lab results",
			Status:        models.StatusPending,
			CreatedAt:     time.Date(2026, 9, 2, 11, 0, 0, 0, time.UTC),
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleSubmissions()); err != nil {
		t.Fatalf("Failed to write csv: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected header + 2 rows, got %d", len(records))
	}

	if records[0][0] != "ID" || records[0][4] != "Status" {
		t.Errorf("Unexpected header: %v", records[0])
	}

	first := records[1]
	if first[0] != "1" || first[1] != "alice" || first[2] != "Thesis draft" {
		t.Errorf("Unexpected first row: %v", first)
	}
	if first[3] != "2026-09-15" {
		t.Errorf("Expected target date 2026-09-15, got %q", first[3])
	}
	if first[5] != "report.pdf" {
		t.Errorf("Expected attachment name, got %q", first[5])
	}

	second := records[2]
	if second[3] != "" || second[5] != "" {
		t.Errorf("Expected blank date and attachment for second row: %v", second)
	}
}

func TestReportRenderer_Render(t *testing.T) {
	var buf bytes.Buffer
	renderer := NewReportRenderer()

	if err := renderer.Render(&buf, sampleSubmissions()); err != nil {
		t.Fatalf("Failed to render report: %v", err)
	}

	workbook, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("Failed to open rendered workbook: %v", err)
	}
	defer workbook.Close()

	rows, err := workbook.GetRows(reportSheet)
	if err != nil {
		t.Fatalf("Failed to read sheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "ID" {
		t.Errorf("Unexpected header: %v", rows[0])
	}
	if rows[1][1] != "alice" || rows[2][1] != "bob" {
		t.Errorf("Unexpected owners: %v / %v", rows[1], rows[2])
	}
}

func TestReportRenderer_RenderToTempFile(t *testing.T) {
	renderer := NewReportRenderer()

	path, err := renderer.RenderToTempFile(sampleSubmissions()[0])
	if err != nil {
		t.Fatalf("Failed to render temp report: %v", err)
	}
	defer os.Remove(path)

	workbook, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("Failed to open temp report: %v", err)
	}
	defer workbook.Close()

	rows, err := workbook.GetRows(reportSheet)
	if err != nil {
		t.Fatalf("Failed to read sheet: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected header + 1 row, got %d", len(rows))
	}
}
