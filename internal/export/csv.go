package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/SAP-F-2025/submission-service/internal/models"
)

var csvHeader = []string{"ID", "Owner", "Title", "Target Date", "Status", "Attachment", "Created At"}

// WriteCSV renders the submission listing as CSV.
func WriteCSV(w io.Writer, submissions []*models.Submission) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, s := range submissions {
		if err := writer.Write(csvRow(s)); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func csvRow(s *models.Submission) []string {
	targetDate := ""
	if s.TargetDate != nil {
		targetDate = s.TargetDate.Format("2006-01-02")
	}
	attachment := ""
	if s.AttachmentName != nil {
		attachment = *s.AttachmentName
	}
	return []string{
		strconv.FormatUint(uint64(s.ID), 10),
		s.OwnerUsername,
		s.Title,
		targetDate,
		string(s.Status),
		attachment,
		s.CreatedAt.Format(time.RFC3339),
	}
}
