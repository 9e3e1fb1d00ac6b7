package notifier

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/SAP-F-2025/submission-service/internal/models"
)

var newSubmissionTemplate = template.Must(template.New("new_submission").Parse(`
<html>
  <body>
    <p>Hi Reviewer,</p>
    <p>A new submission has arrived:</p>
    <ul>
      <li><strong>Owner:</strong> {{.Submission.OwnerUsername}}</li>
      <li><strong>Title:</strong> {{.Submission.Title}}</li>
      {{if .Submission.TargetDate}}<li><strong>Target date:</strong> {{.Submission.TargetDate.Format "2006-01-02"}}</li>{{end}}
      <li><strong>Status:</strong> {{.Submission.Status}}</li>
    </ul>
    <p>Open the dashboard to review and take action.</p>
  </body>
</html>
`))

var statusChangeTemplate = template.Must(template.New("status_change").Parse(`
<html>
  <body>
    <p>Hi {{.Submission.OwnerUsername}},</p>
    <p>Your submission "<strong>{{.Submission.Title}}</strong>" status has changed.</p>
    <p><strong>From:</strong> {{.OldStatus}} &nbsp;&nbsp; <strong>To:</strong> {{.NewStatus}}</p>
    {{if .Submission.TargetDate}}<p>Target date: {{.Submission.TargetDate.Format "2006-01-02"}}</p>{{end}}
  </body>
</html>
`))

type templateData struct {
	Submission *models.Submission
	OldStatus  models.SubmissionStatus
	NewStatus  models.SubmissionStatus
}

func renderNewSubmission(submission *models.Submission) (subject, body string, err error) {
	var buf bytes.Buffer
	if err := newSubmissionTemplate.Execute(&buf, templateData{Submission: submission}); err != nil {
		return "", "", fmt.Errorf("failed to render new submission template: %w", err)
	}
	return fmt.Sprintf("New Submission: %s", submission.Title), buf.String(), nil
}

func renderStatusChange(submission *models.Submission, old, new models.SubmissionStatus) (subject, body string, err error) {
	var buf bytes.Buffer
	data := templateData{Submission: submission, OldStatus: old, NewStatus: new}
	if err := statusChangeTemplate.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("failed to render status change template: %w", err)
	}
	return fmt.Sprintf("Submission Status Updated: %s", submission.Title), buf.String(), nil
}
