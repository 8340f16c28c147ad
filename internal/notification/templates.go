package notification

import "html/template"

var emailTemplates = template.Must(template.New("emails").Parse(`
{{define "submitted"}}
<p>Hello,</p>
<p>{{.EmployeeName}} submitted the report <strong>{{.ReportTitle}}</strong>
for {{.Period}} and it is waiting for your review.</p>
<p><a href="{{.Link}}">Open the report</a></p>
{{end}}

{{define "approved"}}
<p>Hello {{.EmployeeName}},</p>
<p>Your report <strong>{{.ReportTitle}}</strong> for {{.Period}} has been approved.</p>
<p><a href="{{.Link}}">Open the report</a></p>
{{end}}

{{define "rejected"}}
<p>Hello {{.EmployeeName}},</p>
<p>Your report <strong>{{.ReportTitle}}</strong> for {{.Period}} has been rejected.</p>
{{if .Reason}}<p>Reason: {{.Reason}}</p>{{end}}
<p>Please correct the rejected entries and resubmit.
<a href="{{.Link}}">Open the report</a></p>
{{end}}
`))

var emailSubjects = map[string]string{
	"submitted": "Report submitted for review: %s",
	"approved":  "Report approved: %s",
	"rejected":  "Report rejected: %s",
}
