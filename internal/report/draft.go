package report

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	dErrors "safeshift/pkg/domain-errors"
)

const (
	// MaxAttachmentSize is the per-file ceiling enforced before upload.
	MaxAttachmentSize int64 = 10 * 1024 * 1024
	MaxAttachments          = 10
)

// AllowedExtensions are the attachment file types the reports API accepts.
var AllowedExtensions = []string{".pdf", ".png", ".jpg", ".jpeg", ".doc", ".docx"}

// Attachment references a file already uploaded through the reports API.
type Attachment struct {
	Ref  string
	Name string
	Size int64
}

// NewAttachment validates name and size before an attachment can join a draft.
func NewAttachment(ref, name string, size int64) (Attachment, error) {
	if err := CheckFile(name, size); err != nil {
		return Attachment{}, err
	}
	if strings.TrimSpace(ref) == "" {
		return Attachment{}, dErrors.New(dErrors.CodeValidation, "attachment reference is required")
	}
	return Attachment{Ref: ref, Name: name, Size: size}, nil
}

// CheckFile applies the extension allowlist and size ceiling to a local file.
func CheckFile(name string, size int64) error {
	ext := strings.ToLower(filepath.Ext(name))
	if !slices.Contains(AllowedExtensions, ext) {
		return dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("file type %q not allowed; allowed: %s", ext, strings.Join(AllowedExtensions, ", ")))
	}
	if size < 0 {
		return dErrors.New(dErrors.CodeValidation, "attachment size must not be negative")
	}
	if size > MaxAttachmentSize {
		return dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("file too large: %d bytes exceeds %d MB", size, MaxAttachmentSize/1024/1024))
	}
	return nil
}

// Owner is the submitting user as far as a payload needs to know.
type Owner struct {
	DepartmentID string
}

// Draft is the in-progress report edited by the wizard.
type Draft struct {
	Title              string
	Type               Type
	Severity           Severity
	IncidentDate       *time.Time
	Description        string
	DepartmentID       string
	Anonymous          bool
	WitnessInformation string
	Attachments        []Attachment
}

// NewDraft returns the defaulted draft a freshly opened wizard starts from.
func NewDraft() Draft {
	return Draft{Severity: SeverityLow}
}

// Clone returns a deep copy safe to hand outside the wizard.
func (d Draft) Clone() Draft {
	out := d
	if d.IncidentDate != nil {
		t := *d.IncidentDate
		out.IncidentDate = &t
	}
	out.Attachments = slices.Clone(d.Attachments)
	return out
}

// Validate is the submit-boundary check.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if !d.Type.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "report type must be selected")
	}
	if !d.Severity.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "severity is invalid")
	}
	if len(d.Attachments) > MaxAttachments {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("at most %d attachments", MaxAttachments))
	}
	for _, a := range d.Attachments {
		if err := CheckFile(a.Name, a.Size); err != nil {
			return err
		}
	}
	return nil
}

// IncidentDay is the calendar day of the incident in the zone it was entered
// in, or nil when unknown.
func (d Draft) IncidentDay() *Date {
	if d.IncidentDate == nil {
		return nil
	}
	day := DateOf(*d.IncidentDate)
	return &day
}

// Payload converts the draft to the create-report wire body. An unset
// department resolves to the owner's own department.
func (d Draft) Payload(owner Owner) CreateRequest {
	dept := strings.TrimSpace(d.DepartmentID)
	if dept == "" {
		dept = owner.DepartmentID
	}
	refs := make([]string, 0, len(d.Attachments))
	for _, a := range d.Attachments {
		refs = append(refs, a.Ref)
	}
	return CreateRequest{
		Title:              strings.TrimSpace(d.Title),
		Type:               d.Type,
		Severity:           d.Severity,
		IncidentDate:       d.IncidentDay(),
		Description:        d.Description,
		DepartmentID:       dept,
		Anonymous:          d.Anonymous,
		WitnessInformation: d.WitnessInformation,
		Attachments:        refs,
	}
}
