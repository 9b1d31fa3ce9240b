package wizard

import (
	"fmt"
	"strings"
	"time"

	"safeshift/internal/report"
	dErrors "safeshift/pkg/domain-errors"
)

// edit applies fn to the draft when the wizard is open on one of steps.
func (w *Wizard) edit(field string, fn func(d *report.Draft) error, steps ...Step) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		return errNotOpen
	}
	for _, s := range steps {
		if s == w.step {
			return fn(&w.draft)
		}
	}
	return dErrors.New(dErrors.CodeInvalidState,
		fmt.Sprintf("%s cannot be changed on the %s step", field, w.step))
}

func (w *Wizard) SetTitle(title string) error {
	return w.edit("title", func(d *report.Draft) error {
		d.Title = title
		return nil
	}, StepDetails)
}

func (w *Wizard) SetType(t report.Type) error {
	if !t.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown report type: "+string(t))
	}
	return w.edit("report type", func(d *report.Draft) error {
		d.Type = t
		return nil
	}, StepDetails)
}

func (w *Wizard) SetSeverity(s report.Severity) error {
	if !s.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown severity: "+string(s))
	}
	return w.edit("severity", func(d *report.Draft) error {
		d.Severity = s
		return nil
	}, StepDetails)
}

// SetIncidentDate sets when the incident happened; the zero time clears it.
func (w *Wizard) SetIncidentDate(t time.Time) error {
	return w.edit("incident date", func(d *report.Draft) error {
		if t.IsZero() {
			d.IncidentDate = nil
			return nil
		}
		d.IncidentDate = &t
		return nil
	}, StepDetails)
}

func (w *Wizard) SetDescription(desc string) error {
	return w.edit("description", func(d *report.Draft) error {
		d.Description = desc
		return nil
	}, StepDetails)
}

// SetDepartment targets a department; "" means the submitter's own.
func (w *Wizard) SetDepartment(id string) error {
	return w.edit("department", func(d *report.Draft) error {
		d.DepartmentID = strings.TrimSpace(id)
		return nil
	}, StepDetails)
}

func (w *Wizard) SetWitnessInformation(info string) error {
	return w.edit("witness information", func(d *report.Draft) error {
		d.WitnessInformation = info
		return nil
	}, StepDetails)
}

func (w *Wizard) SetAnonymous(anonymous bool) error {
	return w.edit("anonymity", func(d *report.Draft) error {
		d.Anonymous = anonymous
		return nil
	}, StepDetails, StepAttachments)
}

// AddAttachment appends an uploaded file. Re-adding the same reference
// is a no-op.
func (w *Wizard) AddAttachment(att report.Attachment) error {
	if err := report.CheckFile(att.Name, att.Size); err != nil {
		return err
	}
	if strings.TrimSpace(att.Ref) == "" {
		return dErrors.New(dErrors.CodeValidation, "attachment reference is required")
	}
	return w.edit("attachments", func(d *report.Draft) error {
		for _, a := range d.Attachments {
			if a.Ref == att.Ref {
				return nil
			}
		}
		if len(d.Attachments) >= report.MaxAttachments {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("at most %d attachments", report.MaxAttachments))
		}
		d.Attachments = append(d.Attachments, att)
		return nil
	}, StepAttachments)
}

func (w *Wizard) RemoveAttachment(ref string) error {
	return w.edit("attachments", func(d *report.Draft) error {
		for i, a := range d.Attachments {
			if a.Ref == ref {
				d.Attachments = append(d.Attachments[:i], d.Attachments[i+1:]...)
				return nil
			}
		}
		return dErrors.New(dErrors.CodeNotFound, "no attachment "+ref)
	}, StepAttachments)
}
