package wizard

import "safeshift/internal/report"

type heading struct {
	title, subtitle, next string
}

var headings = map[Step]heading{
	StepDetails:     {"Submit a Report", "Please fill out the details below", "Next"},
	StepAttachments: {"Add Attachments", "Optional: Add supporting files", "Review"},
	StepReview:      {"Review & Submit", "Please review your information", "Submit Report"},
	StepSuccess:     {"Success", "Your report has been received and is under review.", "Back to Dashboard"},
}

func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Draft returns a copy of the current draft.
func (w *Wizard) Draft() report.Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft.Clone()
}

func (w *Wizard) IsOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.open
}

func (w *Wizard) Submitting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submitting
}

// LastError is the error of the most recent failed submit, cleared by the
// next attempt.
func (w *Wizard) LastError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// Created is the receipt of the submitted report once on the success step.
func (w *Wizard) Created() (report.Receipt, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.created == nil {
		return report.Receipt{}, false
	}
	return *w.created, true
}

func (w *Wizard) Title() string {
	return headings[w.Step()].title
}

func (w *Wizard) Subtitle() string {
	return headings[w.Step()].subtitle
}

// NextLabel is the caption of the forward button for the current step.
func (w *Wizard) NextLabel() string {
	return headings[w.Step()].next
}
