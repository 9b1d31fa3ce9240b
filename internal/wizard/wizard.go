// Package wizard drives the four-step report submission flow: details,
// attachments, review and success. It owns one draft at a time and talks to
// the backend only when the draft is submitted.
package wizard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"safeshift/internal/platform/logger"
	"safeshift/internal/platform/metrics"
	"safeshift/internal/report"
	dErrors "safeshift/pkg/domain-errors"
)

// Step is the wizard position.
type Step int

const (
	StepDetails Step = iota
	StepAttachments
	StepReview
	StepSuccess
)

func (s Step) String() string {
	switch s {
	case StepDetails:
		return "details"
	case StepAttachments:
		return "attachments"
	case StepReview:
		return "review"
	case StepSuccess:
		return "success"
	default:
		return "unknown"
	}
}

const defaultRefreshTimeout = 30 * time.Second

var (
	// ErrSubmitInFlight rejects a submit while another one for the same draft
	// is outstanding. No request is issued.
	ErrSubmitInFlight = dErrors.New(dErrors.CodeInvalidState, "a submission is already in progress")
	// ErrAbandoned is returned to a submitter whose wizard was closed or
	// reopened before the response arrived. The server may still have
	// stored the report.
	ErrAbandoned = dErrors.New(dErrors.CodeInvalidState, "the report form was closed before submission finished")
	errNotOpen   = dErrors.New(dErrors.CodeInvalidState, "the report form is not open")
)

// Submitter creates reports on the backend.
type Submitter interface {
	CreateReport(ctx context.Context, req report.CreateRequest) (*report.Receipt, error)
}

// Refresher reloads dashboard data after a successful submission.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// OwnerFunc returns the signed-in user's defaults at submit time.
type OwnerFunc func() report.Owner

// Wizard is safe for concurrent use.
type Wizard struct {
	submitter      Submitter
	owner          OwnerFunc
	refresher      Refresher
	logger         *slog.Logger
	metrics        *metrics.Metrics
	validate       bool
	refreshTimeout time.Duration

	mu         sync.Mutex
	open       bool
	generation uint64
	step       Step
	draft      report.Draft
	submitting bool
	lastErr    error
	created    *report.Receipt
}

type Option func(*Wizard)

func WithRefresher(r Refresher) Option {
	return func(w *Wizard) {
		w.refresher = r
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Wizard) {
		w.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Wizard) {
		w.metrics = m
	}
}

// WithValidation toggles the submit-boundary draft check. With it off the
// server is the only validator.
func WithValidation(enabled bool) Option {
	return func(w *Wizard) {
		w.validate = enabled
	}
}

func WithRefreshTimeout(d time.Duration) Option {
	return func(w *Wizard) {
		if d > 0 {
			w.refreshTimeout = d
		}
	}
}

// New builds a closed wizard. owner may be nil, in which case the server
// resolves an unset department.
func New(submitter Submitter, owner OwnerFunc, opts ...Option) (*Wizard, error) {
	if submitter == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "submitter is required")
	}
	if owner == nil {
		owner = func() report.Owner { return report.Owner{} }
	}
	w := &Wizard{
		submitter:      submitter,
		owner:          owner,
		logger:         logger.Discard(),
		validate:       true,
		refreshTimeout: defaultRefreshTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w, nil
}

// Open starts a fresh default draft at the details step. Any previous
// draft is dropped, including one with a submission still in flight.
func (w *Wizard) Open() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resetLocked()
	w.open = true
}

// Close discards the draft from any step. An in-flight submission is not
// cancelled; its result is ignored.
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.submitting {
		w.logger.Info("report form closed during submission; result will be discarded")
	}
	w.resetLocked()
}

func (w *Wizard) resetLocked() {
	w.generation++
	w.open = false
	w.step = StepDetails
	w.draft = report.NewDraft()
	w.submitting = false
	w.lastErr = nil
	w.created = nil
}

// Next advances details to attachments and attachments to review. On the
// review step it submits.
func (w *Wizard) Next(ctx context.Context) error {
	w.mu.Lock()
	if !w.open {
		w.mu.Unlock()
		return errNotOpen
	}
	switch w.step {
	case StepDetails, StepAttachments:
		w.step++
		w.mu.Unlock()
		return nil
	case StepReview:
		w.mu.Unlock()
		_, err := w.Submit(ctx)
		return err
	default:
		w.mu.Unlock()
		return dErrors.New(dErrors.CodeInvalidState, "the report has already been submitted")
	}
}

// Back steps review to attachments and attachments to details. It is a
// no-op on the details step.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		return errNotOpen
	}
	switch {
	case w.step == StepSuccess:
		return dErrors.New(dErrors.CodeInvalidState, "the report has already been submitted")
	case w.submitting:
		return ErrSubmitInFlight
	case w.step > StepDetails:
		w.step--
	}
	return nil
}

// Submit sends the draft. It is only valid on the review step and at most
// one call per draft is in flight. On failure the wizard stays on review
// with LastError set, and Submit may be called again.
func (w *Wizard) Submit(ctx context.Context) (*report.Receipt, error) {
	w.mu.Lock()
	if !w.open {
		w.mu.Unlock()
		return nil, errNotOpen
	}
	if w.step != StepReview {
		step := w.step
		w.mu.Unlock()
		return nil, dErrors.New(dErrors.CodeInvalidState, "cannot submit from the "+step.String()+" step")
	}
	if w.submitting {
		w.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	draft := w.draft.Clone()
	if w.validate {
		if err := draft.Validate(); err != nil {
			w.lastErr = err
			w.mu.Unlock()
			w.observe("rejected")
			return nil, err
		}
	}
	generation := w.generation
	w.submitting = true
	w.lastErr = nil
	w.mu.Unlock()

	req := draft.Payload(w.owner())
	receipt, err := w.submitter.CreateReport(ctx, req)

	w.mu.Lock()
	if w.generation != generation {
		w.mu.Unlock()
		w.logger.InfoContext(ctx, "discarding result of abandoned submission", "failed", err != nil)
		return nil, ErrAbandoned
	}
	w.submitting = false
	if err != nil {
		w.lastErr = err
		w.mu.Unlock()
		w.observe("failure")
		w.logger.WarnContext(ctx, "report submission failed",
			"code", dErrors.CodeOf(err),
			"retryable", dErrors.Retryable(err),
		)
		return nil, err
	}
	w.step = StepSuccess
	w.created = receipt
	w.mu.Unlock()

	w.observe("success")
	w.logger.InfoContext(ctx, "report submitted", "report_id", receipt.Ref(), "anonymous", req.Anonymous)
	w.scheduleRefresh(ctx)
	return receipt, nil
}

// scheduleRefresh reloads dashboard data in the background. It outlives the
// caller's context so a finished command does not cut it short.
func (w *Wizard) scheduleRefresh(ctx context.Context) {
	if w.refresher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.refreshTimeout)
	go func() {
		defer cancel()
		if err := w.refresher.Refresh(ctx); err != nil {
			w.logger.WarnContext(ctx, "dashboard refresh after submission failed", "error", err)
		}
	}()
}

func (w *Wizard) observe(outcome string) {
	if w.metrics != nil {
		w.metrics.IncReportSubmission(outcome)
	}
}
