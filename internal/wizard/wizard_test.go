package wizard

//go:generate mockgen -source=wizard.go -destination=mocks/mocks.go -package=mocks Submitter,Refresher

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"safeshift/internal/platform/metrics"
	"safeshift/internal/report"
	"safeshift/internal/wizard/mocks"
	dErrors "safeshift/pkg/domain-errors"
	"safeshift/pkg/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const ownDepartment = "dept-operations"

// =============================================================================
// Wizard Test Suite
// =============================================================================
// The wizard is pure local state except for Submit, so collaborators are
// mocked: any unexpected CreateReport call fails the test.

type WizardSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	submitter *mocks.MockSubmitter
	refresher *mocks.MockRefresher
	metrics   *metrics.Metrics
	wizard    *Wizard
	ctx       context.Context
}

func TestWizardSuite(t *testing.T) {
	suite.Run(t, new(WizardSuite))
}

func (s *WizardSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.submitter = mocks.NewMockSubmitter(s.ctrl)
	s.refresher = mocks.NewMockRefresher(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.ctx = context.Background()

	w, err := New(s.submitter, func() report.Owner { return report.Owner{DepartmentID: ownDepartment} },
		WithRefresher(s.refresher),
		WithMetrics(s.metrics),
	)
	s.Require().NoError(err)
	s.wizard = w
}

func (s *WizardSuite) TearDownTest() {
	s.ctrl.Finish()
}

// toReview opens the wizard, fills the minimum fields and advances to review.
func (s *WizardSuite) toReview() {
	s.wizard.Open()
	s.Require().NoError(s.wizard.SetTitle("Wiring hazard"))
	s.Require().NoError(s.wizard.SetType(report.TypeSafetyConcern))
	s.Require().NoError(s.wizard.Next(s.ctx))
	s.Require().NoError(s.wizard.Next(s.ctx))
	s.Require().Equal(StepReview, s.wizard.Step())
}

// expectRefresh returns a channel closed once the background refresh ran.
func (s *WizardSuite) expectRefresh(err error) <-chan struct{} {
	done := make(chan struct{})
	s.refresher.EXPECT().Refresh(gomock.Any()).DoAndReturn(func(context.Context) error {
		close(done)
		return err
	})
	return done
}

func (s *WizardSuite) waitFor(ch <-chan struct{}) {
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		s.FailNow("timed out waiting")
	}
}

func (s *WizardSuite) TestNew() {
	s.Run("nil submitter returns error", func() {
		_, err := New(nil, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
	s.Run("starts closed", func() {
		w, err := New(s.submitter, nil)
		s.Require().NoError(err)
		s.False(w.IsOpen())
		s.True(w.validate)
	})
}

func (s *WizardSuite) TestOpenStartsFreshDraft() {
	s.wizard.Open()
	s.Require().NoError(s.wizard.SetTitle("first attempt"))
	s.Require().NoError(s.wizard.Next(s.ctx))

	s.wizard.Close()
	s.False(s.wizard.IsOpen())
	s.wizard.Open()

	s.True(s.wizard.IsOpen())
	s.Equal(StepDetails, s.wizard.Step())
	s.Equal(report.NewDraft(), s.wizard.Draft())
	s.Equal(report.SeverityLow, s.wizard.Draft().Severity)
}

func (s *WizardSuite) TestNavigationStaysInBounds() {
	rng := rand.New(rand.NewPCG(7, 11))
	s.wizard.Open()

	for range 500 {
		before := s.wizard.Step()
		if before < StepReview && rng.IntN(2) == 0 {
			s.Require().NoError(s.wizard.Next(s.ctx))
			s.Equal(before+1, s.wizard.Step())
		} else {
			s.Require().NoError(s.wizard.Back())
			if before == StepDetails {
				s.Equal(StepDetails, s.wizard.Step(), "back on the first step is a no-op")
			} else {
				s.Equal(before-1, s.wizard.Step())
			}
		}
		s.GreaterOrEqual(s.wizard.Step(), StepDetails)
		s.LessOrEqual(s.wizard.Step(), StepReview)
	}
}

func (s *WizardSuite) TestClosedWizardRejectsEverything() {
	s.True(dErrors.HasCode(s.wizard.Next(s.ctx), dErrors.CodeInvalidState))
	s.True(dErrors.HasCode(s.wizard.Back(), dErrors.CodeInvalidState))
	s.True(dErrors.HasCode(s.wizard.SetTitle("x"), dErrors.CodeInvalidState))
	_, err := s.wizard.Submit(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *WizardSuite) TestFieldWritesFollowTheStep() {
	att := report.Attachment{Ref: "att_1", Name: "photo.jpg", Size: 1024}
	t := s.T()

	testutil.Given(t, "the details step", func(t *testing.T) {
		s.wizard.Open()
		testutil.Then(t, "every detail field is writable", func(t *testing.T) {
			incident := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
			require.NoError(t, s.wizard.SetTitle("Blocked exit"))
			require.NoError(t, s.wizard.SetType(report.TypeSafetyConcern))
			require.NoError(t, s.wizard.SetSeverity(report.SeverityMedium))
			require.NoError(t, s.wizard.SetIncidentDate(incident))
			require.NoError(t, s.wizard.SetDescription("Pallets stacked in front of exit 3"))
			require.NoError(t, s.wizard.SetDepartment(" dept-facilities "))
			require.NoError(t, s.wizard.SetWitnessInformation("Night shift lead"))
			require.NoError(t, s.wizard.SetAnonymous(true))

			d := s.wizard.Draft()
			assert.Equal(t, "dept-facilities", d.DepartmentID)
			assert.Equal(t, incident, *d.IncidentDate)
			assert.True(t, d.Anonymous)
		})
		testutil.Then(t, "attachments are not", func(t *testing.T) {
			assert.True(t, dErrors.HasCode(s.wizard.AddAttachment(att), dErrors.CodeInvalidState))
		})
		testutil.Then(t, "unknown enum values are rejected", func(t *testing.T) {
			assert.True(t, dErrors.HasCode(s.wizard.SetType("gossip"), dErrors.CodeValidation))
			assert.True(t, dErrors.HasCode(s.wizard.SetSeverity("urgent"), dErrors.CodeValidation))
		})
	})

	testutil.Given(t, "the attachments step", func(t *testing.T) {
		require.NoError(t, s.wizard.Next(s.ctx))
		testutil.Then(t, "only attachments and anonymity are writable", func(t *testing.T) {
			require.NoError(t, s.wizard.AddAttachment(att))
			require.NoError(t, s.wizard.AddAttachment(att))
			require.NoError(t, s.wizard.SetAnonymous(false))
			assert.Len(t, s.wizard.Draft().Attachments, 1)
			assert.True(t, dErrors.HasCode(s.wizard.SetTitle("changed"), dErrors.CodeInvalidState))
			assert.True(t, dErrors.HasCode(s.wizard.SetDescription("changed"), dErrors.CodeInvalidState))
			assert.Equal(t, "Blocked exit", s.wizard.Draft().Title)
		})
		testutil.Then(t, "disallowed files never join the draft", func(t *testing.T) {
			err := s.wizard.AddAttachment(report.Attachment{Ref: "att_2", Name: "run.exe", Size: 10})
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			assert.True(t, dErrors.HasCode(s.wizard.RemoveAttachment("att_2"), dErrors.CodeNotFound))
		})
	})

	testutil.Given(t, "the review step", func(t *testing.T) {
		require.NoError(t, s.wizard.Next(s.ctx))
		testutil.Then(t, "the draft is read-only", func(t *testing.T) {
			assert.True(t, dErrors.HasCode(s.wizard.SetAnonymous(true), dErrors.CodeInvalidState))
			assert.True(t, dErrors.HasCode(s.wizard.RemoveAttachment("att_1"), dErrors.CodeInvalidState))
			assert.True(t, dErrors.HasCode(s.wizard.SetTitle("x"), dErrors.CodeInvalidState))
		})
		testutil.When(t, "going back to attachments", func(t *testing.T) {
			require.NoError(t, s.wizard.Back())
			testutil.Then(t, "the attachment can be removed", func(t *testing.T) {
				require.NoError(t, s.wizard.RemoveAttachment("att_1"))
				assert.Empty(t, s.wizard.Draft().Attachments)
			})
		})
	})
}

func (s *WizardSuite) TestDraftIsACopy() {
	s.wizard.Open()
	s.Require().NoError(s.wizard.SetIncidentDate(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))

	d := s.wizard.Draft()
	d.Title = "mutated"
	*d.IncidentDate = time.Time{}

	s.Empty(s.wizard.Draft().Title)
	s.False(s.wizard.Draft().IncidentDate.IsZero())
}

func (s *WizardSuite) TestSubmitOnlyFromReview() {
	s.wizard.Open()
	_, err := s.wizard.Submit(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	s.Require().NoError(s.wizard.Next(s.ctx))
	_, err = s.wizard.Submit(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func (s *WizardSuite) TestAnonymousSubmissionScenario() {
	s.wizard.Open()
	s.Require().NoError(s.wizard.SetTitle("Wiring hazard"))
	s.Require().NoError(s.wizard.SetType(report.TypeSafetyConcern))
	s.Require().NoError(s.wizard.SetSeverity(report.SeverityHigh))
	s.Require().NoError(s.wizard.SetAnonymous(true))
	s.Require().NoError(s.wizard.Next(s.ctx))
	s.Require().NoError(s.wizard.Next(s.ctx))

	var sent report.CreateRequest
	s.submitter.EXPECT().CreateReport(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req report.CreateRequest) (*report.Receipt, error) {
			sent = req
			return &report.Receipt{ID: "rep-1"}, nil
		}).Times(1)
	refreshed := s.expectRefresh(nil)

	s.Equal("Submit Report", s.wizard.NextLabel())
	s.Require().NoError(s.wizard.Next(s.ctx))

	s.Equal(StepSuccess, s.wizard.Step())
	receipt, ok := s.wizard.Created()
	s.True(ok)
	s.Equal("rep-1", receipt.Ref())
	s.Equal("Success", s.wizard.Title())
	s.waitFor(refreshed)

	raw, err := json.Marshal(sent)
	s.Require().NoError(err)
	var wire map[string]any
	s.Require().NoError(json.Unmarshal(raw, &wire))
	for _, field := range []string{"reporter_id", "user_id", "employee_id", "user", "email"} {
		s.NotContains(wire, field)
	}
	s.Equal(true, wire["is_anonymous"])
	s.Equal("high", wire["severity"])
	s.Equal(1.0, promtest.ToFloat64(s.metrics.ReportSubmissions.WithLabelValues("success")))
}

func (s *WizardSuite) TestDepartmentResolution() {
	cases := []struct {
		name     string
		explicit string
		want     string
	}{
		{"explicit department wins", "dept-finance", "dept-finance"},
		{"empty falls back to own department", "", ownDepartment},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			incident := time.Date(2026, 2, 14, 17, 0, 0, 0, time.FixedZone("CET", 3600))
			s.wizard.Open()
			s.Require().NoError(s.wizard.SetTitle("Expense irregularities"))
			s.Require().NoError(s.wizard.SetType(report.TypeFraud))
			s.Require().NoError(s.wizard.SetSeverity(report.SeverityMedium))
			s.Require().NoError(s.wizard.SetIncidentDate(incident))
			s.Require().NoError(s.wizard.SetDescription("Duplicate invoices from one vendor"))
			s.Require().NoError(s.wizard.SetDepartment(tc.explicit))
			s.Require().NoError(s.wizard.SetWitnessInformation("Accounts payable"))
			s.Require().NoError(s.wizard.Next(s.ctx))
			s.Require().NoError(s.wizard.AddAttachment(report.Attachment{Ref: "att_9", Name: "invoice.pdf", Size: 2048}))
			s.Require().NoError(s.wizard.Next(s.ctx))

			s.submitter.EXPECT().CreateReport(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, req report.CreateRequest) (*report.Receipt, error) {
					s.Equal(tc.want, req.DepartmentID)
					s.Equal([]string{"att_9"}, req.Attachments)
					s.Equal("2026-02-14", req.IncidentDate.String())
					s.False(req.Anonymous)
					return &report.Receipt{ReportID: "rep-2"}, nil
				})
			refreshed := s.expectRefresh(nil)

			_, err := s.wizard.Submit(s.ctx)
			s.Require().NoError(err)
			s.waitFor(refreshed)
		})
	}
}

func (s *WizardSuite) TestServerFailureAllowsRetry() {
	s.toReview()
	serverErr := dErrors.New(dErrors.CodeAPI, "Internal Server Error").WithStatus(http.StatusInternalServerError)

	gomock.InOrder(
		s.submitter.EXPECT().CreateReport(gomock.Any(), gomock.Any()).Return(nil, serverErr),
		s.submitter.EXPECT().CreateReport(gomock.Any(), gomock.Any()).Return(&report.Receipt{ID: "rep-3"}, nil),
	)
	refreshed := s.expectRefresh(nil)

	_, err := s.wizard.Submit(s.ctx)
	s.ErrorIs(err, serverErr)
	s.Equal(StepReview, s.wizard.Step())
	s.ErrorIs(s.wizard.LastError(), serverErr)
	s.False(s.wizard.Submitting())
	s.True(dErrors.Retryable(s.wizard.LastError()))

	receipt, err := s.wizard.Submit(s.ctx)
	s.Require().NoError(err)
	s.Equal("rep-3", receipt.Ref())
	s.NoError(s.wizard.LastError())
	s.Equal(StepSuccess, s.wizard.Step())
	s.waitFor(refreshed)
	s.Equal(1.0, promtest.ToFloat64(s.metrics.ReportSubmissions.WithLabelValues("failure")))
}

func (s *WizardSuite) TestConcurrentSubmitIsSingleFlight() {
	s.toReview()
	entered := make(chan struct{})
	release := make(chan struct{})
	s.submitter.EXPECT().CreateReport(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, report.CreateRequest) (*report.Receipt, error) {
			close(entered)
			<-release
			return &report.Receipt{ID: "rep-4"}, nil
		}).Times(1)
	refreshed := s.expectRefresh(nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := s.wizard.Submit(s.ctx)
		assert.NoError(s.T(), err)
	}()
	s.waitFor(entered)

	s.True(s.wizard.Submitting())
	for range 5 {
		_, err := s.wizard.Submit(s.ctx)
		s.ErrorIs(err, ErrSubmitInFlight)
	}
	s.ErrorIs(s.wizard.Next(s.ctx), ErrSubmitInFlight)
	s.ErrorIs(s.wizard.Back(), ErrSubmitInFlight)

	close(release)
	wg.Wait()
	s.Equal(StepSuccess, s.wizard.Step())
	s.waitFor(refreshed)
}

func (s *WizardSuite) TestCloseDuringSubmitDiscardsResult() {
	s.toReview()
	entered := make(chan struct{})
	release := make(chan struct{})
	s.submitter.EXPECT().CreateReport(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ report.CreateRequest) (*report.Receipt, error) {
			close(entered)
			<-release
			s.NoError(ctx.Err(), "closing must not cancel the request")
			return &report.Receipt{ID: "rep-5"}, nil
		})

	result := make(chan error, 1)
	go func() {
		_, err := s.wizard.Submit(s.ctx)
		result <- err
	}()
	s.waitFor(entered)

	s.wizard.Close()
	s.wizard.Open()
	s.Require().NoError(s.wizard.SetTitle("next report"))
	close(release)

	s.ErrorIs(<-result, ErrAbandoned)
	s.Equal(StepDetails, s.wizard.Step())
	s.Equal("next report", s.wizard.Draft().Title)
	_, created := s.wizard.Created()
	s.False(created)
	s.False(s.wizard.Submitting())
}

func (s *WizardSuite) TestSubmitBoundaryValidation() {
	s.Run("enabled rejects without a request", func() {
		s.wizard.Open()
		s.Require().NoError(s.wizard.Next(s.ctx))
		s.Require().NoError(s.wizard.Next(s.ctx))

		_, err := s.wizard.Submit(s.ctx)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal(StepReview, s.wizard.Step())
		s.Error(s.wizard.LastError())
		s.Equal(1.0, promtest.ToFloat64(s.metrics.ReportSubmissions.WithLabelValues("rejected")))
	})

	s.Run("disabled leaves validation to the server", func() {
		w, err := New(s.submitter, nil, WithValidation(false))
		s.Require().NoError(err)
		w.Open()
		s.Require().NoError(w.Next(s.ctx))
		s.Require().NoError(w.Next(s.ctx))

		s.submitter.EXPECT().CreateReport(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeValidation, "title is required").WithStatus(http.StatusUnprocessableEntity))
		_, err = w.Submit(s.ctx)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal(StepReview, w.Step())
	})
}

func (s *WizardSuite) TestRefreshFailureDoesNotUndoSuccess() {
	s.toReview()
	s.submitter.EXPECT().CreateReport(gomock.Any(), gomock.Any()).Return(&report.Receipt{ID: "rep-6"}, nil)
	refreshed := s.expectRefresh(dErrors.New(dErrors.CodeNetwork, "offline"))

	_, err := s.wizard.Submit(s.ctx)
	s.Require().NoError(err)
	s.waitFor(refreshed)
	s.Equal(StepSuccess, s.wizard.Step())
}

func (s *WizardSuite) TestRefreshOutlivesCallerContext() {
	s.toReview()
	ctx, cancel := context.WithCancel(s.ctx)
	s.submitter.EXPECT().CreateReport(gomock.Any(), gomock.Any()).Return(&report.Receipt{ID: "rep-7"}, nil)

	done := make(chan struct{})
	s.refresher.EXPECT().Refresh(gomock.Any()).DoAndReturn(func(rctx context.Context) error {
		defer close(done)
		s.NoError(rctx.Err())
		_, hasDeadline := rctx.Deadline()
		s.True(hasDeadline)
		return nil
	})

	_, err := s.wizard.Submit(ctx)
	cancel()
	s.Require().NoError(err)
	s.waitFor(done)
}

func (s *WizardSuite) TestSuccessStepIsTerminal() {
	s.toReview()
	s.submitter.EXPECT().CreateReport(gomock.Any(), gomock.Any()).Return(&report.Receipt{ID: "rep-8"}, nil)
	refreshed := s.expectRefresh(nil)
	s.Require().NoError(s.wizard.Next(s.ctx))
	s.waitFor(refreshed)

	s.True(dErrors.HasCode(s.wizard.Next(s.ctx), dErrors.CodeInvalidState))
	s.True(dErrors.HasCode(s.wizard.Back(), dErrors.CodeInvalidState))
	s.True(dErrors.HasCode(s.wizard.SetAnonymous(true), dErrors.CodeInvalidState))
	_, err := s.wizard.Submit(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))

	s.wizard.Close()
	s.False(s.wizard.IsOpen())
}

func (s *WizardSuite) TestHeadings() {
	s.wizard.Open()
	s.Equal("Submit a Report", s.wizard.Title())
	s.Equal("Please fill out the details below", s.wizard.Subtitle())
	s.Equal("Next", s.wizard.NextLabel())

	s.Require().NoError(s.wizard.Next(s.ctx))
	s.Equal("Add Attachments", s.wizard.Title())
	s.Equal("Review", s.wizard.NextLabel())
}
