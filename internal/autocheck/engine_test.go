package autocheck_test

import (
	"context"
	"errors"
	"testing"

	"modcheck/backend/internal/autocheck"
	"modcheck/backend/internal/models"
	"modcheck/backend/internal/policy"
	"modcheck/backend/internal/scoring"
	"modcheck/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	reportID = "report-1"
	noteID   = "note-1"
	noteText = "buy cheap followers"
)

var backend = scoring.Backend{Endpoint: "http://scorer.local/classify", Token: "secret"}

type fixture struct {
	storage  *MockStorage
	sink     *MockSink
	scorer   *MockScorer
	notifier *MockNotifier
	svc      *autocheck.Service

	inserted []*models.AutoCheckRecord
}

func newFixture(t *testing.T, action string, threshold float64) *fixture {
	t.Helper()
	f := &fixture{
		storage:  new(MockStorage),
		sink:     new(MockSink),
		scorer:   new(MockScorer),
		notifier: new(MockNotifier),
	}
	f.svc = autocheck.NewService(f.storage, f.sink, f.scorer, policy.Table{}, f.notifier)

	f.storage.On("GetModerationPolicy", mock.Anything).Return(&models.ModerationPolicy{
		AutoCheckEnabled: true,
		ScoringEndpoint:  backend.Endpoint,
		ScoringToken:     backend.Token,
		ActionOnFlag:     action,
		ScoreThreshold:   threshold,
	}, nil)
	return f
}

func (f *fixture) withReport(resolved bool) *fixture {
	f.storage.On("GetReport", mock.Anything, reportID).Return(&models.AbuseReport{
		ID:         reportID,
		TargetID:   noteID,
		TargetType: models.TargetTypeNote,
		Resolved:   resolved,
	}, nil)
	text := noteText
	f.storage.On("FindNote", mock.Anything, noteID).Return(&models.Note{ID: noteID, Text: &text}, nil)
	return f
}

func (f *fixture) withScore(label string, raw float64) *fixture {
	f.scorer.On("Score", mock.Anything, backend, noteText).Return(scoring.Result{
		Label:           label,
		RawScore:        raw,
		NormalizedScore: scoring.Normalize(label, raw),
	}, nil)
	return f
}

func (f *fixture) expectWrites(status models.ReportStatus) *fixture {
	f.sink.On("InsertAutoCheckRecord", mock.Anything, mock.AnythingOfType("*models.AutoCheckRecord")).
		Run(func(args mock.Arguments) {
			f.inserted = append(f.inserted, args.Get(1).(*models.AutoCheckRecord))
		}).Return(nil)
	f.sink.On("UpdateReportStatus", mock.Anything, reportID, status).Return(nil)
	f.sink.On("RefreshAutoIgnoreCache", mock.Anything).Return()
	f.notifier.On("NotifyFlagged", mock.Anything, mock.Anything).Return()
	return f
}

// TestCheck_FlaggedDelete: spam with high confidence is flagged and deleted.
func TestCheck_FlaggedDelete(t *testing.T) {
	f := newFixture(t, models.ActionDelete, 0.5).withReport(false).withScore("spam", 0.9).expectWrites(models.ReportActioned)
	f.storage.On("FindRootUser", mock.Anything).Return(&models.User{ID: "root-id", Username: "admin", IsRoot: true}, nil)
	f.sink.On("DeleteNote", mock.Anything, mock.MatchedBy(func(a models.Actor) bool {
		return a.Kind == models.RealActor && a.ID == "root-id"
	}), mock.AnythingOfType("*models.Note")).Return(nil)

	run, err := f.svc.Check(context.Background(), reportID)

	require.NoError(t, err)
	assert.Equal(t, autocheck.StateDone, run.State)
	assert.True(t, run.Flagged)
	assert.InDelta(t, 0.1, run.Score.NormalizedScore, 1e-9)
	assert.True(t, run.Deleted)

	require.Len(t, f.inserted, 1)
	rec := f.inserted[0]
	assert.False(t, rec.Ignore)
	assert.Equal(t, models.ReportActioned, rec.Detail.Data().DerivedStatus)
	assert.Equal(t, "spam", rec.Detail.Data().Label)
	assert.Equal(t, reportID, rec.Detail.Data().ReportID)
	assert.Equal(t, noteText, rec.Detail.Data().NoteText)

	f.sink.AssertCalled(t, "UpdateReportStatus", mock.Anything, reportID, models.ReportActioned)
	f.sink.AssertCalled(t, "RefreshAutoIgnoreCache", mock.Anything)
	f.notifier.AssertNumberOfCalls(t, "NotifyFlagged", 1)
}

// TestCheck_NotFlaggedIsStillRecorded: a non-spam label keeps its score and is not flagged.
func TestCheck_NotFlaggedIsStillRecorded(t *testing.T) {
	f := newFixture(t, models.ActionDelete, 0.5).withReport(false).withScore("toxic", 0.8).expectWrites(models.ReportOpen)

	run, err := f.svc.Check(context.Background(), reportID)

	require.NoError(t, err)
	assert.False(t, run.Flagged)
	assert.Equal(t, 0.8, run.Score.NormalizedScore)
	require.Len(t, f.inserted, 1)
	assert.Equal(t, models.ReportOpen, f.inserted[0].Detail.Data().DerivedStatus)
	assert.False(t, f.inserted[0].Ignore)

	f.sink.AssertNotCalled(t, "DeleteNote", mock.Anything, mock.Anything, mock.Anything)
	f.sink.AssertCalled(t, "UpdateReportStatus", mock.Anything, reportID, models.ReportOpen)
	f.notifier.AssertNotCalled(t, "NotifyFlagged", mock.Anything, mock.Anything)
}

// TestCheck_ScoringUnavailable: an unconfigured backend writes nothing and leaves the report alone.
func TestCheck_ScoringUnavailable(t *testing.T) {
	f := newFixture(t, models.ActionDelete, 0.5).withReport(false)
	f.scorer.On("Score", mock.Anything, backend, noteText).
		Return(scoring.Result{}, scoring.ErrScoringUnavailable)

	run, err := f.svc.Check(context.Background(), reportID)

	assert.ErrorIs(t, err, scoring.ErrScoringUnavailable)
	assert.Equal(t, autocheck.StateFailed, run.State)
	assert.Empty(t, f.sink.Calls, "no ledger record, no status update, no refresh")

	assert.NoError(t, f.svc.HandleTrigger(context.Background(), models.Trigger{Model: models.AbuseCheckModel, ID: reportID}),
		"scoring unavailability is not an error for the trigger worker")
}

// TestCheck_ContentNotFound: a missing note aborts during fetching.
func TestCheck_ContentNotFound(t *testing.T) {
	f := newFixture(t, models.ActionDelete, 0.5)
	f.storage.On("GetReport", mock.Anything, reportID).Return(&models.AbuseReport{ID: reportID, TargetID: noteID, TargetType: models.TargetTypeNote}, nil)
	f.storage.On("FindNote", mock.Anything, noteID).Return(nil, storage.ErrNotFound)

	run, err := f.svc.Check(context.Background(), reportID)

	assert.ErrorIs(t, err, autocheck.ErrContentNotFound)
	assert.Equal(t, autocheck.StateFailed, run.State)
	f.scorer.AssertNotCalled(t, "Score", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, f.sink.Calls)
}

// TestCheck_FlaggedIgnore: ignore hides the entry and signals the cache for unresolved reports.
func TestCheck_FlaggedIgnore(t *testing.T) {
	f := newFixture(t, models.ActionIgnore, 0.5).withReport(false).withScore("spam", 0.7).expectWrites(models.ReportIgnored)

	run, err := f.svc.Check(context.Background(), reportID)

	require.NoError(t, err)
	assert.True(t, run.Flagged)
	require.Len(t, f.inserted, 1)
	assert.True(t, f.inserted[0].Ignore)
	assert.Equal(t, models.ReportIgnored, f.inserted[0].Detail.Data().DerivedStatus)
	f.sink.AssertNotCalled(t, "DeleteNote", mock.Anything, mock.Anything, mock.Anything)
	f.sink.AssertCalled(t, "UpdateReportStatus", mock.Anything, reportID, models.ReportIgnored)
	f.sink.AssertNumberOfCalls(t, "RefreshAutoIgnoreCache", 1)
}

func TestCheck_ResolvedReportKeepsStatusAndSkipsRefresh(t *testing.T) {
	f := newFixture(t, models.ActionIgnore, 0.5).withReport(true).withScore("spam", 0.7).expectWrites(models.ReportIgnored)

	_, err := f.svc.Check(context.Background(), reportID)

	require.NoError(t, err)
	require.Len(t, f.inserted, 1)
	assert.True(t, f.inserted[0].Detail.Data().Resolved)
	f.sink.AssertNotCalled(t, "UpdateReportStatus", mock.Anything, mock.Anything, mock.Anything)
	f.sink.AssertNotCalled(t, "RefreshAutoIgnoreCache", mock.Anything)
}

func TestCheck_ThresholdBoundary(t *testing.T) {
	tests := []struct {
		name      string
		label     string
		raw       float64
		threshold float64
		flagged   bool
	}{
		{"equal is benign", "toxic", 0.5, 0.5, false},
		{"just below", "toxic", 0.49, 0.5, true},
		{"above", "toxic", 0.51, 0.5, false},
		{"zero threshold never flags", "spam", 1, 0, false},
		{"one threshold flags everything below one", "toxic", 0.99, 1, true},
		{"spam inverted to equal", "spam", 0.25, 0.75, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := models.ReportOpen
			if tt.flagged {
				status = models.ReportIgnored
			}
			f := newFixture(t, models.ActionIgnore, tt.threshold).withReport(false).withScore(tt.label, tt.raw).expectWrites(status)

			run, err := f.svc.Check(context.Background(), reportID)

			require.NoError(t, err)
			assert.Equal(t, tt.flagged, run.Flagged)
		})
	}
}

func TestCheck_UnknownActionBehavesLikeRecord(t *testing.T) {
	f := newFixture(t, "purge-everything", 0.5).withReport(false).withScore("spam", 0.99).expectWrites(models.ReportOpen)

	run, err := f.svc.Check(context.Background(), reportID)

	require.NoError(t, err)
	assert.True(t, run.Flagged)
	assert.Equal(t, policy.Resolve(models.ActionRecord), run.Outcome)
	f.sink.AssertNotCalled(t, "DeleteNote", mock.Anything, mock.Anything, mock.Anything)
}

// TestCheck_RepeatedRunsAppendDistinctRecords verifies the ledger is never deduplicated.
func TestCheck_RepeatedRunsAppendDistinctRecords(t *testing.T) {
	f := newFixture(t, models.ActionIgnore, 0.5).withReport(false).withScore("spam", 0.8).expectWrites(models.ReportIgnored)

	_, err := f.svc.Check(context.Background(), reportID)
	require.NoError(t, err)
	_, err = f.svc.Check(context.Background(), reportID)
	require.NoError(t, err)

	require.Len(t, f.inserted, 2)
	assert.NotSame(t, f.inserted[0], f.inserted[1])
	assert.Equal(t, f.inserted[0].Detail.Data().DerivedStatus, f.inserted[1].Detail.Data().DerivedStatus)
	f.sink.AssertNumberOfCalls(t, "InsertAutoCheckRecord", 2)
}

func TestCheck_DeletionFailureStillRecords(t *testing.T) {
	f := newFixture(t, models.ActionDelete, 0.5).withReport(false).withScore("spam", 0.9).expectWrites(models.ReportActioned)
	f.storage.On("FindRootUser", mock.Anything).Return(nil, storage.ErrNotFound)
	f.sink.On("DeleteNote", mock.Anything, models.SystemActor(), mock.AnythingOfType("*models.Note")).
		Return(storage.ErrDeletionFailed)

	run, err := f.svc.Check(context.Background(), reportID)

	require.NoError(t, err)
	assert.False(t, run.Deleted)
	assert.ErrorIs(t, run.DeletionErr, autocheck.ErrDeletionFailed)
	require.NotNil(t, run.Actor)
	assert.True(t, run.Actor.IsStub(), "deletion falls back to the system stub actor")
	require.Len(t, f.inserted, 1)
	f.sink.AssertCalled(t, "UpdateReportStatus", mock.Anything, reportID, models.ReportActioned)
}

func TestCheck_PersistenceErrorIsSurfaced(t *testing.T) {
	f := newFixture(t, models.ActionIgnore, 0.5).withReport(false).withScore("spam", 0.9)
	dbErr := errors.New("connection reset")
	f.sink.On("InsertAutoCheckRecord", mock.Anything, mock.Anything).Return(dbErr)
	f.sink.On("UpdateReportStatus", mock.Anything, reportID, models.ReportIgnored).Return(nil)
	f.sink.On("RefreshAutoIgnoreCache", mock.Anything).Return()
	f.notifier.On("NotifyFlagged", mock.Anything, mock.Anything).Return()

	run, err := f.svc.Check(context.Background(), reportID)

	assert.ErrorIs(t, err, autocheck.ErrPersistence)
	assert.ErrorIs(t, err, dbErr)
	assert.Equal(t, autocheck.StateDone, run.State)
	f.sink.AssertCalled(t, "UpdateReportStatus", mock.Anything, reportID, models.ReportIgnored)

	assert.ErrorIs(t, f.svc.HandleTrigger(context.Background(), models.Trigger{Model: models.AbuseCheckModel, ID: reportID}),
		autocheck.ErrPersistence, "persistence failures reach the trigger worker")
}

func TestCheck_CancelledDuringScoringWritesNothing(t *testing.T) {
	f := newFixture(t, models.ActionDelete, 0.5).withReport(false)
	ctx, cancel := context.WithCancel(context.Background())
	f.scorer.On("Score", mock.Anything, backend, noteText).
		Run(func(mock.Arguments) { cancel() }).
		Return(scoring.Result{Label: "spam", RawScore: 0.9, NormalizedScore: 0.1}, nil)

	run, err := f.svc.Check(ctx, reportID)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, autocheck.StateFailed, run.State)
	assert.Empty(t, f.sink.Calls)
}

func TestCheck_Disabled(t *testing.T) {
	f := &fixture{storage: new(MockStorage), sink: new(MockSink), scorer: new(MockScorer)}
	f.svc = autocheck.NewService(f.storage, f.sink, f.scorer, policy.Table{}, nil)
	f.storage.On("GetModerationPolicy", mock.Anything).Return(&models.ModerationPolicy{AutoCheckEnabled: false}, nil)

	_, err := f.svc.Check(context.Background(), reportID)

	assert.ErrorIs(t, err, autocheck.ErrDisabled)
	f.storage.AssertNotCalled(t, "GetReport", mock.Anything, mock.Anything)
}

func TestCheck_UnsupportedTargetType(t *testing.T) {
	f := newFixture(t, models.ActionDelete, 0.5)
	f.storage.On("GetReport", mock.Anything, reportID).Return(&models.AbuseReport{ID: reportID, TargetID: "u1", TargetType: "user"}, nil)

	_, err := f.svc.Check(context.Background(), reportID)

	assert.ErrorIs(t, err, autocheck.ErrUnsupportedTarget)
	f.storage.AssertNotCalled(t, "FindNote", mock.Anything, mock.Anything)
}

func TestCheck_EmptyNoteBodyIsScored(t *testing.T) {
	f := newFixture(t, models.ActionRecord, 0.5)
	f.storage.On("GetReport", mock.Anything, reportID).Return(&models.AbuseReport{ID: reportID, TargetID: noteID, TargetType: models.TargetTypeNote}, nil)
	f.storage.On("FindNote", mock.Anything, noteID).Return(&models.Note{ID: noteID}, nil)
	f.scorer.On("Score", mock.Anything, backend, "").Return(scoring.Result{Label: "ham", RawScore: 0.9, NormalizedScore: 0.9}, nil)
	f.expectWrites(models.ReportOpen)

	_, err := f.svc.Check(context.Background(), reportID)

	require.NoError(t, err)
	f.scorer.AssertCalled(t, "Score", mock.Anything, backend, "")
}

func TestHandleTrigger_IgnoresOtherModels(t *testing.T) {
	f := &fixture{storage: new(MockStorage), sink: new(MockSink), scorer: new(MockScorer)}
	f.svc = autocheck.NewService(f.storage, f.sink, f.scorer, policy.Table{}, nil)

	err := f.svc.HandleTrigger(context.Background(), models.Trigger{Model: "imageCheck", ID: reportID})

	assert.NoError(t, err)
	assert.Empty(t, f.storage.Calls)
}

func TestHandleTrigger_ReportMissing(t *testing.T) {
	f := newFixture(t, models.ActionDelete, 0.5)
	f.storage.On("GetReport", mock.Anything, "gone").Return(nil, storage.ErrNotFound)

	err := f.svc.HandleTrigger(context.Background(), models.Trigger{Model: models.AbuseCheckModel, ID: "gone"})

	assert.NoError(t, err)
	_, checkErr := f.svc.Check(context.Background(), "gone")
	assert.ErrorIs(t, checkErr, autocheck.ErrReportNotFound)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "fetching", autocheck.StateFetching.String())
	assert.Equal(t, "done", autocheck.StateDone.String())
	assert.Equal(t, "failed", autocheck.StateFailed.String())
}
