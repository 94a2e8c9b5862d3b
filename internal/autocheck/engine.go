// Package autocheck is the decision engine of the abuse-report auto-moderation
// pipeline: it scores reported content, applies the operator policy, and
// enacts and records the decision.
package autocheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"modcheck/backend/internal/models"
	"modcheck/backend/internal/policy"
	"modcheck/backend/internal/scoring"
	"modcheck/backend/internal/storage"

	"gorm.io/datatypes"
)

// ErrUnsupportedTarget aborts a run for report targets that cannot be scored.
var ErrUnsupportedTarget = errors.New("unsupported report target type")

// Storage is the read side the engine needs.
type Storage interface {
	GetModerationPolicy(ctx context.Context) (*models.ModerationPolicy, error)
	GetReport(ctx context.Context, id string) (*models.AbuseReport, error)
	FindNote(ctx context.Context, id string) (*models.Note, error)
	FindRootUser(ctx context.Context) (*models.User, error)
}

// Sink receives the side effects of a decision.
type Sink interface {
	DeleteNote(ctx context.Context, actor models.Actor, note *models.Note) error
	InsertAutoCheckRecord(ctx context.Context, rec *models.AutoCheckRecord) error
	UpdateReportStatus(ctx context.Context, reportID string, status models.ReportStatus) error
	// RefreshAutoIgnoreCache is best-effort and must not block for long.
	RefreshAutoIgnoreCache(ctx context.Context)
}

type Scorer interface {
	Score(ctx context.Context, backend scoring.Backend, text string) (scoring.Result, error)
}

type Resolver interface {
	Resolve(action string) policy.Outcome
}

// Notifier is told about flagged content. It is optional and best-effort.
type Notifier interface {
	NotifyFlagged(ctx context.Context, run *Run)
}

// Run is the trace of one check.
type Run struct {
	State   State
	Report  *models.AbuseReport
	Note    *models.Note
	Policy  models.ModerationPolicy
	Score   scoring.Result
	Flagged bool
	Outcome policy.Outcome
	Actor   *models.Actor
	Deleted bool
	// DeletionErr is set when flagged content could not be removed.
	DeletionErr error
	Record      *models.AutoCheckRecord
}

// Service handles the business logic of automated report checks.
type Service struct {
	Storage  Storage
	Sink     Sink
	Scorer   Scorer
	Resolver Resolver
	Notifier Notifier
	Log      *slog.Logger
}

// NewService creates a new decision engine. notifier may be nil.
func NewService(st Storage, sink Sink, scorer Scorer, resolver Resolver, notifier Notifier) *Service {
	return &Service{
		Storage:  st,
		Sink:     sink,
		Scorer:   scorer,
		Resolver: resolver,
		Notifier: notifier,
		Log:      slog.Default(),
	}
}

// HandleTrigger processes a queued trigger. Only abuseCheck triggers are
// handled; other models are logged and skipped. Runs that cannot evaluate
// the content are not errors. Only persistence problems and infrastructure
// failures are returned.
func (s *Service) HandleTrigger(ctx context.Context, t models.Trigger) error {
	log := s.Log.With("model", t.Model, "report_id", t.ID)
	if t.Model != models.AbuseCheckModel {
		log.Info("ignoring trigger for unknown model")
		return nil
	}

	_, err := s.Check(ctx, t.ID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, scoring.ErrScoringUnavailable), errors.Is(err, ErrDisabled):
		log.Debug("auto-check skipped", "reason", err)
		return nil
	case errors.Is(err, ErrContentNotFound), errors.Is(err, ErrReportNotFound), errors.Is(err, ErrUnsupportedTarget):
		log.Info("auto-check aborted", "reason", err)
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		log.Info("auto-check abandoned", "reason", err)
		return nil
	default:
		return err
	}
}

// Check runs the pipeline for one abuse report.
func (s *Service) Check(ctx context.Context, reportID string) (*Run, error) {
	run := &Run{State: StateFetching}
	log := s.Log.With("report_id", reportID)

	p, err := s.Storage.GetModerationPolicy(ctx)
	if err != nil {
		run.State = StateFailed
		return run, fmt.Errorf("load moderation policy: %w", err)
	}
	run.Policy = *p
	if !p.AutoCheckEnabled {
		run.State = StateFailed
		return run, ErrDisabled
	}

	// FETCHING
	report, err := s.Storage.GetReport(ctx, reportID)
	if err != nil {
		run.State = StateFailed
		if errors.Is(err, storage.ErrNotFound) {
			return run, fmt.Errorf("%w: %s", ErrReportNotFound, reportID)
		}
		return run, fmt.Errorf("load report: %w", err)
	}
	run.Report = report
	log = log.With("target_id", report.TargetID)

	if report.TargetType != "" && report.TargetType != models.TargetTypeNote {
		run.State = StateFailed
		return run, fmt.Errorf("%w: %q", ErrUnsupportedTarget, report.TargetType)
	}

	note, err := s.Storage.FindNote(ctx, report.TargetID)
	if err != nil {
		run.State = StateFailed
		if errors.Is(err, storage.ErrNotFound) {
			return run, fmt.Errorf("%w: %s", ErrContentNotFound, report.TargetID)
		}
		return run, fmt.Errorf("load note: %w", err)
	}
	run.Note = note

	// SCORING
	run.State = StateScoring
	backend := scoring.Backend{Endpoint: p.ScoringEndpoint, Token: p.ScoringToken}
	res, err := s.Scorer.Score(ctx, backend, note.Body())
	if err != nil {
		run.State = StateFailed
		return run, err
	}
	if err := ctx.Err(); err != nil {
		// Shutting down: leave no half-decided record behind.
		run.State = StateFailed
		return run, err
	}
	run.Score = res

	// DECIDING
	run.State = StateDeciding
	run.Flagged = res.NormalizedScore < p.ScoreThreshold
	if run.Flagged {
		run.Outcome = s.Resolver.Resolve(p.ActionOnFlag)
	} else {
		run.Outcome = policy.NotFlagged
	}

	// ENACTING. The decision is made; writes must finish even if ctx is cancelled now.
	run.State = StateEnacting
	wctx := context.WithoutCancel(ctx)

	if run.Outcome.AuditStatus == models.ReportActioned {
		actor := s.resolveActor(wctx, log)
		run.Actor = &actor
		if err := s.Sink.DeleteNote(wctx, actor, note); err != nil {
			run.DeletionErr = fmt.Errorf("%w: %w", ErrDeletionFailed, err)
			log.Warn("failed to delete flagged note", "actor", actor.ID, "error", err)
		} else {
			run.Deleted = true
		}
	}

	run.Record = &models.AutoCheckRecord{
		Detail: datatypes.NewJSONType(models.AutoCheckDetail{
			ReportID:      report.ID,
			TargetID:      report.TargetID,
			TargetType:    report.TargetType,
			NoteText:      note.Body(),
			Label:         res.Label,
			DerivedStatus: run.Outcome.AuditStatus,
			Resolved:      report.Resolved,
		}),
		Score:  res.NormalizedScore,
		Ignore: run.Outcome.SuppressFromQueue,
	}

	persistErr := s.persist(wctx, run)

	if !report.Resolved {
		s.Sink.RefreshAutoIgnoreCache(wctx)
	}
	if run.Flagged && s.Notifier != nil {
		s.Notifier.NotifyFlagged(wctx, run)
	}

	run.State = StateDone
	log.Info("auto-check finished",
		"label", res.Label,
		"score", res.NormalizedScore,
		"threshold", p.ScoreThreshold,
		"flagged", run.Flagged,
		"status", run.Outcome.AuditStatus.String(),
		"deleted", run.Deleted,
	)

	if persistErr != nil {
		log.Error("auto-check decision not fully persisted", "error", persistErr)
		return run, fmt.Errorf("%w: %w", ErrPersistence, persistErr)
	}
	return run, nil
}

// persist writes the ledger record and the report status concurrently; the
// two touch different rows. A report a moderator already resolved keeps its status.
func (s *Service) persist(ctx context.Context, run *Run) error {
	var (
		wg                   sync.WaitGroup
		insertErr, updateErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		insertErr = s.Sink.InsertAutoCheckRecord(ctx, run.Record)
	}()

	if !run.Report.Resolved {
		wg.Add(1)
		go func() {
			defer wg.Done()
			updateErr = s.Sink.UpdateReportStatus(ctx, run.Report.ID, run.Outcome.AuditStatus)
		}()
	}

	wg.Wait()
	return errors.Join(insertErr, updateErr)
}

// resolveActor prefers the configured root account and falls back to the
// system stub so that a deletion always has an actor.
func (s *Service) resolveActor(ctx context.Context, log *slog.Logger) models.Actor {
	root, err := s.Storage.FindRootUser(ctx)
	if err != nil || root == nil {
		log.Debug("no root account, deleting as system stub", "error", err)
		return models.SystemActor()
	}
	return models.ActorFromUser(root)
}
