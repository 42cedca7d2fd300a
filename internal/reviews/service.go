package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"resume-review/internal/llm"
	"resume-review/internal/notify"
	"resume-review/internal/queue"
	"resume-review/internal/review"
	"resume-review/internal/shared/metrics"
	"resume-review/internal/shared/storage/object"
	"resume-review/internal/shared/telemetry"
	"resume-review/internal/shared/util"
	"resume-review/internal/versions"
)

// Service runs review sessions: it drives the stage engine, commits the reviewed document to
// the version store and reports progress to the notification sink.
type Service struct {
	Engine    *review.Engine
	Versions  *versions.Service
	Repo      Repo
	Sink      notify.Sink
	Queue     queue.Client
	// Snapshots, when set, receives a copy of every committed rewritten document.
	Snapshots object.ObjectStore
	Now       func() time.Time

	locks util.KeyLock
}

// StartInput describes a document to review.
type StartInput struct {
	DocumentID        string `json:"documentId"`
	Content           string `json:"content"`
	TargetDescription string `json:"targetDescription"`
	DomainTag         string `json:"domainTag"`
}

// Start records the submitted document as a new version and opens a session positioned at
// the first stage.
func (s *Service) Start(ctx context.Context, in StartInput) (Session, error) {
	documentID := strings.TrimSpace(in.DocumentID)
	if documentID == "" {
		return Session{}, fmt.Errorf("%w: document id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Content) == "" {
		return Session{}, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}

	metadata := map[string]any{"stage": "initial"}
	if in.DomainTag != "" {
		metadata["domain"] = in.DomainTag
	}
	base, err := s.Versions.CreateVersion(ctx, versions.CreateInput{
		DocumentID:        documentID,
		Content:           in.Content,
		TargetDescription: optionalString(in.TargetDescription),
		Metadata:          metadata,
	})
	if err != nil {
		return Session{}, fmt.Errorf("create base version: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Session{}, fmt.Errorf("session id: %w", err)
	}
	now := s.now()
	session := Session{
		ID:                id.String(),
		DocumentID:        documentID,
		BaseVersionID:     base.ID,
		Content:           in.Content,
		TargetDescription: in.TargetDescription,
		DomainTag:         in.DomainTag,
		Result:            review.NewResult(),
		Status:            StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.Repo.Create(ctx, session); err != nil {
		return Session{}, err
	}

	metrics.IncSessionsStarted()
	telemetry.Info("review.session.started", map[string]any{
		"session_id":      session.ID,
		"document_id":     documentID,
		"base_version_id": base.ID,
		"domain":          in.DomainTag,
	})
	s.notify(ctx, session, "review", notify.KindStarted, "review started")
	return session, nil
}

// Get returns a session by id.
func (s *Service) Get(ctx context.Context, sessionID string) (Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Session{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, sessionID)
}

// ListByDocument returns the sessions opened for a document, newest first.
func (s *Service) ListByDocument(ctx context.Context, documentID string) ([]Session, error) {
	return s.Repo.ListByDocument(ctx, documentID)
}

// Advance runs the next pending stage of the session.
func (s *Service) Advance(ctx context.Context, sessionID string) (review.Result, error) {
	return s.run(ctx, sessionID, "")
}

// RunStage runs the named stage. A stage whose predecessors have not completed fails with
// review.OutOfOrderStageError and leaves the session untouched.
func (s *Service) RunStage(ctx context.Context, sessionID string, stage review.Stage) (review.Result, error) {
	if !stage.Runnable() {
		return review.Result{}, fmt.Errorf("%w: %s", review.ErrUnknownStage, stage)
	}
	return s.run(ctx, sessionID, stage)
}

// RunToCompletion advances the session until every stage has run or a stage fails.
func (s *Service) RunToCompletion(ctx context.Context, sessionID string) (review.Result, error) {
	for {
		session, err := s.Get(ctx, sessionID)
		if err != nil {
			return review.Result{}, err
		}
		if session.Result.Done() {
			return session.Result, nil
		}
		if _, err := s.Advance(ctx, sessionID); err != nil {
			current, getErr := s.Get(context.WithoutCancel(ctx), sessionID)
			if getErr != nil {
				return review.Result{}, err
			}
			return current.Result, err
		}
	}
}

// Enqueue hands the session to a worker through the review queue.
func (s *Service) Enqueue(ctx context.Context, sessionID, requestID string) error {
	if s.Queue == nil {
		return ErrQueueNotConfigured
	}
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.Queue.Send(ctx, queue.NewMessage(session.ID, requestID, s.now())); err != nil {
		return fmt.Errorf("enqueue review: %w", err)
	}
	telemetry.Info("review.session.enqueued", map[string]any{
		"session_id":  session.ID,
		"document_id": session.DocumentID,
		"request_id":  requestID,
	})
	return nil
}

// Process is the worker entry point. A session that has already completed is a no-op, so
// redelivered jobs are safe.
func (s *Service) Process(ctx context.Context, sessionID string) error {
	start := time.Now()
	result, err := s.RunToCompletion(ctx, sessionID)
	fields := map[string]any{
		"session_id":  sessionID,
		"stage":       string(result.Stage()),
		"duration_ms": metrics.SinceMs(start),
	}
	if err != nil {
		fields["error"] = err.Error()
		telemetry.Warn("review.process.failed", fields)
		return err
	}
	telemetry.Info("review.process.completed", fields)
	return nil
}

// BatchResult is the outcome of one document in RunBatch.
type BatchResult struct {
	Session Session
	Result  review.Result
	Err     error
}

// RunBatch reviews independent documents concurrently. Results keep the order of inputs; a
// failed document does not stop the others.
func (s *Service) RunBatch(ctx context.Context, inputs []StartInput, concurrency int) ([]BatchResult, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	results := make([]BatchResult, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			session, err := s.Start(gctx, in)
			if err != nil {
				results[i] = BatchResult{Err: err}
				return nil
			}
			res, err := s.RunToCompletion(gctx, session.ID)
			if latest, getErr := s.Get(context.WithoutCancel(gctx), session.ID); getErr == nil {
				session = latest
			}
			results[i] = BatchResult{Session: session, Result: res, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

// run executes one stage under the document lock. An empty stage means the next pending one.
func (s *Service) run(ctx context.Context, sessionID string, stage review.Stage) (review.Result, error) {
	if s.Engine == nil {
		return review.Result{}, errors.New("review engine not configured")
	}
	peek, err := s.Get(ctx, sessionID)
	if err != nil {
		return review.Result{}, err
	}
	unlock := s.locks.Lock(peek.DocumentID)
	defer unlock()

	session, err := s.Repo.GetByID(ctx, sessionID)
	if err != nil {
		return review.Result{}, err
	}
	if session.Result.Done() {
		return session.Result, review.ErrReviewComplete
	}
	if stage == "" {
		stage = session.Result.Stage()
	}

	if err := review.CheckStage(stage, session.Result); errors.Is(err, review.ErrOutOfOrderStage) || errors.Is(err, review.ErrReviewComplete) {
		telemetry.Warn("review.stage.rejected", map[string]any{
			"session_id":  session.ID,
			"document_id": session.DocumentID,
			"stage":       string(stage),
			"error":       err.Error(),
		})
		s.notify(ctx, session, string(stage), notify.KindError, "stage rejected")
		return session.Result, err
	}

	s.notify(ctx, session, string(stage), notify.KindStarted, stage.Title()+" started")
	acc := session.Result.Clone()
	if err := s.Engine.RunStage(ctx, stage, session.Input(), &acc); err != nil {
		s.fail(ctx, session, stage, err)
		return session.Result, err
	}

	s.notify(ctx, session, string(stage), notify.KindCompleted, stage.Title()+" completed")

	if stage == review.StageFinalIntegration {
		committed, err := s.commit(ctx, session, acc)
		if err != nil {
			s.fail(ctx, session, stage, err)
			return session.Result, err
		}
		id := committed.ID
		session.CommittedVersionID = &id
		session.Status = StatusCompleted
	} else {
		session.Status = StatusRunning
	}
	session.Result = acc
	session.ErrorCode = nil
	session.ErrorMessage = nil
	session.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, session); err != nil {
		return review.Result{}, fmt.Errorf("save review session: %w", err)
	}

	telemetry.Info("review.stage.completed", map[string]any{
		"session_id":  session.ID,
		"document_id": session.DocumentID,
		"stage":       string(stage),
		"next_stage":  string(acc.Stage()),
	})
	return acc, nil
}

// commit stores the rewritten document with the full review as a new version.
func (s *Service) commit(ctx context.Context, session Session, result review.Result) (versions.Version, error) {
	metadata := map[string]any{
		"stage":         "final",
		"sessionId":     session.ID,
		"baseVersionId": session.BaseVersionID,
	}
	if session.DomainTag != "" {
		metadata["domain"] = session.DomainTag
	}
	if result.ATSOptimization != nil && len(result.ATSOptimization.TargetSystems) > 0 {
		metadata["atsSystems"] = append([]string(nil), result.ATSOptimization.TargetSystems...)
	}
	content := result.RewrittenText()
	if key := s.saveSnapshot(ctx, session, content); key != "" {
		metadata["snapshotKey"] = key
	}
	v, err := s.Versions.CreateVersion(ctx, versions.CreateInput{
		DocumentID:        session.DocumentID,
		Content:           content,
		ReviewResult:      &result,
		TargetDescription: optionalString(session.TargetDescription),
		Metadata:          metadata,
	})
	if err != nil {
		return versions.Version{}, fmt.Errorf("commit reviewed version: %w", err)
	}
	metrics.IncReviewVersionsCommitted()
	fields := map[string]any{
		"session_id":  session.ID,
		"document_id": session.DocumentID,
		"version_id":  v.ID,
	}
	if v.Score != nil {
		fields["score"] = *v.Score
	}
	telemetry.Info("review.version.committed", fields)
	s.notify(ctx, session, "commit", notify.KindCompleted, "reviewed version "+v.ID+" committed")
	return v, nil
}

// saveSnapshot stores the rewritten document and returns its key. Storage errors are logged
// and do not block the commit.
func (s *Service) saveSnapshot(ctx context.Context, session Session, content string) string {
	if s.Snapshots == nil {
		return ""
	}
	key := SnapshotKey(session.DocumentID, session.ID)
	if _, err := s.Snapshots.SaveWithKey(ctx, key, "text/plain; charset=utf-8", strings.NewReader(content)); err != nil {
		telemetry.Warn("review.snapshot.failed", map[string]any{
			"session_id":  session.ID,
			"document_id": session.DocumentID,
			"error":       err.Error(),
		})
		return ""
	}
	return key
}

// SnapshotKey is the object key of a session's rewritten document.
func SnapshotKey(documentID, sessionID string) string {
	return "reviews/" + util.HashKey(documentID) + "/" + sessionID + "/rewritten.txt"
}

// fail records a failed stage. The session result keeps only the stages completed before it.
func (s *Service) fail(ctx context.Context, session Session, stage review.Stage, cause error) {
	code := ClassifyFailure(cause)
	msg := sanitizeError(cause)
	session.Status = StatusFailed
	session.ErrorCode = &code
	session.ErrorMessage = &msg
	session.UpdatedAt = s.now()
	if err := s.Repo.Update(context.WithoutCancel(ctx), session); err != nil {
		telemetry.Error("review.session.update_failed", map[string]any{
			"session_id": session.ID,
			"error":      err.Error(),
		})
	}
	telemetry.Warn("review.stage.failed", map[string]any{
		"session_id":  session.ID,
		"document_id": session.DocumentID,
		"stage":       string(stage),
		"error_code":  code,
		"error":       msg,
	})
	s.notify(ctx, session, string(stage), notify.KindError, userMessage(code))
}

func (s *Service) notify(ctx context.Context, session Session, stage string, kind notify.Kind, message string) {
	if s.Sink == nil {
		return
	}
	s.Sink.Notify(context.WithoutCancel(ctx), notify.Event{
		SessionID:  session.ID,
		DocumentID: session.DocumentID,
		Stage:      stage,
		Kind:       kind,
		Message:    message,
		At:         s.now(),
	})
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// ClassifyFailure maps a stage error to a session error code.
func ClassifyFailure(err error) string {
	switch {
	case err == nil:
		return ErrorCodeInternal
	case errors.Is(err, review.ErrMalformedResponse):
		return ErrorCodeAnalyzerMalformed
	case errors.Is(err, review.ErrOutOfOrderStage):
		return ErrorCodeStageOutOfOrder
	case errors.Is(err, llm.ErrUnavailable), errors.Is(err, llm.ErrNotConfigured):
		return ErrorCodeAnalyzerUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorCodeAnalyzerTimeout
	}
	if strings.Contains(strings.ToLower(err.Error()), "timeout") {
		return ErrorCodeAnalyzerTimeout
	}
	return ErrorCodeInternal
}

func userMessage(code string) string {
	switch code {
	case ErrorCodeAnalyzerMalformed, ErrorCodeAnalyzerTimeout:
		return "the analyzer response could not be used, try again"
	case ErrorCodeAnalyzerUnavailable:
		return "the analyzer is unavailable, try again later"
	default:
		return "review stage failed"
	}
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		n := maxLen
		for n > 0 && !utf8.RuneStart(msg[n]) {
			n--
		}
		msg = msg[:n]
	}
	return msg
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
