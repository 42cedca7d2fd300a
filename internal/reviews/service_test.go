package reviews

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"resume-review/internal/notify"
	"resume-review/internal/queue"
	"resume-review/internal/review"
	"resume-review/internal/review/reviewtest"
	"resume-review/internal/shared/storage/object/local"
	"resume-review/internal/versions"
)

type recordingSink struct {
	mu     sync.Mutex
	events []notify.Event
}

func (s *recordingSink) Notify(_ context.Context, ev notify.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) kinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Stage+":"+string(ev.Kind))
	}
	return out
}

type fakeQueue struct {
	sent []queue.Message
	err  error
}

func (q *fakeQueue) Send(_ context.Context, msg queue.Message) error {
	if q.err != nil {
		return q.err
	}
	q.sent = append(q.sent, msg)
	return nil
}

func newTestService(t *testing.T, analyzer review.Analyzer) (*Service, *recordingSink) {
	t.Helper()
	engine, err := review.NewEngine(analyzer)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sink := &recordingSink{}
	return &Service{
		Engine:   engine,
		Versions: &versions.Service{Repo: versions.NewMemoryRepo()},
		Repo:     NewMemoryRepo(),
		Sink:     sink,
		Now:      func() time.Time { return now },
	}, sink
}

func startInput() StartInput {
	return StartInput{
		DocumentID:        "doc-1",
		Content:           "SUMMARY\nGo engineer\nSKILLS\nGo, SQL",
		TargetDescription: "Senior backend engineer",
		DomainTag:         "backend",
	}
}

func TestStartCreatesBaseVersion(t *testing.T) {
	svc, sink := newTestService(t, reviewtest.NewScripted("rewritten"))
	ctx := context.Background()

	session, err := svc.Start(ctx, startInput())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if session.Status != StatusPending || session.Result.Stage() != review.StageInitialAnalysis {
		t.Fatalf("unexpected session state %+v", session)
	}
	base, err := svc.Versions.GetVersion(ctx, session.BaseVersionID)
	if err != nil {
		t.Fatalf("base version: %v", err)
	}
	if base.ReviewResult != nil || base.Score != nil {
		t.Fatalf("base version should carry no review, got %+v", base)
	}
	if base.Metadata["stage"] != "initial" || base.Metadata["domain"] != "backend" {
		t.Fatalf("unexpected base metadata %v", base.Metadata)
	}
	if got := sink.kinds(); len(got) != 1 || got[0] != "review:started" {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestStartValidatesInput(t *testing.T) {
	svc, _ := newTestService(t, reviewtest.NewScripted("x"))
	if _, err := svc.Start(context.Background(), StartInput{Content: "text"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing document, got %v", err)
	}
	if _, err := svc.Start(context.Background(), StartInput{DocumentID: "doc", Content: "  "}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty content, got %v", err)
	}
}

func TestRunToCompletionCommitsScoredVersion(t *testing.T) {
	svc, sink := newTestService(t, reviewtest.NewScripted("SUMMARY\nSenior Go engineer", 80, 70, 90, 60, 100))
	ctx := context.Background()

	session, err := svc.Start(ctx, startInput())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	result, err := svc.RunToCompletion(ctx, session.ID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.Done() || result.OverallScore == nil || *result.OverallScore != 80 {
		t.Fatalf("expected overall score 80, got %+v", result.OverallScore)
	}

	stored, err := svc.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != StatusCompleted || stored.CommittedVersionID == nil {
		t.Fatalf("expected completed session with committed version, got %+v", stored)
	}
	current, err := svc.Versions.GetCurrentVersion(ctx, "doc-1")
	if err != nil {
		t.Fatalf("current version: %v", err)
	}
	if current.ID != *stored.CommittedVersionID {
		t.Fatalf("committed version should be current")
	}
	if current.Score == nil || *current.Score != 80 {
		t.Fatalf("expected committed score 80, got %v", current.Score)
	}
	if current.Content != "SUMMARY\nSenior Go engineer" {
		t.Fatalf("unexpected committed content %q", current.Content)
	}
	if current.Metadata["sessionId"] != session.ID || current.Metadata["baseVersionId"] != session.BaseVersionID {
		t.Fatalf("unexpected committed metadata %v", current.Metadata)
	}
	all, err := svc.Versions.GetAllVersions(ctx, "doc-1")
	if err != nil || len(all) != 2 {
		t.Fatalf("expected two versions, got %d (%v)", len(all), err)
	}

	events := sink.kinds()
	if events[0] != "review:started" || events[len(events)-1] != "commit:completed" {
		t.Fatalf("unexpected event sequence %v", events)
	}
	// review start, commit, and a begin/end pair per stage
	if len(events) != 2+2*len(review.Stages) {
		t.Fatalf("expected %d events, got %d: %v", 2+2*len(review.Stages), len(events), events)
	}
}

func TestCommitStoresSnapshot(t *testing.T) {
	svc, _ := newTestService(t, reviewtest.NewScripted("SUMMARY\nRewritten", 80, 70, 90, 60, 100))
	svc.Snapshots = local.New(t.TempDir())
	ctx := context.Background()

	session, err := svc.Start(ctx, startInput())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.RunToCompletion(ctx, session.ID); err != nil {
		t.Fatalf("run: %v", err)
	}
	current, err := svc.Versions.GetCurrentVersion(ctx, "doc-1")
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	key := SnapshotKey("doc-1", session.ID)
	if current.Metadata["snapshotKey"] != key {
		t.Fatalf("expected snapshot key %q in metadata, got %v", key, current.Metadata["snapshotKey"])
	}
	rc, err := svc.Snapshots.Open(ctx, key)
	if err != nil {
		t.Fatalf("open snapshot: %v", err)
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if string(body) != "SUMMARY\nRewritten" {
		t.Fatalf("unexpected snapshot %q", body)
	}
}

func TestAdvanceRunsOneStage(t *testing.T) {
	svc, _ := newTestService(t, reviewtest.NewScripted("x", 80, 70, 90, 60, 100))
	ctx := context.Background()
	session, _ := svc.Start(ctx, startInput())

	result, err := svc.Advance(ctx, session.ID)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if result.Stage() != review.StageTechnicalOptimization || result.InitialAnalysis == nil {
		t.Fatalf("expected technical optimization next, got %s", result.Stage())
	}
	stored, _ := svc.Get(ctx, session.ID)
	if stored.Status != StatusRunning {
		t.Fatalf("expected running status, got %s", stored.Status)
	}
}

func TestRunStageOutOfOrderLeavesSessionUntouched(t *testing.T) {
	analyzer := reviewtest.NewScripted("x", 80, 70, 90, 60, 100)
	svc, sink := newTestService(t, analyzer)
	ctx := context.Background()
	session, _ := svc.Start(ctx, startInput())

	_, err := svc.RunStage(ctx, session.ID, review.StageTechnicalOptimization)
	var oo *review.OutOfOrderStageError
	if !errors.As(err, &oo) {
		t.Fatalf("expected OutOfOrderStageError, got %v", err)
	}
	stored, _ := svc.Get(ctx, session.ID)
	if stored.Result.Stage() != review.StageInitialAnalysis || stored.Result.InitialAnalysis != nil {
		t.Fatalf("result changed after rejected stage: %+v", stored.Result)
	}
	if stored.Status != StatusPending || stored.ErrorCode != nil {
		t.Fatalf("session should be untouched, got %+v", stored)
	}
	if len(analyzer.Calls()) != 0 {
		t.Fatalf("analyzer should not be called")
	}
	want := []string{"review:started", "technical_optimization:error"}
	if got := sink.kinds(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("events = %v, want %v", got, want)
	}
}

func TestSanitizeErrorKeepsValidUTF8(t *testing.T) {
	msg := strings.Repeat("a", 499) + "é" + strings.Repeat("b", 10)
	got := sanitizeError(errors.New(msg))
	if !utf8.ValidString(got) {
		t.Fatalf("truncated message is not valid UTF-8")
	}
	if got != strings.Repeat("a", 499) {
		t.Fatalf("unexpected truncation: len=%d", len(got))
	}
	if short := sanitizeError(errors.New(" line one\nline two ")); short != "line one line two" {
		t.Fatalf("sanitizeError = %q", short)
	}
}

func TestFailedStageRecordsErrorAndCanResume(t *testing.T) {
	analyzer := reviewtest.NewScripted("x", 80, 70, 90, 60, 100)
	failing := true
	analyzer.Fail = func(req review.Request) error {
		if failing && req.Stage == review.StageATSOptimization {
			return fmt.Errorf("wrapped: %w", &review.MalformedAnalyzerResponseError{Stage: req.Stage, Reason: "no json"})
		}
		return nil
	}
	svc, sink := newTestService(t, analyzer)
	ctx := context.Background()
	session, _ := svc.Start(ctx, startInput())

	result, err := svc.RunToCompletion(ctx, session.ID)
	if !errors.Is(err, review.ErrMalformedResponse) {
		t.Fatalf("expected malformed error, got %v", err)
	}
	if result.Stage() != review.StageATSOptimization || result.ATSOptimization != nil {
		t.Fatalf("failed stage must not be recorded, got stage %s", result.Stage())
	}
	stored, _ := svc.Get(ctx, session.ID)
	if stored.Status != StatusFailed || stored.ErrorCode == nil || *stored.ErrorCode != ErrorCodeAnalyzerMalformed {
		t.Fatalf("expected failed session with malformed code, got %+v", stored)
	}
	all, _ := svc.Versions.GetAllVersions(ctx, "doc-1")
	if len(all) != 1 {
		t.Fatalf("no version should be committed on failure, got %d", len(all))
	}
	found := false
	for _, k := range sink.kinds() {
		if k == "ats_optimization:error" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected error event, got %v", sink.kinds())
	}

	failing = false
	result, err = svc.RunToCompletion(ctx, session.ID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if !result.Done() {
		t.Fatalf("expected done after resume")
	}
	stored, _ = svc.Get(ctx, session.ID)
	if stored.Status != StatusCompleted || stored.ErrorCode != nil {
		t.Fatalf("expected cleared error after resume, got %+v", stored)
	}
}

func TestAdvanceAfterCompletion(t *testing.T) {
	svc, _ := newTestService(t, reviewtest.NewScripted("x", 1, 2, 3, 4, 5))
	ctx := context.Background()
	session, _ := svc.Start(ctx, startInput())
	if _, err := svc.RunToCompletion(ctx, session.ID); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := svc.Advance(ctx, session.ID); !errors.Is(err, review.ErrReviewComplete) {
		t.Fatalf("expected ErrReviewComplete, got %v", err)
	}
	if err := svc.Process(ctx, session.ID); err != nil {
		t.Fatalf("processing a completed session should be a no-op, got %v", err)
	}
}

func TestUnknownSession(t *testing.T) {
	svc, _ := newTestService(t, reviewtest.NewScripted("x"))
	if _, err := svc.Advance(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEnqueue(t *testing.T) {
	svc, _ := newTestService(t, reviewtest.NewScripted("x"))
	ctx := context.Background()
	session, _ := svc.Start(ctx, startInput())

	if err := svc.Enqueue(ctx, session.ID, "req-1"); !errors.Is(err, ErrQueueNotConfigured) {
		t.Fatalf("expected ErrQueueNotConfigured, got %v", err)
	}
	q := &fakeQueue{}
	svc.Queue = q
	if err := svc.Enqueue(ctx, session.ID, "req-1"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if len(q.sent) != 1 || q.sent[0].SessionID != session.ID || q.sent[0].RequestID != "req-1" {
		t.Fatalf("unexpected message %+v", q.sent)
	}
	if err := svc.Enqueue(ctx, "missing", "req-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRunBatchKeepsInputOrder(t *testing.T) {
	analyzer := reviewtest.NewScripted("rewritten", 50, 50, 50, 50, 50)
	analyzer.Fail = func(req review.Request) error {
		if strings.Contains(req.DocumentText, "broken") {
			return errors.New("analyzer exploded")
		}
		return nil
	}
	svc, _ := newTestService(t, analyzer)
	inputs := []StartInput{
		{DocumentID: "a", Content: "SUMMARY\nA"},
		{DocumentID: "b", Content: "SUMMARY\nbroken"},
		{DocumentID: "c", Content: "SUMMARY\nC"},
	}

	results, err := svc.RunBatch(context.Background(), inputs, 2)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, want := range []string{"a", "b", "c"} {
		if results[i].Session.DocumentID != want {
			t.Fatalf("result %d: expected document %s, got %s", i, want, results[i].Session.DocumentID)
		}
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Fatalf("unexpected errors %v %v", results[0].Err, results[2].Err)
	}
	if results[1].Err == nil || results[1].Session.Status != StatusFailed {
		t.Fatalf("expected failure for document b, got %+v", results[1])
	}
	if results[0].Result.OverallScore == nil || *results[0].Result.OverallScore != 50 {
		t.Fatalf("expected score 50 for document a")
	}
}

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "malformed", err: &review.MalformedAnalyzerResponseError{Stage: review.StageInitialAnalysis}, want: ErrorCodeAnalyzerMalformed},
		{name: "deadline", err: context.DeadlineExceeded, want: ErrorCodeAnalyzerTimeout},
		{name: "timeout text", err: errors.New("openai request timeout: boom"), want: ErrorCodeAnalyzerTimeout},
		{name: "other", err: errors.New("boom"), want: ErrorCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyFailure(tt.err); got != tt.want {
				t.Fatalf("ClassifyFailure(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}
