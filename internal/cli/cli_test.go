package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"resume-review/internal/ats"
	"resume-review/internal/review"
	"resume-review/internal/review/reviewtest"
	"resume-review/internal/reviews"
	"resume-review/internal/versions"
)

func testDeps(t *testing.T) Deps {
	t.Helper()
	engine, err := review.NewEngine(reviewtest.NewScripted("SUMMARY\nRewritten", 80, 70, 90, 60, 100))
	require.NoError(t, err)
	vs := &versions.Service{Repo: versions.NewMemoryRepo()}
	return Deps{
		Reviews: &reviews.Service{
			Engine:   engine,
			Versions: vs,
			Repo:     reviews.NewMemoryRepo(),
		},
		Versions: vs,
		Catalog:  ats.DefaultCatalog(3),
	}
}

func run(t *testing.T, deps Deps, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.ExecuteContext(context.WithValue(context.Background(), depsKey, deps))
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReviewCommandCommitsVersion(t *testing.T) {
	deps := testDeps(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "alice.txt", "SUMMARY\nGo engineer\nSKILLS\nGo")

	out, err := run(t, deps, "review", path, "--target", "Backend engineer", "--domain", "backend")
	require.NoError(t, err)

	var decoded struct {
		Session reviews.Session `json:"session"`
		Result  review.Result   `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Equal(t, "alice", decoded.Session.DocumentID)
	require.Equal(t, reviews.StatusCompleted, decoded.Session.Status)
	require.NotNil(t, decoded.Result.OverallScore)
	require.InDelta(t, 80, *decoded.Result.OverallScore, 0.001)

	all, err := deps.Versions.GetAllVersions(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestReviewAsyncWithoutQueueFails(t *testing.T) {
	deps := testDeps(t)
	path := writeFile(t, t.TempDir(), "bob.txt", "SUMMARY\nAnalyst")

	_, err := run(t, deps, "review", path, "--async")
	require.ErrorIs(t, err, reviews.ErrQueueNotConfigured)
}

func TestBatchCommandKeepsOrder(t *testing.T) {
	deps := testDeps(t)
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "SUMMARY\nOne")
	b := writeFile(t, dir, "b.txt", "SUMMARY\nTwo")

	out, err := run(t, deps, "batch", a, b, "-c", "2")
	require.NoError(t, err)

	var items []batchItem
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 2)
	require.Equal(t, a, items[0].File)
	require.Equal(t, b, items[1].File)
	require.Equal(t, string(reviews.StatusCompleted), items[0].Status)
}

func TestBatchExpandsDirectory(t *testing.T) {
	deps := testDeps(t)
	dir := t.TempDir()
	writeFile(t, dir, "b.md", "SUMMARY\nTwo")
	writeFile(t, dir, "a.txt", "SUMMARY\nOne")
	writeFile(t, dir, "notes.pdf", "ignored")

	out, err := run(t, deps, "batch", dir)
	require.NoError(t, err)

	var items []batchItem
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 2)
	require.Equal(t, filepath.Join(dir, "a.txt"), items[0].File)
	require.Equal(t, filepath.Join(dir, "b.md"), items[1].File)
}

func TestVersionsCommands(t *testing.T) {
	deps := testDeps(t)
	ctx := context.Background()
	score1, score2 := 50.0, 75.0
	v1, err := deps.Versions.CreateVersion(ctx, versions.CreateInput{DocumentID: "doc", Content: "SUMMARY\nOld", Score: &score1})
	require.NoError(t, err)
	v2, err := deps.Versions.CreateVersion(ctx, versions.CreateInput{DocumentID: "doc", Content: "SUMMARY\nNew", Score: &score2})
	require.NoError(t, err)

	out, err := run(t, deps, "versions", "history", "doc")
	require.NoError(t, err)
	var history []versions.HistoryEntry
	require.NoError(t, json.Unmarshal([]byte(out), &history))
	require.Len(t, history, 2)

	out, err = run(t, deps, "versions", "compare", v1.ID, v2.ID)
	require.NoError(t, err)
	var diff versions.Diff
	require.NoError(t, json.Unmarshal([]byte(out), &diff))
	require.NotNil(t, diff.ScoreDelta)
	require.InDelta(t, 25, *diff.ScoreDelta, 0.001)

	out, err = run(t, deps, "versions", "improvement", "doc")
	require.NoError(t, err)
	var metrics versions.ImprovementMetrics
	require.NoError(t, json.Unmarshal([]byte(out), &metrics))
	require.InDelta(t, 25, metrics.OverallImprovement, 0.001)

	_, err = run(t, deps, "versions", "restore", v1.ID)
	require.NoError(t, err)
	current, err := deps.Versions.GetCurrentVersion(ctx, "doc")
	require.NoError(t, err)
	require.Equal(t, "SUMMARY\nOld", current.Content)
}

func TestATSMatch(t *testing.T) {
	deps := testDeps(t)

	out, err := run(t, deps, "ats", "match", "-d", "We hire through Greenhouse.")
	require.NoError(t, err)
	var matches []ats.Match
	require.NoError(t, json.Unmarshal([]byte(out), &matches))
	require.NotEmpty(t, matches)
	require.Equal(t, "Greenhouse", matches[0].Name)

	_, err = run(t, deps, "ats", "match")
	require.Error(t, err)
}

func TestMissingDeps(t *testing.T) {
	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"versions", "list", "doc"})
	require.Error(t, root.ExecuteContext(context.Background()))
}
