package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"resume-review/internal/reviews"
)

type batchItem struct {
	File      string   `json:"file"`
	SessionID string   `json:"sessionId,omitempty"`
	Status    string   `json:"status"`
	Score     *float64 `json:"score,omitempty"`
	Error     string   `json:"error,omitempty"`
}

func newBatchCmd() *cobra.Command {
	var (
		concurrency int
		target      string
		targetFile  string
		domain      string
	)
	cmd := &cobra.Command{
		Use:   "batch [resume-file or directory...]",
		Short: "Review several résumés concurrently",
		Long: `Review each file as an independent document. Directories contribute their .txt and
.md files. The document id is the file name without its extension. A failure in one
document does not stop the others.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := depsFromContext(cmd.Context())
			if err != nil {
				return err
			}
			td, err := targetText(target, targetFile)
			if err != nil {
				return err
			}
			files, err := expandPaths(args)
			if err != nil {
				return err
			}
			inputs := make([]reviews.StartInput, 0, len(files))
			for _, path := range files {
				content, err := readTextFile(path)
				if err != nil {
					return err
				}
				inputs = append(inputs, reviews.StartInput{
					DocumentID:        documentIDFromPath(path),
					Content:           content,
					TargetDescription: td,
					DomainTag:         domain,
				})
			}

			results, err := deps.Reviews.RunBatch(cmd.Context(), inputs, concurrency)
			if err != nil {
				return err
			}
			items := make([]batchItem, len(results))
			failed := 0
			for i, res := range results {
				item := batchItem{File: files[i], SessionID: res.Session.ID, Status: string(res.Session.Status)}
				if res.Err != nil {
					failed++
					item.Status = string(reviews.StatusFailed)
					item.Error = res.Err.Error()
				} else {
					item.Score = res.Result.OverallScore
				}
				items[i] = item
			}
			if err := writeJSON(cmd.OutOrStdout(), items); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d reviews failed", failed, len(items))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 4, "Number of documents reviewed at once")
	cmd.Flags().StringVar(&target, "target", "", "Target job description text shared by every document")
	cmd.Flags().StringVar(&targetFile, "target-file", "", "File containing the shared target job description")
	cmd.Flags().StringVar(&domain, "domain", "", "Domain tag applied to every document")
	return cmd
}

// expandPaths replaces each directory with its text files, sorted by name.
func expandPaths(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		var found []string
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			switch strings.ToLower(filepath.Ext(e.Name())) {
			case ".txt", ".md":
				found = append(found, filepath.Join(arg, e.Name()))
			}
		}
		sort.Strings(found)
		out = append(out, found...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no résumé files found")
	}
	return out, nil
}
