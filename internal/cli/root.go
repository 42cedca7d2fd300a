// Package cli implements the reviewctl command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"resume-review/internal/ats"
	"resume-review/internal/reviews"
	"resume-review/internal/versions"
)

// Deps are the services the commands operate on.
type Deps struct {
	Reviews  *reviews.Service
	Versions *versions.Service
	Catalog  *ats.Catalog
}

type depsKeyType struct{}

var depsKey = depsKeyType{}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "reviewctl",
		Short: "Run résumé reviews and inspect document versions",
		Long: `reviewctl drives the staged résumé review pipeline from the command line.
It can review a single file, review a batch of files concurrently, inspect and
restore document versions, and match target descriptions against the ATS catalog.`,
		SilenceUsage: true,
	}
	root.AddCommand(newReviewCmd())
	root.AddCommand(newBatchCmd())
	root.AddCommand(newVersionsCmd())
	root.AddCommand(newATSCmd())
	return root
}

// Execute runs the command tree with deps attached to the context.
func Execute(ctx context.Context, deps Deps, args []string) error {
	root := NewRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(context.WithValue(ctx, depsKey, deps))
}

func depsFromContext(ctx context.Context) (Deps, error) {
	if deps, ok := ctx.Value(depsKey).(Deps); ok {
		return deps, nil
	}
	return Deps{}, fmt.Errorf("services not initialized")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readTextFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// targetText resolves --target and --target-file; the file wins when both are set.
func targetText(inline, file string) (string, error) {
	if strings.TrimSpace(file) != "" {
		return readTextFile(file)
	}
	return inline, nil
}

func documentIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
