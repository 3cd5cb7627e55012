package activities

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"go.temporal.io/sdk/activity"

	"github.com/yourorg/motor-stats/internal/steps"
	"github.com/yourorg/motor-stats/internal/types"
)

var errBadScratchSubdir = errors.New("invalid scratch subdir for cleanup")

// CleanupScratch removes a run's extraction directory under the scratch root.
// A missing directory is not an error.
func (a *Activities) CleanupScratch(ctx context.Context, p types.CleanupParams) error {
	_, err := steps.Guard(ctx, steps.CleanupScratch, "cleanup", func(ctx context.Context) (struct{}, error) {
		base, err := scratchPath(a.cfg.ScratchDir, p.ScratchSubdir)
		if err != nil {
			return struct{}{}, err
		}
		if err := os.RemoveAll(base); err != nil {
			return struct{}{}, err
		}
		activity.GetLogger(ctx).Debug("scratch removed", "path", base)
		return struct{}{}, nil
	})
	return err
}

// scratchPath never resolves to the scratch root itself or above it.
func scratchPath(root, sub string) (string, error) {
	sub = filepath.Clean(sub)
	if sub == "." || sub == "" || sub == "/" || sub == ".." || strings.HasPrefix(sub, ".."+string(filepath.Separator)) || filepath.IsAbs(sub) {
		return "", errBadScratchSubdir
	}
	return filepath.Join(root, sub), nil
}
