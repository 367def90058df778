package rpd

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gitlab.com/us-analytics/merge-rpd/internal/admintool"
	"gitlab.com/us-analytics/merge-rpd/internal/comparison"
	"gitlab.com/us-analytics/merge-rpd/internal/log"
)

// ComparisonFileName is the name of the CSV the administration tool writes
// the differences to.
const ComparisonFileName = "comparison_output.csv"

// CompareRequest names the two revisions of a repository file to compare.
type CompareRequest struct {
	Old string
	New string
}

// Comparer lists the differences between repository files.
type Comparer struct {
	runner   Runner
	workDir  string
	password string
}

// NewComparer returns a comparer running scripts with runner in sessions
// below workDir.
func NewComparer(runner Runner, workDir, password string) *Comparer {
	return &Comparer{runner: runner, workDir: workDir, password: password}
}

// Compare returns the objects which differ between req.Old and req.New.
func (c *Comparer) Compare(ctx context.Context, req CompareRequest) ([]comparison.Change, error) {
	ctx, session, err := NewSession(ctx, c.workDir)
	if err != nil {
		return nil, err
	}
	defer closeSession(ctx, session)

	logger := log.FromContext(ctx).WithFields(logrus.Fields{
		"old": req.Old,
		"new": req.New,
	})
	logger.Info("comparison started")

	var oldPath, newPath string
	if err := session.stage(ctx,
		stagedFile{src: req.Old, name: "old" + Extension, inPlace: true, dst: &oldPath},
		stagedFile{src: req.New, name: "new" + Extension, inPlace: true, dst: &newPath},
	); err != nil {
		return nil, fmt.Errorf("preparing repository files: %w", err)
	}

	output := session.Path(ComparisonFileName)
	script := admintool.CompareScript(newPath, oldPath, output, c.password)
	if err := c.runner.Run(ctx, session.Dir(), script); err != nil {
		return nil, fmt.Errorf("compare failed: %w", err)
	}

	f, err := os.Open(output)
	if err != nil {
		return nil, fmt.Errorf("compare failed: reading output: %w", err)
	}
	defer f.Close()

	changes, err := comparison.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("compare failed: %w", err)
	}

	logger.WithField("changes", len(changes)).Info("comparison finished")
	return changes, nil
}
