package rpd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gitlab.com/us-analytics/merge-rpd/internal/admintool"
	"gitlab.com/us-analytics/merge-rpd/internal/log"
	"gitlab.com/us-analytics/merge-rpd/internal/safe"
)

// Runner executes administration tool scripts.
type Runner interface {
	Run(ctx context.Context, dir string, script admintool.Script) error
}

// MergeRequest names the files git hands to a merge driver.
type MergeRequest struct {
	// Ancestor is the merge base (%O).
	Ancestor string
	// Current is our version (%A). It receives the merge result.
	Current string
	// Other is their version (%B).
	Other string
	// Path is the pathname of the merged file in the repository (%P). It
	// is only used for logging.
	Path string
}

// Merger performs three-way merges of repository files.
type Merger struct {
	runner   Runner
	workDir  string
	password string
}

// NewMerger returns a merger running scripts with runner in sessions
// below workDir.
func NewMerger(runner Runner, workDir, password string) *Merger {
	return &Merger{runner: runner, workDir: workDir, password: password}
}

// Merge merges req.Ancestor, req.Current and req.Other and replaces
// req.Current with the result. req.Current is left untouched on failure.
func (m *Merger) Merge(ctx context.Context, req MergeRequest) error {
	ctx, session, err := NewSession(ctx, m.workDir)
	if err != nil {
		return err
	}
	defer closeSession(ctx, session)

	logger := log.FromContext(ctx).WithFields(logrus.Fields{
		"ancestor": req.Ancestor,
		"current":  req.Current,
		"other":    req.Other,
		"path":     req.Path,
	})
	logger.Info("merge started")

	var ancestor, current, other string
	if err := session.stage(ctx,
		stagedFile{src: req.Ancestor, name: "ancestor" + Extension, dst: &ancestor},
		stagedFile{src: req.Current, name: "current" + Extension, dst: &current},
		stagedFile{src: req.Other, name: "other" + Extension, dst: &other},
	); err != nil {
		return fmt.Errorf("preparing repository files: %w", err)
	}

	decisions := session.Path("decisions.csv")
	if err := admintool.WriteDecisions(decisions); err != nil {
		return fmt.Errorf("write decisions: %w", err)
	}

	output := session.Path("merged" + Extension)
	script := admintool.MergeScript(ancestor, current, other, decisions, output, m.password)
	if err := m.runner.Run(ctx, session.Dir(), script); err != nil {
		return fmt.Errorf("merge failed: %w", err)
	}

	if _, err := os.Stat(output); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return errors.New("merge failed: admin tool did not write the merged repository")
		}
		return fmt.Errorf("merge failed: %w", err)
	}

	if err := replaceFile(session, output, req.Current); err != nil {
		return fmt.Errorf("replace %s: %w", req.Current, err)
	}

	logger.Info("merge finished")
	return nil
}

// replaceFile atomically replaces dst with the content of src, keeping dst's
// permissions. The temporary file is removed when the session closes if the
// replacement did not happen.
func replaceFile(session *Session, src, dst string) error {
	info, err := os.Stat(dst)
	if err != nil {
		return err
	}

	writer, err := safe.NewFileWriter(dst, safe.FileWriterConfig{FileMode: info.Mode().Perm()})
	if err != nil {
		return err
	}
	session.OnClose(func() error {
		if err := writer.Close(); err != nil && !errors.Is(err, safe.ErrAlreadyDone) {
			return fmt.Errorf("remove temporary file: %w", err)
		}
		return nil
	})

	merged, err := os.Open(src)
	if err != nil {
		return err
	}
	defer merged.Close()

	if _, err := io.Copy(writer, merged); err != nil {
		return err
	}

	return writer.Commit()
}
