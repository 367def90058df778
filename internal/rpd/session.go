// Package rpd implements the merge and compare workflows of the driver on
// top of the administration tool.
package rpd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/otiai10/copy"
	"github.com/sirupsen/logrus"
	"gitlab.com/gitlab-org/labkit/correlation"
	"gitlab.com/us-analytics/merge-rpd/internal/log"
	"gitlab.com/us-analytics/merge-rpd/internal/tempdir"
	"golang.org/x/sync/errgroup"
)

// Extension is the file extension the administration tool insists on.
const Extension = ".rpd"

// Session is a single driver invocation. All files handed to the
// administration tool live in the session's private directory.
type Session struct {
	ID string

	dir      *tempdir.Dir
	cleanups []func() error
}

// NewSession creates a session directory below workDir and returns a context
// whose logger carries the session ID. The correlation ID of ctx is reused
// as session ID when there is one. Session directories left behind by
// earlier invocations are removed first.
func NewSession(ctx context.Context, workDir string) (context.Context, *Session, error) {
	id := correlation.ExtractFromContext(ctx)
	if id == "" {
		id = uuid.New().String()
		ctx = log.ContextWithCorrelation(ctx, id)
	}
	logger := log.FromContext(ctx)

	// Session paths are handed to a tool running inside the session
	// directory, so they must not depend on the working directory.
	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return nil, nil, fmt.Errorf("new session: %w", err)
	}

	if err := tempdir.Clean(logger, workDir, tempdir.MaxAge); err != nil {
		logger.WithError(err).Warn("cleaning stale session directories")
	}

	dir, err := tempdir.New(workDir)
	if err != nil {
		return nil, nil, fmt.Errorf("new session: %w", err)
	}

	logger.WithField("session_dir", dir.Path).Debug("session started")

	return ctx, &Session{ID: id, dir: dir}, nil
}

// Path returns the path of name inside the session directory.
func (s *Session) Path(name string) string {
	return s.dir.Join(name)
}

// Dir returns the session directory.
func (s *Session) Dir() string {
	return s.dir.Path
}

// OnClose registers fn to run when the session is closed. Functions run in
// reverse order of registration.
func (s *Session) OnClose(fn func() error) {
	s.cleanups = append(s.cleanups, fn)
}

// Close runs all registered cleanups and removes the session directory.
// Every cleanup runs even if an earlier one failed.
func (s *Session) Close() error {
	var result *multierror.Error

	for i := len(s.cleanups) - 1; i >= 0; i-- {
		if err := s.cleanups[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	s.cleanups = nil

	if err := s.dir.Remove(); err != nil {
		result = multierror.Append(result, fmt.Errorf("remove session directory: %w", err))
	}

	return result.ErrorOrNil()
}

// closeSession closes s and logs cleanup failures. They are not returned:
// the outcome of the workflow is already decided at this point.
func closeSession(ctx context.Context, s *Session) {
	if err := s.Close(); err != nil {
		log.FromContext(ctx).WithError(err).Warn("session cleanup failed")
	}
}

// stagedFile is an input file and the name it gets in the session
// directory.
type stagedFile struct {
	src  string
	name string
	// inPlace allows using src directly when it already carries the
	// extension.
	inPlace bool
	dst     *string
}

// stage makes the files available to the administration tool. Files are
// copied concurrently. Missing inputs fail the whole staging.
func (s *Session) stage(ctx context.Context, files ...stagedFile) error {
	g, _ := errgroup.WithContext(ctx)

	for _, f := range files {
		f := f
		g.Go(func() error {
			path, err := s.stageFile(ctx, f)
			if err != nil {
				return err
			}
			*f.dst = path
			return nil
		})
	}

	return g.Wait()
}

func (s *Session) stageFile(ctx context.Context, f stagedFile) (string, error) {
	info, err := os.Stat(f.src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("stage %s: file does not exist: %q", f.name, f.src)
		}
		return "", fmt.Errorf("stage %s: %w", f.name, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("stage %s: not a file: %q", f.name, f.src)
	}

	if f.inPlace && strings.EqualFold(filepath.Ext(f.src), Extension) {
		return filepath.Abs(f.src)
	}

	dst := s.Path(f.name)
	if err := copy.Copy(f.src, dst, copy.Options{Sync: true}); err != nil {
		return "", fmt.Errorf("stage %s: %w", f.name, err)
	}

	log.FromContext(ctx).WithFields(logrus.Fields{
		"src":  f.src,
		"dst":  dst,
		"size": info.Size(),
	}).Debug("staged file")

	return dst, nil
}
