package rpd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gitlab.com/gitlab-org/labkit/correlation"
	"gitlab.com/us-analytics/merge-rpd/internal/log"
	"gitlab.com/us-analytics/merge-rpd/internal/testhelper"
	"gitlab.com/us-analytics/merge-rpd/internal/tempdir"
)

func TestNewSession(t *testing.T) {
	workDir := testhelper.TempDir(t)

	stale := filepath.Join(workDir, tempdir.Prefix+"stale")
	require.NoError(t, os.Mkdir(stale, 0700))
	old := time.Now().Add(-2 * tempdir.MaxAge)
	require.NoError(t, os.Chtimes(stale, old, old))

	foreign := filepath.Join(workDir, "unrelated")
	require.NoError(t, os.Mkdir(foreign, 0700))
	require.NoError(t, os.Chtimes(foreign, old, old))

	ctx, session, err := NewSession(testhelper.Context(t), workDir)
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)
	require.NotNil(t, ctx)

	require.True(t, strings.HasPrefix(filepath.Base(session.Dir()), tempdir.Prefix))
	require.DirExists(t, session.Dir())
	testhelper.AssertPathNotExists(t, stale)
	require.DirExists(t, foreign)

	require.NoError(t, session.Close())
	testhelper.AssertPathNotExists(t, session.Dir())
}

func TestSessionCloseAggregatesErrors(t *testing.T) {
	_, session, err := NewSession(testhelper.Context(t), testhelper.TempDir(t))
	require.NoError(t, err)

	var order []string
	session.OnClose(func() error {
		order = append(order, "first")
		return errors.New("first failed")
	})
	session.OnClose(func() error {
		order = append(order, "second")
		return errors.New("second failed")
	})

	err = session.Close()
	require.Error(t, err)
	require.Contains(t, err.Error(), "first failed")
	require.Contains(t, err.Error(), "second failed")
	require.Equal(t, []string{"second", "first"}, order)
	testhelper.AssertPathNotExists(t, session.Dir())
}

func TestStage(t *testing.T) {
	ctx, session, err := NewSession(testhelper.Context(t), testhelper.TempDir(t))
	require.NoError(t, err)
	defer func() { require.NoError(t, session.Close()) }()

	inputDir := testhelper.TempDir(t)
	withoutExt := filepath.Join(inputDir, "merge_file_a12345")
	withExt := filepath.Join(inputDir, "sales.rpd")
	testhelper.MustWriteFile(t, withoutExt, []byte("without"))
	testhelper.MustWriteFile(t, withExt, []byte("with"))

	var a, b, c string
	require.NoError(t, session.stage(ctx,
		stagedFile{src: withoutExt, name: "a.rpd", inPlace: true, dst: &a},
		stagedFile{src: withExt, name: "b.rpd", inPlace: true, dst: &b},
		stagedFile{src: withExt, name: "c.rpd", dst: &c},
	))

	require.Equal(t, session.Path("a.rpd"), a)
	require.Equal(t, "without", string(testhelper.MustReadFile(t, a)))
	require.Equal(t, withExt, b)
	require.Equal(t, session.Path("c.rpd"), c)
	require.Equal(t, "with", string(testhelper.MustReadFile(t, c)))

	var missing string
	err = session.stage(ctx, stagedFile{src: filepath.Join(inputDir, "missing"), name: "m.rpd", dst: &missing})
	require.EqualError(t, err, `stage m.rpd: file does not exist: "`+filepath.Join(inputDir, "missing")+`"`)

	err = session.stage(ctx, stagedFile{src: inputDir, name: "d.rpd", dst: &missing})
	require.EqualError(t, err, `stage d.rpd: not a file: "`+inputDir+`"`)
}

func TestNewSessionReusesCorrelationID(t *testing.T) {
	ctx := log.ContextWithCorrelation(testhelper.Context(t), "session-1234")

	ctx, session, err := NewSession(ctx, testhelper.TempDir(t))
	require.NoError(t, err)
	defer func() { require.NoError(t, session.Close()) }()

	require.Equal(t, "session-1234", session.ID)
	require.Equal(t, "session-1234", correlation.ExtractFromContext(ctx))
}
