//go:build !windows
// +build !windows

package rpd

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/us-analytics/merge-rpd/internal/admintool"
	"gitlab.com/us-analytics/merge-rpd/internal/comparison"
	"gitlab.com/us-analytics/merge-rpd/internal/config"
	"gitlab.com/us-analytics/merge-rpd/internal/testhelper"
)

func TestCompare(t *testing.T) {
	inputDir := testhelper.TempDir(t)
	workDir := testhelper.TempDir(t)

	oldPath := filepath.Join(inputDir, "XXaB3d_sales.rpd")
	newPath := filepath.Join(inputDir, "sales")
	testhelper.MustWriteFile(t, oldPath, []byte("old"))
	testhelper.MustWriteFile(t, newPath, []byte("new"))

	binPath, invocation := testhelper.WriteFakeAdminTool(t, testhelper.FakeAdminTool{
		ComparisonCSV: []byte("Revenue,Created,Logical Column,Business Model\nSales,Deleted,Logical Table,Presentation\n"),
	})
	comparer := NewComparer(admintool.NewExecutor(config.AdminTool{BinPath: binPath}), workDir, "Admin123")

	changes, err := comparer.Compare(testhelper.Context(t), CompareRequest{Old: oldPath, New: newPath})
	require.NoError(t, err)
	require.Equal(t, []comparison.Change{
		{Name: "Revenue", Kind: "Created", Type: "Logical Column", Location: "Business Model"},
		{Name: "Sales", Kind: "Deleted", Type: "Logical Table", Location: "Presentation"},
	}, changes)

	sessionDir := invocation.Dir(t)
	require.Equal(t, strings.Join([]string{
		"Hide",
		"OpenOffline " + filepath.Join(sessionDir, "new.rpd") + " Admin123",
		"Compare " + oldPath + " Admin123 " + filepath.Join(sessionDir, ComparisonFileName),
		"Close",
		"Exit",
	}, "\n"), invocation.Script(t))

	requireNoSessionDirs(t, workDir)
}

func TestCompareFailures(t *testing.T) {
	inputDir := testhelper.TempDir(t)
	oldPath := filepath.Join(inputDir, "old.rpd")
	newPath := filepath.Join(inputDir, "new.rpd")
	testhelper.MustWriteFile(t, oldPath, []byte("old"))
	testhelper.MustWriteFile(t, newPath, []byte("new"))

	for _, tc := range []struct {
		desc        string
		runner      Runner
		request     CompareRequest
		expectedErr string
	}{
		{
			desc: "no output",
			runner: runnerFunc(func(context.Context, string, admintool.Script) error {
				return nil
			}),
			request:     CompareRequest{Old: oldPath, New: newPath},
			expectedErr: "compare failed: reading output: ",
		},
		{
			desc: "malformed output",
			runner: runnerFunc(func(_ context.Context, dir string, _ admintool.Script) error {
				testhelper.MustWriteFile(t, filepath.Join(dir, ComparisonFileName), []byte("Revenue,Created\n"))
				return nil
			}),
			request:     CompareRequest{Old: oldPath, New: newPath},
			expectedErr: "compare failed: comparison line 1: expected at least 4 fields, got 2",
		},
		{
			desc: "tool fails",
			runner: runnerFunc(func(context.Context, string, admintool.Script) error {
				return &admintool.ExitError{Code: 1}
			}),
			request:     CompareRequest{Old: oldPath, New: newPath},
			expectedErr: "compare failed: admin tool exited with code 1",
		},
		{
			desc:        "missing file",
			runner:      runnerFunc(func(context.Context, string, admintool.Script) error { return nil }),
			request:     CompareRequest{Old: oldPath + ".missing", New: newPath},
			expectedErr: "preparing repository files: stage old.rpd: file does not exist",
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			workDir := testhelper.TempDir(t)

			_, err := NewComparer(tc.runner, workDir, "Admin123").Compare(testhelper.Context(t), tc.request)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.expectedErr)
			requireNoSessionDirs(t, workDir)
		})
	}
}
