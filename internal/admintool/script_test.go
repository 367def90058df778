package admintool

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/us-analytics/merge-rpd/internal/testhelper"
)

func TestMergeScript(t *testing.T) {
	script := MergeScript("/tmp/s/ancestor.rpd", "/tmp/s/current.rpd", "/tmp/s/other.rpd", "/tmp/s/decisions.csv", "/tmp/s/merged.rpd", "Admin123")

	require.Equal(t, "OpenOffline+Merge+SaveAs+Close+Exit", script.Name())

	rendered, err := script.Render()
	require.NoError(t, err)
	require.Equal(t, strings.Join([]string{
		"OpenOffline /tmp/s/current.rpd Admin123",
		"Merge /tmp/s/ancestor.rpd /tmp/s/other.rpd /tmp/s/decisions.csv Admin123 Admin123 /tmp/s/merged.rpd",
		"SaveAs /tmp/s/merged.rpd",
		"Close",
		"Exit",
	}, lineSeparator), string(rendered))
}

func TestCompareScript(t *testing.T) {
	script := CompareScript("/tmp/s/new.rpd", "/tmp/s/old.rpd", "/tmp/s/comparison_output.csv", "Admin123")

	require.Equal(t, "Hide+OpenOffline+Compare+Close+Exit", script.Name())

	rendered, err := script.Render()
	require.NoError(t, err)
	require.Equal(t, strings.Join([]string{
		"Hide",
		"OpenOffline /tmp/s/new.rpd Admin123",
		"Compare /tmp/s/old.rpd Admin123 /tmp/s/comparison_output.csv",
		"Close",
		"Exit",
	}, lineSeparator), string(rendered))
}

func TestRenderArguments(t *testing.T) {
	for _, tc := range []struct {
		desc        string
		command     Command
		expected    string
		expectedErr string
	}{
		{
			desc:     "plain argument",
			command:  SaveAs{Path: "merged.rpd"},
			expected: "SaveAs merged.rpd",
		},
		{
			desc:     "argument with spaces is quoted",
			command:  SaveAs{Path: `C:\Users\Jane Doe\merged.rpd`},
			expected: `SaveAs "C:\Users\Jane Doe\merged.rpd"`,
		},
		{
			desc:     "argument with tab is quoted",
			command:  OpenOffline{Path: "a\tb.rpd", Password: "pw"},
			expected: "OpenOffline \"a\tb.rpd\" pw",
		},
		{
			desc:        "empty argument",
			command:     OpenOffline{Path: "current.rpd"},
			expectedErr: "OpenOffline argument 2: empty argument: invalid argument",
		},
		{
			desc:        "double quote",
			command:     SaveAs{Path: `say "hi".rpd`},
			expectedErr: `SaveAs argument 1: argument "say \"hi\".rpd" contains forbidden characters: invalid argument`,
		},
		{
			desc:        "newline",
			command:     Compare{Other: "old.rpd", Password: "pw\nExit", Output: "out.csv"},
			expectedErr: `Compare argument 2: argument "pw\nExit" contains forbidden characters: invalid argument`,
		},
		{
			desc:        "carriage return",
			command:     SaveAs{Path: "merged.rpd\r"},
			expectedErr: `SaveAs argument 1: argument "merged.rpd\r" contains forbidden characters: invalid argument`,
		},
		{
			desc:        "null byte",
			command:     SaveAs{Path: "merged\x00.rpd"},
			expectedErr: `SaveAs argument 1: argument "merged\x00.rpd" contains forbidden characters: invalid argument`,
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			rendered, err := Script{tc.command}.Render()
			if tc.expectedErr != "" {
				require.EqualError(t, err, tc.expectedErr)
				require.True(t, IsInvalidArgErr(err))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expected, string(rendered))
		})
	}
}

func TestRedacted(t *testing.T) {
	merge := MergeScript("ancestor.rpd", "current.rpd", "other.rpd", "decisions.csv", "merged.rpd", "Admin123")
	require.NotContains(t, merge.Redacted(), "Admin123")
	require.Contains(t, merge.Redacted(), "Merge ancestor.rpd other.rpd decisions.csv ******** ******** merged.rpd")

	compare := CompareScript("new.rpd", "old.rpd", "out.csv", "Admin123")
	require.Equal(t, strings.Join([]string{
		"Hide",
		"OpenOffline new.rpd ********",
		"Compare old.rpd ******** out.csv",
		"Close",
		"Exit",
	}, lineSeparator), compare.Redacted())

	// Redacting must not touch the script itself.
	rendered, err := compare.Render()
	require.NoError(t, err)
	require.Contains(t, string(rendered), "Admin123")
}

func TestWriteDecisions(t *testing.T) {
	path := filepath.Join(testhelper.TempDir(t), "decisions.csv")
	require.NoError(t, WriteDecisions(path))
	require.Equal(t, "Decision"+lineSeparator, string(testhelper.MustReadFile(t, path)))
}
