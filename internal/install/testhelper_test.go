package install

import (
	"testing"

	"gitlab.com/us-analytics/merge-rpd/internal/testhelper"
)

func TestMain(m *testing.M) {
	testhelper.Run(m)
}
