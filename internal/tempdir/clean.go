package tempdir

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// MaxAge is the age after which session directories left behind by killed
// invocations are removed by Clean.
const MaxAge = 24 * time.Hour

type invalidCleanRoot string

// Clean removes session directories in root older than maxAge. Git may kill
// a driver, or the administration tool may hang until the timeout fires;
// either way a session directory survives and would otherwise accumulate
// copies of the repository file.
func Clean(logger logrus.FieldLogger, root string, maxAge time.Duration) error {
	start := time.Now()

	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var removed int
	for _, entry := range entries {
		// If we start "cleaning up" the wrong directory we may delete user
		// data which is Really Bad.
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), Prefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}

		if time.Since(info.ModTime()) < maxAge {
			continue
		}

		if err := os.RemoveAll(filepath.Join(root, entry.Name())); err != nil {
			return err
		}
		removed++
	}

	logger.WithFields(logrus.Fields{
		"time_ms": time.Since(start).Milliseconds(),
		"removed": removed,
		"root":    root,
	}).Debug("finished tempdir cleaner walk")

	return nil
}
