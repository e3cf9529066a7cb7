// Package guard forces test mode for any test binary that imports it,
// so the cmd entrypoints refuse to start a real server during tests.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("ATELIER_TEST_MODE") == "" {
			_ = os.Setenv("ATELIER_TEST_MODE", "1")
		}
	})
}
