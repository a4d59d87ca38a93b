package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("KHARCHA_TEST_MODE") == "" {
			_ = os.Setenv("KHARCHA_TEST_MODE", "1")
		}
	})
}
