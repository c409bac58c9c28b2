package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"hookreel/internal/services"
)

// acquireRunLock takes the state directory lock or reports that another
// run holds it.
func acquireRunLock(path string) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "", "acquire run lock",
			fmt.Sprintf("another hookreel run is using %s", filepath.Dir(path)), nil)
	}
	return lock, nil
}
