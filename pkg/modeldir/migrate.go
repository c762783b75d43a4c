package modeldir

import (
	"errors"
	"fmt"
	"os"
)

// Rewrite converts metadata written under an old policy name into the form
// expected under the new one. It must not have side effects.
type Rewrite func(data []byte) ([]byte, error)

// MigrateMeta moves the metadata file written under a policy's old name to
// the name of the policy that replaced it, passing its content through
// rewrite. The operation is idempotent: it reports false without error if the
// old file does not exist or the new file already exists. The directory is
// left untouched when rewrite fails.
func MigrateMeta(d Dir, oldName, newName string, rewrite Rewrite) (bool, error) {
	oldPath := d.MetaPath(oldName)
	newPath := d.MetaPath(newName)

	data, err := os.ReadFile(oldPath) //nolint:gosec // path is derived from the caller's model directory
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("modeldir: migrate %s: read old path: %w", oldName, err)
	}

	// Don't overwrite metadata that already uses the new name.
	if _, err := os.Stat(newPath); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("modeldir: migrate %s: stat new path: %w", oldName, err)
	}

	if rewrite != nil {
		if data, err = rewrite(data); err != nil {
			return false, fmt.Errorf("modeldir: migrate %s: %w", oldName, err)
		}
	}

	if err := os.WriteFile(newPath, data, 0o600); err != nil {
		return false, fmt.Errorf("modeldir: migrate %s: %w", oldName, err)
	}

	if err := os.Remove(oldPath); err != nil {
		return false, fmt.Errorf("modeldir: migrate %s: remove old path: %w", oldName, err)
	}

	return true, nil
}
