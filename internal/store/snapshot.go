package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-cli/internal/model"
)

// Snapshot is the local JSON copy of a run's records. Each Write replaces
// the previous file.
type Snapshot struct {
	path string
}

// NewSnapshot returns a Snapshot that writes to path.
func NewSnapshot(path string) *Snapshot {
	return &Snapshot{path: path}
}

// Path returns the snapshot file location.
func (s *Snapshot) Path() string { return s.path }

// Write stores leads as an indented JSON array. The file is written to a
// temporary sibling and renamed into place, so readers never see a partial
// snapshot.
func (s *Snapshot) Write(leads []model.LeadRecord) error {
	if leads == nil {
		leads = []model.LeadRecord{}
	}
	data, err := json.MarshalIndent(leads, "", "  ")
	if err != nil {
		return eris.Wrap(err, "snapshot: marshal")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "snapshot: create dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return eris.Wrap(err, "snapshot: create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "snapshot: write")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "snapshot: sync")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "snapshot: close")
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return eris.Wrap(err, "snapshot: chmod")
	}
	return eris.Wrapf(os.Rename(tmp.Name(), s.path), "snapshot: rename to %s", s.path)
}

// ReadSnapshot loads a snapshot written by Write.
func ReadSnapshot(path string) ([]model.LeadRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "snapshot: read %s", path)
	}
	var leads []model.LeadRecord
	if err := json.Unmarshal(data, &leads); err != nil {
		return nil, eris.Wrapf(err, "snapshot: parse %s", path)
	}
	return leads, nil
}
