// Package store persists pipeline artifacts. Payloads are zstd-compressed gob
// files; a SQLite manifest records which artifacts are complete. An artifact
// counts as present only when its manifest row exists for the current
// pipeline version and configuration fingerprint and its file checksum matches.
package store

import (
	"fmt"
	"path/filepath"

	"github.com/couchcryptid/seaweed-cluster/internal/domain"
)

// Stage is the pipeline state an artifact belongs to.
type Stage string

const (
	StageRaw       Stage = "raw"
	StageClustered Stage = "clustered"
	StageElbow     Stage = "elbow"
)

// Key identifies an artifact. Artifacts written under another Version or
// Fingerprint are never served.
type Key struct {
	Scenario    string
	Scope       string
	Parameter   domain.Parameter
	Stage       Stage
	Version     int
	Fingerprint string
}

// ElbowParameter is the parameter slot used for elbow curve artifacts.
const ElbowParameter domain.Parameter = "inertia"

// RelPath returns the artifact file path relative to the data directory.
func (k Key) RelPath() string {
	name := fmt.Sprintf("%s.v%d-%s.gob.zst", k.Parameter, k.Version, k.Fingerprint)
	return filepath.Join(k.Scenario, k.Scope, string(k.Stage), name)
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s/%s@v%d-%s", k.Scenario, k.Scope, k.Stage, k.Parameter, k.Version, k.Fingerprint)
}
