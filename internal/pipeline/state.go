package pipeline

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/couchcryptid/seaweed-cluster/internal/domain"
	"github.com/couchcryptid/seaweed-cluster/internal/store"
)

// State is the progress of a (scenario, scope) unit.
type State int

const (
	RawMissing State = iota
	RawComputed
	Clustered
)

func (s State) String() string {
	switch s {
	case RawMissing:
		return "RAW_MISSING"
	case RawComputed:
		return "RAW_COMPUTED"
	case Clustered:
		return "CLUSTERED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Key returns the artifact key of one parameter of a unit at a stage.
func (p *Pipeline) Key(u domain.Unit, param domain.Parameter, stage store.Stage) store.Key {
	return store.Key{
		Scenario:    u.Scenario,
		Scope:       u.Scope.Name,
		Parameter:   param,
		Stage:       stage,
		Version:     p.settings.Version,
		Fingerprint: p.fingerprint(stage, u.Scope),
	}
}

// fingerprint hashes the settings that determine an artifact's content, so a
// change to any of them yields a new key instead of a stale hit.
func (p *Pipeline) fingerprint(stage store.Stage, scope domain.Scope) string {
	h := xxhash.New()
	_, _ = fmt.Fprintf(h, "%s|precision=%d|regions=%v", stage, domain.CoordinatePrecision, scope.RegionIDs)

	c := p.settings.Cluster
	switch stage {
	case store.StageClustered:
		_, _ = fmt.Fprintf(h, "|k=%d|seed=%d|iter=%d|tol=%g|dba=%d|window=%d",
			scope.Clusters, c.Seed, c.MaxIter, c.Tol, c.BarycenterMaxIter, c.Window)
	case store.StageElbow:
		_, _ = fmt.Fprintf(h, "|k=%d..%d|seed=%d|iter=%d|tol=%g|dba=%d|window=%d",
			p.settings.ElbowMinK, p.settings.ElbowMaxK, c.Seed, c.MaxIter, c.Tol, c.BarycenterMaxIter, c.Window)
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
