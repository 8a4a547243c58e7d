package domain

import "fmt"

// Scope is a geographic extent of analysis together with its fixed cluster
// count. A scope with zero clusters is only computed up to its raw tables;
// region-keyed scopes (Large Marine Ecosystems) are never clustered.
type Scope struct {
	Name      string `yaml:"name" json:"name"`
	Clusters  int    `yaml:"clusters" json:"clusters"`
	RegionIDs []int  `yaml:"region_ids,omitempty" json:"region_ids,omitempty"`
}

// Clustered reports whether the scope advances to the CLUSTERED state.
func (s Scope) Clustered() bool { return s.Clusters > 0 }

// RegionKeyed reports whether the scope's rows are regions instead of grid cells.
func (s Scope) RegionKeyed() bool { return len(s.RegionIDs) > 0 }

// DefaultScopes are the cluster counts chosen from the elbow curves of the
// global run and the two regional runs, plus the 66 Large Marine Ecosystems.
func DefaultScopes() []Scope {
	lme := make([]int, 66)
	for i := range lme {
		lme[i] = i + 1
	}
	return []Scope{
		{Name: "global", Clusters: 3},
		{Name: "US", Clusters: 4},
		{Name: "AUS", Clusters: 2},
		{Name: "LME", RegionIDs: lme},
	}
}

// FindScope looks a scope up by name.
func FindScope(scopes []Scope, name string) (Scope, error) {
	for _, s := range scopes {
		if s.Name == name {
			return s, nil
		}
	}
	return Scope{}, fmt.Errorf("%w: %q", ErrUnknownScope, name)
}

// Unit is one independently processed (scenario, scope) pair.
type Unit struct {
	Scenario string
	Scope    Scope
}

func (u Unit) String() string { return u.Scenario + "/" + u.Scope.Name }
