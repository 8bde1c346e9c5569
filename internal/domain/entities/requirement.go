package entities

import (
	mm "github.com/Masterminds/semver/v3"
	logger "github.com/sirupsen/logrus"
)

// Satisfies reports whether version meets the requirement of the edge. An
// empty requirement, or one that is not a semantic version constraint
// (git revisions, npm aliases, "latest"), accepts every version.
func (e DependencyEdge) Satisfies(version string) bool {
	if e.Requirement == "" {
		return true
	}

	constraint, err := mm.NewConstraint(e.Requirement)
	if err != nil {
		logger.Tracef("Requirement %q of %s is not a semver constraint: %v", e.Requirement, e.Name, err)
		return true
	}
	parsed, err := mm.NewVersion(version)
	if err != nil {
		logger.Tracef("Version %q of %s is not a semver version: %v", version, e.Name, err)
		return true
	}
	return constraint.Check(parsed)
}

// resolveEdge picks the graph neighbours an edge points at. A single
// neighbour with the edge name is taken as is, since the resolver already
// selected it. Several versions of the same name are narrowed down by the
// requirement of the edge.
func resolveEdge(edge DependencyEdge, neighbours []PackageID) []PackageID {
	var candidates []PackageID
	for _, next := range neighbours {
		if next.Name == edge.Name {
			candidates = append(candidates, next)
		}
	}
	if len(candidates) <= 1 {
		return candidates
	}

	var matching []PackageID
	for _, candidate := range candidates {
		if edge.Satisfies(candidate.Version) {
			matching = append(matching, candidate)
		}
	}
	if len(matching) == 0 {
		logger.Debugf("No version of %s satisfies %q, keeping every resolved version", edge.Name, edge.Requirement)
		return candidates
	}
	return matching
}
