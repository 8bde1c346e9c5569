package entities

import (
	"errors"
	"fmt"
	"slices"
)

// EnumerateMode selects which dependencies end up in the report.
type EnumerateMode int

const (
	// EnumerateTopLevel keeps only direct normal dependencies of workspace members.
	EnumerateTopLevel EnumerateMode = iota
	// EnumerateAll keeps every package reachable from the workspace members.
	EnumerateAll
)

// Enumerate returns the third-party packages to report on, sorted by
// (name, version) and without duplicates. Workspace members are never part
// of the result. Errors describe an inconsistent resolution; callers wrap
// them into a ResolutionError naming the resolver.
func Enumerate(resolution *Resolution, mode EnumerateMode) ([]*Package, error) {
	if resolution == nil {
		return nil, errors.New("empty resolution")
	}

	var ids []PackageID
	var err error
	switch mode {
	case EnumerateAll:
		ids, err = enumerateTransitive(resolution)
	default:
		ids, err = enumerateDirect(resolution)
	}
	if err != nil {
		return nil, err
	}

	slices.SortFunc(ids, func(a, b PackageID) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		default:
			return 0
		}
	})

	packages := make([]*Package, 0, len(ids))
	for _, id := range ids {
		pkg, ok := resolution.Packages[id]
		if !ok {
			return nil, fmt.Errorf("package %s is part of the graph but was not resolved", id)
		}
		packages = append(packages, pkg)
	}
	return packages, nil
}

func enumerateTransitive(resolution *Resolution) ([]PackageID, error) {
	visited := make(map[PackageID]struct{})
	queue := make([]PackageID, 0, len(resolution.Members))

	for _, member := range resolution.Members {
		if _, ok := resolution.Packages[member]; !ok {
			return nil, missingMemberError(member)
		}
		visited[member] = struct{}{}
		queue = append(queue, member)
	}

	var result []PackageID
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range resolution.Graph[current] {
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			queue = append(queue, next)
			if !resolution.IsMember(next) {
				result = append(result, next)
			}
		}
	}
	return result, nil
}

func enumerateDirect(resolution *Resolution) ([]PackageID, error) {
	seen := make(map[PackageID]struct{})
	var result []PackageID

	for _, member := range resolution.Members {
		pkg, ok := resolution.Packages[member]
		if !ok {
			return nil, missingMemberError(member)
		}

		neighbours := resolution.Graph[member]
		for _, edge := range pkg.Dependencies {
			if edge.Kind != KindNormal {
				continue
			}
			for _, next := range resolveEdge(edge, neighbours) {
				if resolution.IsMember(next) {
					continue
				}
				if _, dup := seen[next]; dup {
					continue
				}
				seen[next] = struct{}{}
				result = append(result, next)
			}
		}
	}
	return result, nil
}

func missingMemberError(member PackageID) error {
	return fmt.Errorf("workspace member %s is missing from the resolved package set", member)
}
