package entities

import "fmt"

// DependencyKind tags a declared dependency edge.
type DependencyKind string

const (
	KindNormal      DependencyKind = "normal"
	KindBuild       DependencyKind = "build"
	KindDevelopment DependencyKind = "development"
)

// PackageID identifies a resolved package by name and version.
type PackageID struct {
	Name    string
	Version string
}

func (id PackageID) String() string {
	return fmt.Sprintf("%s %s", id.Name, id.Version)
}

// Less orders identifiers by name, then version.
func (id PackageID) Less(other PackageID) bool {
	if id.Name != other.Name {
		return id.Name < other.Name
	}
	return id.Version < other.Version
}

// DependencyEdge is a dependency declared in a package manifest.
type DependencyEdge struct {
	Name        string         // Package name (after any rename is undone)
	Requirement string         // Version constraint as written in the manifest
	Kind        DependencyKind // normal, build or development
}

// Package is a read-only view of one resolved package.
type Package struct {
	ID           PackageID
	ManifestDir  string // Directory holding the package manifest
	License      string // License expression; empty when not declared
	LicenseFile  string // License file relative to ManifestDir; empty when not declared
	Dependencies []DependencyEdge
}

// Resolution is what a resolver hands back: workspace members, every
// resolved package, and the resolved edges between them.
type Resolution struct {
	Members  []PackageID
	Packages map[PackageID]*Package
	Graph    map[PackageID][]PackageID
}

// NewResolution creates an empty resolution.
func NewResolution() *Resolution {
	return &Resolution{
		Packages: make(map[PackageID]*Package),
		Graph:    make(map[PackageID][]PackageID),
	}
}

// AddPackage registers a package, replacing any previous entry with the same ID.
func (r *Resolution) AddPackage(pkg *Package) {
	r.Packages[pkg.ID] = pkg
}

// AddMember marks an already added package as workspace member.
func (r *Resolution) AddMember(id PackageID) {
	for _, member := range r.Members {
		if member == id {
			return
		}
	}
	r.Members = append(r.Members, id)
}

// Link records a resolved edge from one package to another.
func (r *Resolution) Link(from, to PackageID) {
	for _, existing := range r.Graph[from] {
		if existing == to {
			return
		}
	}
	r.Graph[from] = append(r.Graph[from], to)
}

// IsMember reports whether id belongs to the workspace.
func (r *Resolution) IsMember(id PackageID) bool {
	for _, member := range r.Members {
		if member == id {
			return true
		}
	}
	return false
}
