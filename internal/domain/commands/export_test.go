package commands

// SplitManifestPath exports splitManifestPath for testing.
var SplitManifestPath = splitManifestPath //nolint:gochecknoglobals // test export

// BuildReport exports buildReport for testing.
var BuildReport = buildReport //nolint:gochecknoglobals // test export
