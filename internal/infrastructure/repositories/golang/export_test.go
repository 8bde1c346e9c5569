package golang

// FindGoBinary exports findGoBinary for testing.
var FindGoBinary = findGoBinary //nolint:gochecknoglobals // test export
