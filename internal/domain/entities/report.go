package entities

import "slices"

// ReportRow is one line of the summary table.
type ReportRow struct {
	Name     string
	Version  string
	Licenses string
}

// LicenseBundle groups the license files found for one package.
type LicenseBundle struct {
	Name    string
	Version string
	Files   LicenseFileSet
}

// Report is the full BOM: table rows plus license file bundles, both
// sorted by (name, version).
type Report struct {
	Rows    []ReportRow
	Bundles []LicenseBundle
}

// Add appends the entries derived from a single package.
func (it *Report) Add(id PackageID, classification LicenseClassification, files LicenseFileSet) {
	it.Rows = append(it.Rows, ReportRow{
		Name:     id.Name,
		Version:  id.Version,
		Licenses: classification.String(),
	})
	it.Bundles = append(it.Bundles, LicenseBundle{
		Name:    id.Name,
		Version: id.Version,
		Files:   files,
	})
}

// Sort orders rows and bundles by (name, version).
func (it *Report) Sort() {
	slices.SortStableFunc(it.Rows, func(a, b ReportRow) int {
		return compareKeys(a.Name, a.Version, b.Name, b.Version)
	})
	slices.SortStableFunc(it.Bundles, func(a, b LicenseBundle) int {
		return compareKeys(a.Name, a.Version, b.Name, b.Version)
	})
}

// NonEmptyBundles returns only the bundles that carry at least one file.
func (it *Report) NonEmptyBundles() []LicenseBundle {
	var result []LicenseBundle
	for _, bundle := range it.Bundles {
		if len(bundle.Files) > 0 {
			result = append(result, bundle)
		}
	}
	return result
}

func compareKeys(nameA, versionA, nameB, versionB string) int {
	a := PackageID{Name: nameA, Version: versionA}
	b := PackageID{Name: nameB, Version: versionB}
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	default:
		return 0
	}
}
