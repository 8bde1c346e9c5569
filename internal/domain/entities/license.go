package entities

import (
	"slices"
	"strings"
)

const (
	licenseFileDisplay = "Specified in license file"
	missingDisplay     = "Missing"
)

// LicenseVariant tells which kind of classification applies.
type LicenseVariant int

const (
	LicenseMissing LicenseVariant = iota
	LicenseIdentifiers
	LicenseDeclaredFile
)

// LicenseClassification is the normalised license information of one package.
// Exactly one of the variants applies.
type LicenseClassification struct {
	Variant     LicenseVariant
	Identifiers []string // sorted, unique; set for LicenseIdentifiers
	File        string   // set for LicenseDeclaredFile
}

// ClassifyLicense derives a classification from the declared license
// expression and license file of a package. An expression always wins over
// a license file.
//
// The expression is split on the words OR and AND and on the legacy '/'
// separator. Parentheses are not interpreted, so grouped expressions such as
// "(MIT AND Apache-2.0) OR GPL-2.0" keep the parentheses in their tokens.
func ClassifyLicense(expression, licenseFile string) LicenseClassification {
	if strings.TrimSpace(expression) != "" {
		return LicenseClassification{
			Variant:     LicenseIdentifiers,
			Identifiers: splitLicenseExpression(expression),
		}
	}

	if strings.TrimSpace(licenseFile) != "" {
		return LicenseClassification{Variant: LicenseDeclaredFile, File: licenseFile}
	}

	return LicenseClassification{Variant: LicenseMissing}
}

// String renders the classification for the report table.
func (it LicenseClassification) String() string {
	switch it.Variant {
	case LicenseIdentifiers:
		return strings.Join(it.Identifiers, ", ")
	case LicenseDeclaredFile:
		return licenseFileDisplay
	default:
		return missingDisplay
	}
}

func splitLicenseExpression(expression string) []string {
	seen := make(map[string]struct{})
	var tokens []string

	for _, part := range strings.Split(expression, "/") {
		var current []string
		flush := func() {
			token := strings.TrimSpace(strings.Join(current, " "))
			current = current[:0]
			if token == "" {
				return
			}
			if _, dup := seen[token]; dup {
				return
			}
			seen[token] = struct{}{}
			tokens = append(tokens, token)
		}

		for _, word := range strings.Fields(part) {
			if word == "OR" || word == "AND" {
				flush()
				continue
			}
			current = append(current, word)
		}
		flush()
	}

	slices.Sort(tokens)
	return tokens
}
