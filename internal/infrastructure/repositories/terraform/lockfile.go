package terraform

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// lockedProvider is one `provider` block of .terraform.lock.hcl.
type lockedProvider struct {
	Address     string
	Version     string
	Constraints string
}

// moduleCall is a `module` block of the root configuration.
type moduleCall struct {
	Name   string
	Source string
	File   string
	Line   int
}

var (
	refPattern       = regexp.MustCompile(`[?&]ref=([^&\s"]+)`)
	refStripPattern  = regexp.MustCompile(`[?&]ref=[^&\s"]+`)
	localPathPattern = regexp.MustCompile(`^\.\.?/`)
)

// parseLockfile reads the provider selections from .terraform.lock.hcl.
func parseLockfile(path string) ([]lockedProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse %s: %s", path, diags.Error())
	}

	content, _, diags := file.Body.PartialContent(&hcl.BodySchema{
		Blocks: []hcl.BlockHeaderSchema{
			{Type: "provider", LabelNames: []string{"address"}},
		},
	})
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to read %s: %s", path, diags.Error())
	}

	providers := make([]lockedProvider, 0, len(content.Blocks))
	for _, block := range content.Blocks {
		attrs, _ := block.Body.JustAttributes()
		provider := lockedProvider{
			Address:     block.Labels[0],
			Version:     stringAttribute(attrs, "version"),
			Constraints: stringAttribute(attrs, "constraints"),
		}
		if provider.Version == "" {
			return nil, fmt.Errorf("provider %q in %s has no version", provider.Address, path)
		}
		providers = append(providers, provider)
	}
	return providers, nil
}

// scanModuleCalls lists the `module` blocks of every *.tf file in dir.
// Files that fail to parse are reported as errors: terraform itself would
// refuse them.
func scanModuleCalls(dir string) ([]moduleCall, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.tf"))
	if err != nil {
		return nil, err
	}

	parser := hclparse.NewParser()
	var calls []moduleCall
	for _, path := range files {
		file, diags := parser.ParseHCLFile(path)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse %s: %s", path, diags.Error())
		}

		content, _, partialDiags := file.Body.PartialContent(&hcl.BodySchema{
			Blocks: []hcl.BlockHeaderSchema{
				{Type: "module", LabelNames: []string{"name"}},
			},
		})
		if partialDiags.HasErrors() {
			return nil, fmt.Errorf("failed to read %s: %s", path, partialDiags.Error())
		}

		for _, block := range content.Blocks {
			attrs, _ := block.Body.JustAttributes()
			calls = append(calls, moduleCall{
				Name:   block.Labels[0],
				Source: stringAttribute(attrs, "source"),
				File:   filepath.Base(path),
				Line:   block.DefRange.Start.Line,
			})
		}
	}
	return calls, nil
}

// position is where the call is written, as "main.tf:12".
func (c moduleCall) position() string {
	return fmt.Sprintf("%s:%d", c.File, c.Line)
}

// installedFrom reports whether an entry of modules.json was installed from
// the source the call declares. Registry sources are recorded with their
// host, so "hashicorp/consul/aws" matches
// "registry.terraform.io/hashicorp/consul/aws".
func (c moduleCall) installedFrom(source string) bool {
	if c.Source == "" || c.Source == source {
		return true
	}
	return strings.HasSuffix(source, "/"+c.Source)
}

// stringAttribute evaluates a literal string attribute, returning "" for
// anything that is missing or not a known string.
func stringAttribute(attrs hcl.Attributes, name string) string {
	attr, ok := attrs[name]
	if !ok {
		return ""
	}
	value, diags := attr.Expr.Value(&hcl.EvalContext{})
	if diags.HasErrors() || value.IsNull() || !value.IsKnown() || value.Type() != cty.String {
		return ""
	}
	return value.AsString()
}

// isLocalSource reports whether a module source is a path inside the
// calling module rather than a package of its own.
func isLocalSource(source string) bool {
	return localPathPattern.MatchString(source)
}

// extractRef returns the ?ref= of a git module source.
func extractRef(source string) string {
	if matches := refPattern.FindStringSubmatch(source); len(matches) > 1 {
		return matches[1]
	}
	return ""
}

// cleanSource drops the git:: forcing prefix and the ?ref= parameter.
func cleanSource(source string) string {
	cleaned := strings.TrimPrefix(source, "git::")
	cleaned = refStripPattern.ReplaceAllString(cleaned, "")
	return strings.TrimSuffix(cleaned, "?")
}
