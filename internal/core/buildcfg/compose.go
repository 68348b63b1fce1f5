package buildcfg

import (
	"context"
	"fmt"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Compose Validation
// =============================================================================

// ComposeSummary is what the deploy stage needs to know about a parsed
// compose file.
type ComposeSummary struct {
	ServiceNames []string
}

// ValidateCompose parses a compose file's content and checks it describes a
// deployable stack. It catches a broken descriptor before any remote mutation.
func ValidateCompose(yamlContent string) (*ComposeSummary, error) {
	if strings.TrimSpace(yamlContent) == "" {
		return nil, &ParseError{Message: "compose file is empty"}
	}

	var dict map[string]interface{}
	if err := yaml.Unmarshal([]byte(yamlContent), &dict); err != nil {
		return nil, &ParseError{Message: "invalid YAML syntax", Err: err}
	}
	if dict == nil {
		return nil, &ParseError{Message: "invalid YAML syntax"}
	}

	project, err := loader.LoadWithContext(context.Background(), types.ConfigDetails{
		ConfigFiles: []types.ConfigFile{
			{Content: []byte(yamlContent), Config: dict},
		},
	}, func(opts *loader.Options) {
		opts.SetProjectName("caravel-validate", false)
		opts.SkipValidation = false
		opts.SkipInterpolation = false
		// In-memory validation only; no paths to resolve, no external files.
		opts.SkipNormalization = true
		opts.SkipExtends = true
	})
	if err != nil {
		return nil, &ParseError{Message: err.Error(), Err: err}
	}

	if len(project.Services) == 0 {
		return nil, &ParseError{Message: "compose file defines no services"}
	}

	summary := &ComposeSummary{}
	for _, svc := range project.Services {
		if svc.Image == "" && svc.Build == nil {
			return nil, &ParseError{
				Message: fmt.Sprintf("service %q has neither image nor build", svc.Name),
			}
		}
		summary.ServiceNames = append(summary.ServiceNames, svc.Name)
	}
	return summary, nil
}

// =============================================================================
// Errors
// =============================================================================

// ParseError describes an invalid compose descriptor.
type ParseError struct {
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	return "compose descriptor: " + e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
