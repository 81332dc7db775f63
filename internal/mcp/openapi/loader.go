package openapi

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// LoadSpec loads and validates an OpenAPI document from a local file.
func LoadSpec(path string) (*openapi3.T, error) {
	source := strings.TrimSpace(path)
	if source == "" {
		return nil, fmt.Errorf("openapi source is required")
	}
	if _, err := os.Stat(source); err != nil {
		return nil, fmt.Errorf("openapi spec path %q: %w", source, err)
	}

	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true

	doc, err := loader.LoadFromFile(source)
	if err != nil {
		return nil, fmt.Errorf("load openapi spec from %q: %w", source, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("openapi spec %q resolved to nil document", source)
	}

	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate openapi spec %q: %w", source, err)
	}
	return doc, nil
}
