package server

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var openapiDocument []byte

// loadAPISpec parses and validates the embedded OpenAPI document. A broken
// document is a build defect, so server construction fails on it.
func loadAPISpec(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()

	doc, err := loader.LoadFromData(openapiDocument)
	if err != nil {
		return nil, fmt.Errorf("load embedded openapi document: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("embedded openapi document resolved to nil")
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate embedded openapi document: %w", err)
	}
	return doc, nil
}
