package http

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var openapiYAML []byte

var loadSpec = sync.OnceValues(func() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openapiYAML)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	return doc, nil
})

// Spec returns the parsed OpenAPI document describing the inspector routes.
func Spec() (*openapi3.T, error) {
	return loadSpec()
}

// GetOpenAPI handles GET /openapi.yaml.
func (s *Server) GetOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	if _, err := w.Write(openapiYAML); err != nil {
		s.logger.Error("openapi write failed", "err", err)
	}
}

// validateBody checks a JSON body against a named component schema.
func validateBody(schema string, data []byte) error {
	doc, err := Spec()
	if err != nil {
		return err
	}
	ref, ok := doc.Components.Schemas[schema]
	if !ok || ref.Value == nil {
		return fmt.Errorf("schema %q not found", schema)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	return ref.Value.VisitJSON(v)
}
