package http_test

import (
	"net/http"
	"testing"

	studiohttp "github.com/aretw0/studio/pkg/adapters/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpec(t *testing.T) {
	doc, err := studiohttp.Spec()
	require.NoError(t, err)

	routes := map[string]string{
		"/health":         http.MethodGet,
		"/info":           http.MethodGet,
		"/view":           http.MethodGet,
		"/journal":        http.MethodGet,
		"/journal/undo":   http.MethodPost,
		"/journal/redo":   http.MethodPost,
		"/activities":     http.MethodGet,
		"/studios/{name}": http.MethodPost,
		"/events":         http.MethodPost,
		"/stream":         http.MethodGet,
		"/metrics":        http.MethodGet,
		"/openapi.yaml":   http.MethodGet,
	}
	for path, method := range routes {
		item := doc.Paths.Value(path)
		require.NotNil(t, item, path)
		assert.NotNil(t, item.GetOperation(method), "%s %s", method, path)
	}
	assert.Contains(t, doc.Components.Schemas, "EventRequest")
}

func TestGetOpenAPI(t *testing.T) {
	h := studiohttp.NewHandler(newApp(t))

	w := do(t, h, http.MethodGet, "/openapi.yaml", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/yaml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "openapi: 3.0.3")
	assert.Contains(t, w.Body.String(), "EventRequest:")
}
