package handlers

import (
	_ "embed"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openAPIDocument []byte

// OpenAPIHandler serves the API description
type OpenAPIHandler struct {
	document []byte
}

// NewOpenAPIHandler creates a handler serving the embedded document
func NewOpenAPIHandler() *OpenAPIHandler {
	return &OpenAPIHandler{document: openAPIDocument}
}

// RegisterRoutes registers OpenAPI routes
func (h *OpenAPIHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/openapi.yaml", h.ServeYAML).Methods(http.MethodGet)
	r.HandleFunc("/openapi.json", h.ServeJSON).Methods(http.MethodGet)
}

// ServeYAML serves the document as YAML
func (h *OpenAPIHandler) ServeYAML(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/x-yaml")
	if _, err := w.Write(h.document); err != nil {
		http.Error(w, "Failed to write response", http.StatusInternalServerError)
	}
}

// ServeJSON converts the YAML document to JSON
func (h *OpenAPIHandler) ServeJSON(w http.ResponseWriter, r *http.Request) {
	var doc map[string]any
	if err := yaml.Unmarshal(h.document, &doc); err != nil {
		http.Error(w, "Failed to parse OpenAPI specification", http.StatusInternalServerError)
		return
	}

	data, err := json.Marshal(doc)
	if err != nil {
		http.Error(w, "Failed to encode JSON response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}
