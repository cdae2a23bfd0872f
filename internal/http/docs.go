package httpapp

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openapiYAML []byte

var errMissingUsername = errors.New("Provided username must be nonempty.")

// openapiJSON converts the embedded YAML document to JSON.
func openapiJSON() ([]byte, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(openapiYAML, &doc); err != nil {
		return nil, fmt.Errorf("parse openapi: %w", err)
	}
	return json.Marshal(doc)
}

func (s *Server) serveOpenAPIYAML(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/x-yaml; charset=utf-8")
	_, _ = w.Write(openapiYAML)
}

func (s *Server) serveOpenAPIJSON(w http.ResponseWriter, r *http.Request) {
	doc, err := openapiJSON()
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write(doc)
}

func swaggerHandler() http.Handler {
	return httpSwagger.Handler(httpSwagger.URL("/api/openapi.json"))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.log.WithError(err).Error("health check")
		writeError(w, http.StatusServiceUnavailable, errors.New("store unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
