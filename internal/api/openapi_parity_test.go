package api

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestOpenAPIContainsServedPaths(t *testing.T) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	repoRoot := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	content, err := os.ReadFile(filepath.Join(repoRoot, "api", "openapi.yaml"))
	if err != nil {
		t.Fatalf("read openapi file error = %v", err)
	}

	var document struct {
		Paths map[string]map[string]any `yaml:"paths"`
	}
	if err := yaml.Unmarshal(content, &document); err != nil {
		t.Fatalf("parse openapi file: %v", err)
	}

	served := map[string]string{
		"/":                "get",
		"/ask":             "post",
		"/v1/ask":          "post",
		"/v1/schema":       "get",
		"/v1/pipeline/run": "post",
		"/v1/health":       "get",
		"/v1/ready":        "get",
		"/v1/metrics":      "get",
	}
	for path, method := range served {
		operations, ok := document.Paths[path]
		if !ok {
			t.Fatalf("openapi missing path %s", path)
		}
		if _, ok := operations[method]; !ok {
			t.Fatalf("openapi path %s missing %s", path, method)
		}
	}
}
