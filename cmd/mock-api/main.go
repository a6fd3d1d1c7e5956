// Package main implements a mock API server for e2e testing.
// It serves JSON responses from fixture files, routing by method and
// path. This eliminates the need for a real backend while exercising
// the full probe-compare-reconcile pipeline against controlled drift.
//
// Usage:
//
//	mock-api -fixtures /path/to/fixtures -port 8080
//
// A request maps to a fixture by lowercasing the method and replacing
// path slashes with underscores: "GET /orders/42" reads the file
// "get_orders_42.json". Each fixture is a JSON document:
//
//	{
//	  "status": 200,
//	  "headers": {"X-Request-Id": "fixed"},
//	  "body": {"id": 42, "status": "open"}
//	}
//
// Omitted status defaults to 200. A missing fixture returns 404.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type fixture struct {
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    json.RawMessage   `json:"body"`
}

type server struct {
	fixturesDir string
	logger      *slog.Logger
}

// fixtureKey maps "GET /orders/42" to "get_orders_42".
func fixtureKey(method, path string) string {
	p := strings.Trim(path, "/")
	p = strings.ReplaceAll(p, "/", "_")
	if p == "" {
		p = "root"
	}
	return strings.ToLower(method) + "_" + p
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := fixtureKey(r.Method, r.URL.Path)
	path := filepath.Join(s.fixturesDir, key+".json")

	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Warn("no fixture", "method", r.Method, "path", r.URL.Path, "fixture", key)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = fmt.Fprintf(w, `{"error":"no fixture for %s %s"}`, r.Method, r.URL.Path)
		return
	}

	var fx fixture
	if err := json.Unmarshal(data, &fx); err != nil {
		s.logger.Error("malformed fixture", "fixture", key, "error", err)
		http.Error(w, "malformed fixture", http.StatusInternalServerError)
		return
	}
	if fx.Status == 0 {
		fx.Status = http.StatusOK
	}

	w.Header().Set("Content-Type", "application/json")
	for name, value := range fx.Headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(fx.Status)
	_, _ = w.Write(fx.Body)

	s.logger.Info("served fixture",
		"method", r.Method,
		"path", r.URL.Path,
		"fixture", key,
		"status", fx.Status)
}

func main() {
	fixturesDir := flag.String("fixtures", "fixtures", "Directory of response fixtures")
	port := flag.Int("port", 8080, "Listen port")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	info, err := os.Stat(*fixturesDir)
	if err != nil || !info.IsDir() {
		logger.Error("fixtures directory not found", "dir", *fixturesDir)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", *port),
		Handler:           &server{fixturesDir: *fixturesDir, logger: logger},
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("mock API listening", "addr", srv.Addr, "fixtures", *fixturesDir)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
