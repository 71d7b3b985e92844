package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/llm"
	"github.com/askdb/askdb/internal/pipeline"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("askdb-api", mapLookup(map[string]string{
		"ASKDB_AI_API_KEY": "test-key",
	}))
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	return cfg
}

func mapLookup(values map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

type fakePipeline struct {
	answer    pipeline.Answer
	answerErr error
	streamed  pipeline.StreamedAnswer
	streamErr error
	runResult pipeline.ResultSet
	runErr    error
	ranSQL    []string
	questions []string
}

func (f *fakePipeline) Answer(_ context.Context, question string) (pipeline.Answer, error) {
	f.questions = append(f.questions, question)
	return f.answer, f.answerErr
}

func (f *fakePipeline) AnswerStream(_ context.Context, question string) (pipeline.StreamedAnswer, error) {
	f.questions = append(f.questions, question)
	return f.streamed, f.streamErr
}

func (f *fakePipeline) RunSQL(_ context.Context, sqlText string) (pipeline.ResultSet, error) {
	f.ranSQL = append(f.ranSQL, sqlText)
	return f.runResult, f.runErr
}

type fakeSchemaSource struct {
	tables     []string
	tablesErr  error
	schemas    map[string]string
	schemaErr  error
	listCalls  int
	fetchCalls int
}

func (f *fakeSchemaSource) ListTables(context.Context) ([]string, error) {
	f.listCalls++
	return f.tables, f.tablesErr
}

func (f *fakeSchemaSource) TableSchema(_ context.Context, table string) (string, error) {
	f.fetchCalls++
	if f.schemaErr != nil {
		return "", f.schemaErr
	}
	return f.schemas[table], nil
}

type fakeCache struct {
	cleared int
}

func (f *fakeCache) Clear() {
	f.cleared++
}

func fragmentChannel(texts ...string) <-chan llm.Fragment {
	out := make(chan llm.Fragment, len(texts))
	for _, text := range texts {
		out <- llm.Fragment{Text: text}
	}
	close(out)
	return out
}

func TestRootEndpointListsAPI(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if body["endpoints"] == nil {
		t.Fatal("root response should list endpoints")
	}
}

func TestTestEndpointReportsDatabaseConnectivity(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{
		Ping: func(context.Context) error { return nil },
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/test", nil))

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if body["database_connected"] != true {
		t.Fatalf("database_connected = %v", body["database_connected"])
	}
}

func TestTestEndpointReportsDisconnectedDatabase(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{
		Ping: func(context.Context) error { return errors.New("down") },
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/test", nil))

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if body["database_connected"] != false {
		t.Fatalf("database_connected = %v", body["database_connected"])
	}
}

func TestClearCacheEndpoint(t *testing.T) {
	cache := &fakeCache{}
	h := NewHandler(testConfig(t), Dependencies{Cache: cache})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/clear-cache", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if cache.cleared != 1 {
		t.Fatalf("Clear called %d times", cache.cleared)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if body["message"] != "Cache cleared successfully" {
		t.Fatalf("message = %v", body["message"])
	}
}
