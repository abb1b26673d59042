package main

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriteJSON_SetsContentTypeAndStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, 201, map[string]string{"foo": "bar"})

	if rec.Code != 201 {
		t.Fatalf("expected status 201, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected application/json, got %q", got)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}
	if body["foo"] != "bar" {
		t.Fatalf("expected foo=bar, got %v", body)
	}
}

func TestWriteError_WrapsMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, 400, "bad request")

	if rec.Code != 400 {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}

	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}
	if body.Error != "bad request" {
		t.Fatalf("expected error=bad request, got %q", body.Error)
	}
}

func TestReadJSONBody_DecodesValidBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"environment":"x","query":"SELECT 1"}`))

	var body runRequest
	if err := readJSONBody(req, &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body.Environment != "x" || body.Query != "SELECT 1" {
		t.Fatalf("unexpected decoded body: %+v", body)
	}
}

func TestReadJSONBody_RejectsMalformedBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader("not json"))

	var body runRequest
	if err := readJSONBody(req, &body); err == nil {
		t.Fatal("expected error decoding malformed body")
	}
}
