package main

import (
	"encoding/json"
	"net/http"
)

// errorResponse is the plain error body used for request-validation and
// method-not-allowed failures. It is distinct from runErrorResponse, which
// is the Init/Execute location-tagged body.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response to http.ResponseWriter.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a plain error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorResponse{Error: message})
}

// readJSONBody reads and decodes JSON from the request body.
func readJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
