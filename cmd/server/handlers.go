package main

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/lychee-technology/sqlsandbox"
	"github.com/lychee-technology/sqlsandbox/internal/engine"
	"go.uber.org/zap"
)

// runRequest is the wire shape of the `run` operation.
type runRequest struct {
	Environment string `json:"environment"`
	Query       string `json:"query"`
}

type runResponse struct {
	ResultSet sandbox.ResultSet `json:"result_set"`
}

// runErrorResponse is the legacy error body for Init/Execute failures: the
// adapter returns HTTP 200 with this body rather than a protocol error.
type runErrorResponse struct {
	Location string `json:"location"`
	Error    string `json:"error"`
}

// handleRun implements POST /api/v1/run.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	requestID := uuid.New()
	var body runRequest
	if err := readJSONBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body: "+err.Error())
		return
	}

	resultSet, err := s.engine.Run(r.Context(), body.Environment, body.Query)
	if err != nil {
		zap.S().Errorw("run failed", "request_id", requestID, "error", err)
		writeSandboxError(w, err)
		return
	}

	zap.S().Infow("run succeeded", "request_id", requestID, "rows", len(resultSet.Rows))
	writeJSON(w, http.StatusOK, runResponse{ResultSet: resultSet})
}

// compareRequest is the wire shape of the `compare` operation. Defaults to
// row_normalisation=NoNormalization, column_normalisation=NumberColumnsByOrder.
type compareRequest struct {
	Environment         string                      `json:"environment"`
	Solution            string                      `json:"solution"`
	Submission          string                      `json:"submission"`
	RowNormalisation    sandbox.RowNormalisation    `json:"row_normalisation"`
	ColumnNormalisation sandbox.ColumnNormalisation `json:"column_normalisation"`
}

type compareResponse struct {
	Solution   runResponse `json:"solution"`
	Submission runResponse `json:"submission"`
	Equal      bool        `json:"equal"`
}

// handleCompare implements POST /api/v1/compare.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	requestID := uuid.New()
	body := compareRequest{
		RowNormalisation:    sandbox.RowNormalisationNone,
		ColumnNormalisation: sandbox.ColumnNormalisationNumberByOrder,
	}
	if err := readJSONBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body: "+err.Error())
		return
	}

	solution, submission, equal, err := s.engine.Compare(r.Context(), body.Environment, body.Solution, body.Submission, body.RowNormalisation, body.ColumnNormalisation)
	if err != nil {
		zap.S().Errorw("compare failed", "request_id", requestID, "error", err)
		writeSandboxError(w, err)
		return
	}

	zap.S().Infow("compare succeeded", "request_id", requestID, "equal", equal)
	writeJSON(w, http.StatusOK, compareResponse{
		Solution:   runResponse{ResultSet: solution},
		Submission: runResponse{ResultSet: submission},
		Equal:      equal,
	})
}

// batchSolutionRequest is one entry of batch_compare's solutions array.
type batchSolutionRequest struct {
	Query               string                      `json:"query"`
	RowNormalisation    sandbox.RowNormalisation    `json:"row_normalisation"`
	ColumnNormalisation sandbox.ColumnNormalisation `json:"column_normalisation"`
	ReturnResultSet     bool                        `json:"return_result_set"`
}

type batchCompareRequest struct {
	Environment string                 `json:"environment"`
	Solutions   []batchSolutionRequest `json:"solutions"`
	Submission  string                 `json:"submission"`
}

type batchSolutionResponse struct {
	Equal     bool               `json:"eq"`
	ResultSet *sandbox.ResultSet `json:"result_set,omitempty"`
	Error     string             `json:"error,omitempty"`
}

type batchCompareResponse struct {
	Solutions           []batchSolutionResponse `json:"solutions"`
	SubmissionResultSet *sandbox.ResultSet      `json:"submission_result_set,omitempty"`
}

// handleBatchCompare implements POST /api/v1/batch_compare.
func (s *Server) handleBatchCompare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	requestID := uuid.New()
	var body batchCompareRequest
	if err := readJSONBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body: "+err.Error())
		return
	}
	if len(body.Solutions) == 0 {
		writeError(w, http.StatusBadRequest, "solutions must not be empty")
		return
	}

	specs := make([]engine.SolutionSpec, len(body.Solutions))
	for i, sol := range body.Solutions {
		rowNorm := sol.RowNormalisation
		if rowNorm == "" {
			rowNorm = sandbox.RowNormalisationNone
		}
		colNorm := sol.ColumnNormalisation
		if colNorm == "" {
			colNorm = sandbox.ColumnNormalisationNumberByOrder
		}
		specs[i] = engine.SolutionSpec{
			Query:               sol.Query,
			RowNormalisation:    rowNorm,
			ColumnNormalisation: colNorm,
			ReturnResultSet:     sol.ReturnResultSet,
		}
	}

	result := s.engine.BatchCompare(r.Context(), body.Environment, body.Submission, specs)

	response := batchCompareResponse{
		Solutions:           make([]batchSolutionResponse, len(result.Solutions)),
		SubmissionResultSet: result.SubmissionResultSet,
	}
	for i, outcome := range result.Solutions {
		if outcome.Err != nil {
			response.Solutions[i] = batchSolutionResponse{Error: outcome.Err.Error()}
			continue
		}
		response.Solutions[i] = batchSolutionResponse{Equal: outcome.Equal, ResultSet: outcome.ResultSet}
	}

	zap.S().Infow("batch_compare succeeded", "request_id", requestID, "solutions", len(specs))
	writeJSON(w, http.StatusOK, response)
}

// writeSandboxError classifies a *sandbox.Error: Init and Execute surface
// as HTTP 200 with a location-tagged error body (a legacy contract the
// client relies on to distinguish query feedback from a protocol failure);
// everything else is a 500 with a generic message. The detailed cause is
// logged, never returned.
func writeSandboxError(w http.ResponseWriter, err error) {
	var sboxErr *sandbox.Error
	if errors.As(err, &sboxErr) {
		switch sboxErr.Kind {
		case sandbox.ErrorKindInit:
			writeJSON(w, http.StatusOK, runErrorResponse{Location: "init", Error: sboxErr.Error()})
			return
		case sandbox.ErrorKindExecute:
			writeJSON(w, http.StatusOK, runErrorResponse{Location: "query", Error: sboxErr.Error()})
			return
		}
	}
	writeError(w, http.StatusInternalServerError, "an internal error occurred")
}
