package server

import (
	"bytes"
	"io"
	"mime"
	"net/http"

	executor "github.com/hanpama/gqlexec/internal/executor"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// decoder keeps numbers as json.Number so Int and Float coercion see the
// literal the client sent.
var decoder = jsoniter.Config{UseNumber: true}.Froze()

var encoder = jsoniter.ConfigCompatibleWithStandardLibrary

// GraphQLRequest is the body of a GraphQL-over-HTTP request.
type GraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

type parseError struct {
	status  int
	message string
}

func badRequest(msg string) *parseError {
	return &parseError{status: http.StatusBadRequest, message: msg}
}

func parseRequest(r *http.Request, maxBody int64) (GraphQLRequest, []GraphQLRequest, *parseError) {
	if r.Method == http.MethodGet {
		return parseQueryString(r)
	}

	ct := r.Header.Get("Content-Type")
	if ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || mt != "application/json" {
			return GraphQLRequest{}, nil, &parseError{status: http.StatusUnsupportedMediaType, message: "Unsupported Content-Type " + ct + "."}
		}
	}

	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	defer r.Body.Close()
	body, err := io.ReadAll(reader)
	if err != nil {
		return GraphQLRequest{}, nil, badRequest("Failed to read request body.")
	}
	if maxBody > 0 && int64(len(body)) > maxBody {
		return GraphQLRequest{}, nil, &parseError{status: http.StatusRequestEntityTooLarge, message: "Request body too large."}
	}

	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var batch []GraphQLRequest
		if err := decoder.Unmarshal(body, &batch); err != nil {
			return GraphQLRequest{}, nil, badRequest("Invalid JSON body.")
		}
		if len(batch) == 0 {
			return GraphQLRequest{}, nil, badRequest("Empty batch.")
		}
		for _, req := range batch {
			if req.Query == "" {
				return GraphQLRequest{}, nil, badRequest("Missing query.")
			}
		}
		return GraphQLRequest{}, batch, nil
	}

	var req GraphQLRequest
	if err := decoder.Unmarshal(body, &req); err != nil {
		return GraphQLRequest{}, nil, badRequest("Invalid JSON body.")
	}
	if req.Query == "" {
		return GraphQLRequest{}, nil, badRequest("Missing query.")
	}
	return req, nil, nil
}

func parseQueryString(r *http.Request) (GraphQLRequest, []GraphQLRequest, *parseError) {
	q := r.URL.Query()
	req := GraphQLRequest{Query: q.Get("query"), OperationName: q.Get("operationName")}
	if req.Query == "" {
		return GraphQLRequest{}, nil, badRequest("Missing query.")
	}
	if v := q.Get("variables"); v != "" {
		if err := decoder.UnmarshalFromString(v, &req.Variables); err != nil {
			return GraphQLRequest{}, nil, badRequest("Variables are invalid JSON.")
		}
	}
	return req, nil, nil
}

func requestError(msg string) *executor.ExecutionResult {
	return executor.NewErrorResult(&executor.ExecutionError{Message: msg})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := encoder.Marshal(v)
	if err != nil {
		h.logger.Error("encode response", zap.Error(err))
		status = http.StatusInternalServerError
		b, _ = encoder.Marshal(requestError("Failed to encode response."))
	}
	if h.opt.Pretty {
		var out bytes.Buffer
		if err := indent(&out, b); err == nil {
			b = out.Bytes()
		}
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(b)
	_, _ = w.Write([]byte("\n"))
}
