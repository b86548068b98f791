package admin

import (
	"encoding/json"
	"net/http"
)

// PageResponse is the paginated-listing envelope shared by GET /crons and
// GET /jobs, grounded on
// original_source/admin/api/model/common.py's PageResponse.
type PageResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Size  int `json:"size"`
	Pages int `json:"pages"`
}

// newPageResponse mirrors PageResponse.create's ceiling-division page count.
func newPageResponse[T any](items []T, total, page, size int) PageResponse[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if size > 0 {
		pages = (total + size - 1) / size
	}
	return PageResponse[T]{Items: items, Total: total, Page: page, Size: size, Pages: pages}
}

// ErrorDetail carries a machine-readable code alongside the message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the envelope for every non-2xx admin API response,
// grounded on original_source/admin/api/model/common.py's ErrorResponse.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}
