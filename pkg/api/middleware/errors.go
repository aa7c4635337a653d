package middleware

import (
	"encoding/json"
	"net/http"

	"kestrel-hq/kestrel/pkg/api/types"
)

func writeError(w http.ResponseWriter, errResp *types.ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(errResp.Error.HTTPStatusCode())
	_ = json.NewEncoder(w).Encode(errResp)
}
