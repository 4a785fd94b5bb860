package server

import (
	"encoding/json"
	"net/http"

	"github.com/crewkit/crewd/pkg/cerr"
)

// decodeJSON parses the request body into v. On failure it publishes an
// InvalidArgument error and returns false; handlers just return.
func decodeJSON(r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		cerr.SetNewJSONError(r.Context(), cerr.InvalidArgument, "invalid request body", err)
		return false
	}
	return true
}
