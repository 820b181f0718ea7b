package mockapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jrsteele09/mfi-console/identity"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError answers with the {"message": ...} shape clients show verbatim.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	return dec.Decode(v)
}

// groupIDsParam reads group_ids as a comma separated list.
func groupIDsParam(r *http.Request) []identity.ID {
	raw := r.URL.Query().Get("group_ids")
	if raw == "" {
		return nil
	}
	var ids []identity.ID
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, identity.ID(part))
		}
	}
	return ids
}
