package commands

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/kilianp07/robotaxi/auth"
	"github.com/kilianp07/robotaxi/core/command"
	coremqtt "github.com/kilianp07/robotaxi/core/mqtt"
)

const maxBody = 4 << 10

// NewHandler accepts fleet commands via POST /api/commands. The body is
// {"kind": "...", "count": n}; the command is queued for the next tick and
// its envelope returned with 202 Accepted.
func NewHandler(queue coremqtt.CommandQueue, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !auth.Authorized(r, token) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		cmd, err := command.Decode(body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		env := queue.Push(cmd, "http")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(env)
	})
}
