package basic

import (
	"encoding/json"
	"net/http"

	httpx "natours/http"
)

// writeEnvelope 供处于 IHttpContext 之外的中间件使用
func writeEnvelope(w http.ResponseWriter, status int, env *httpx.Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
