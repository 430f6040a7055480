package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/webrtc-relay/trustcore/internal/keyserver"
	"github.com/webrtc-relay/trustcore/internal/wire"
)

// KSHandler adapts internal/keyserver.Server to HTTP+JSON (spec §6.1).
type KSHandler struct {
	Server  *keyserver.Server
	Version string
}

func (h *KSHandler) GenerateKey(w http.ResponseWriter, r *http.Request) {
	var req wire.GenerateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, wire.NewError(wire.KindInternalError, "malformed request body"))
		return
	}

	resp, werr := h.Server.GenerateKey(r.Context(), req.Envelope)
	if werr != nil {
		writeError(w, werr)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *KSHandler) GetSecretKey(w http.ResponseWriter, r *http.Request) {
	keyID, err := pathKeyID(r)
	if err != nil {
		writeError(w, wire.NewError(wire.KindNotFound, "malformed key_id"))
		return
	}

	var req wire.GetSecretKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, wire.NewError(wire.KindInternalError, "malformed request body"))
		return
	}

	resp, werr := h.Server.GetSecretKey(r.Context(), keyID, req.Envelope)
	if werr != nil {
		writeError(w, werr)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *KSHandler) GetPublicKey(w http.ResponseWriter, r *http.Request) {
	keyID, err := pathKeyID(r)
	if err != nil {
		writeError(w, wire.NewError(wire.KindNotFound, "malformed key_id"))
		return
	}

	resp, werr := h.Server.GetPublicKey(r.Context(), keyID)
	if werr != nil {
		writeError(w, werr)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *KSHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Server.Health(r.Context())
	if err != nil {
		writeError(w, wire.NewError(wire.KindInternalError, "health check failed"))
		return
	}
	resp.Version = h.Version
	writeJSON(w, http.StatusOK, resp)
}

// writeError mirrors pkg/http's WriteError: a JSON {error, message} body
// at the status the kind maps to (spec §7 propagation policy).
func writeError(w http.ResponseWriter, werr *wire.Error) {
	writeJSON(w, werr.Code.HTTPStatus(), werr)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
