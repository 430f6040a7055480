package httpapi

import (
	"io"
	"net/http"

	"github.com/webrtc-relay/trustcore/internal/issuer"
	"github.com/webrtc-relay/trustcore/internal/wire"
)

// AISHandler adapts internal/issuer.Issuer to the single binary-body
// endpoint spec §6.2 describes.
type AISHandler struct {
	Issuer *issuer.Issuer
}

func (h *AISHandler) Allocate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBinaryFailure(w, wire.KindInternalError, "failed to read request body")
		return
	}

	req, err := wire.UnmarshalAllocateRequest(body)
	if err != nil {
		writeBinaryFailure(w, wire.KindInternalError, "malformed allocate request")
		return
	}

	resp := h.Issuer.Allocate(r.Context(), req)
	out, err := wire.MarshalAllocateResponse(resp)
	if err != nil {
		writeBinaryFailure(w, wire.KindInternalError, "failed to encode response")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func writeBinaryFailure(w http.ResponseWriter, code wire.ErrorKind, msg string) {
	out, err := wire.MarshalAllocateResponse(wire.AllocateResponse{
		Failure: &wire.AllocateFailure{Code: code, Message: msg},
	})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}
