package ws

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
)

func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

func deviceIDFromRequest(r *http.Request) string {
	return r.Header.Get("X-Device-Id")
}
