package handlers

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/praveengys/connectify-sub000/pkg/auth"
	"github.com/praveengys/connectify-sub000/pkg/logger"
	"github.com/praveengys/connectify-sub000/pkg/response"
	"github.com/praveengys/connectify-sub000/services/gateway/internal/proxy"
)

type Handlers struct {
	bookingsProxy *proxy.ServiceProxy
	jwtSecret     string
}

func New(bookingsProxy *proxy.ServiceProxy, jwtSecret string) *Handlers {
	return &Handlers{bookingsProxy: bookingsProxy, jwtSecret: jwtSecret}
}

// Bookings forwards the request unchanged to the bookings service.
func (h *Handlers) Bookings(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.bookingsProxy)
}

func (h *Handlers) proxyRequest(w http.ResponseWriter, r *http.Request, serviceProxy *proxy.ServiceProxy) {
	defer r.Body.Close()

	headers := make(http.Header)
	for key, values := range r.Header {
		if shouldCopyHeader(key) && !isClientAddressHeader(key) {
			headers[key] = values
		}
	}
	// The gateway is the edge, so the peer address is the client.
	if ip := remoteIP(r); ip != "" {
		headers.Set("X-Forwarded-For", ip)
		headers.Set("X-Real-IP", ip)
	}

	var body io.Reader
	if r.ContentLength != 0 {
		body = r.Body
	}

	resp, err := serviceProxy.ProxyRequest(r.Context(), r.Method, r.URL.RequestURI(), body, headers)
	if err != nil {
		logger.ErrorContext(r.Context(), "Service proxy error", "error", err, "path", r.URL.Path)
		response.WriteError(w, http.StatusBadGateway, "Service unavailable", "UPSTREAM_UNAVAILABLE")
		return
	}
	defer resp.Body.Close()

	for key, values := range resp.Header {
		if !shouldCopyHeader(key) || isCORSHeader(key) {
			continue
		}
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.WriteHeader(resp.StatusCode)

	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		streamBody(r.Context(), w, resp.Body)
		return
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		logger.ErrorContext(r.Context(), "Failed to copy response body", "error", err)
	}
}

// streamBody copies an event stream, flushing after every read.
func streamBody(ctx context.Context, w http.ResponseWriter, body io.Reader) {
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})
	buf := make([]byte, 4096)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}
			if ferr := rc.Flush(); ferr != nil {
				return
			}
		}
		if err != nil {
			if err != io.EOF && ctx.Err() == nil {
				logger.WarnContext(ctx, "Stream copy ended", "error", err)
			}
			return
		}
	}
}

var hopHeaders = map[string]struct{}{
	"connection":          {},
	"keep-alive":          {},
	"upgrade":             {},
	"proxy-connection":    {},
	"proxy-authenticate":  {},
	"proxy-authorization": {},
	"te":                  {},
	"trailers":            {},
	"transfer-encoding":   {},
	"host":                {},
	"content-length":      {},
}

func shouldCopyHeader(key string) bool {
	_, hop := hopHeaders[strings.ToLower(key)]
	return !hop
}

func isClientAddressHeader(key string) bool {
	switch strings.ToLower(key) {
	case "x-forwarded-for", "x-real-ip", "forwarded":
		return true
	}
	return false
}

// CORS is answered by the gateway's own middleware.
func isCORSHeader(key string) bool {
	k := strings.ToLower(key)
	return strings.HasPrefix(k, "access-control-") || k == "vary"
}

func remoteIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// RequireAdmin rejects admin calls at the edge; the bookings service checks again.
func (h *Handlers) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			response.Unauthorized(w, "Missing or invalid authorization header")
			return
		}

		claims, err := auth.Parse(strings.TrimPrefix(authHeader, "Bearer "), h.jwtSecret)
		if err != nil {
			response.WriteError(w, http.StatusUnauthorized, "Invalid token", response.CodeInvalidToken)
			return
		}
		if !claims.IsAdmin() {
			response.Forbidden(w, "Admin access required")
			return
		}

		ctx := context.WithValue(r.Context(), logger.UserIDKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
