package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ProxyHandler is the token-attaching pass-through to the provider:
// GET /api/proxy?path=users/balance&... forwards to
// <base>/users/balance with the remaining query parameters plus the
// token, which therefore never reaches the browser.
type ProxyHandler struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
	token      string
}

func NewProxyHandler(logger *slog.Logger, baseURL, token string, httpClient *http.Client) *ProxyHandler {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &ProxyHandler{
		logger:     logger.With("component", "provider_proxy"),
		httpClient: httpClient,
		baseURL:    baseURL,
		token:      token,
	}
}

func (h *ProxyHandler) Forward(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	path := query.Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing path"})
		return
	}
	query.Del("path")

	params := url.Values{}
	for key, values := range query {
		for _, v := range values {
			params.Add(key, v)
		}
	}
	params.Set("token", h.token)

	target := h.baseURL + "/" + strings.TrimPrefix(path, "/") + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		h.logger.WarnContext(ctx, "proxy request failed", "path", path, "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "provider unreachable"})
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.WarnContext(ctx, "proxy response copy failed", "path", path, "error", err)
	}
}
