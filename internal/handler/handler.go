// Package handler 提供管理用的 HTTP API（健康檢查、統計、房間與排行榜查詢）
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/koopa0/system-design/14-arcade-rooms/internal/registry"
	"github.com/koopa0/system-design/14-arcade-rooms/internal/room"
	"github.com/koopa0/system-design/14-arcade-rooms/internal/scoreboard"
	apperrors "github.com/koopa0/system-design/14-arcade-rooms/pkg/errors"
)

// Registry 註冊中心的查詢介面
type Registry interface {
	Stats(ctx context.Context) (registry.Stats, error)
	Rooms(ctx context.Context) ([]room.Info, error)
	Room(ctx context.Context, name string) (room.Info, error)
}

// ConnCounter 目前 WebSocket 連線數
type ConnCounter interface {
	Count() int
}

// Handler HTTP 請求處理器
type Handler struct {
	registry Registry
	conns    ConnCounter
	recorder scoreboard.Recorder
	logger   *slog.Logger
	started  time.Time
}

// NewHandler 創建 HTTP 處理器；conns 可為 nil
func NewHandler(reg Registry, conns ConnCounter, recorder scoreboard.Recorder, logger *slog.Logger) *Handler {
	return &Handler{
		registry: reg,
		conns:    conns,
		recorder: recorder,
		logger:   logger,
		started:  time.Now(),
	}
}

// Routes 設定路由
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	// 中間件鏈
	wrap := func(handler http.HandlerFunc) http.HandlerFunc {
		return h.recoverer(h.loggerMiddleware(handler))
	}

	mux.HandleFunc("GET /api/v1/rooms", wrap(h.listRooms))
	mux.HandleFunc("GET /api/v1/rooms/{name}", wrap(h.getRoom))
	mux.HandleFunc("GET /api/v1/scores", wrap(h.scores))

	// 健康檢查
	mux.HandleFunc("GET /health", wrap(h.health))
	mux.HandleFunc("GET /stats", wrap(h.stats))

	return mux
}

// listRooms 列出房間
func (h *Handler) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.registry.Rooms(r.Context())
	if err != nil {
		h.appError(w, err)
		return
	}

	h.jsonResponse(w, map[string]any{
		"rooms": rooms,
		"total": len(rooms),
	}, http.StatusOK)
}

// getRoom 房間詳情
func (h *Handler) getRoom(w http.ResponseWriter, r *http.Request) {
	info, err := h.registry.Room(r.Context(), r.PathValue("name"))
	if err != nil {
		h.appError(w, err)
		return
	}
	h.jsonResponse(w, info, http.StatusOK)
}

// scores 排行榜與結局統計
func (h *Handler) scores(w http.ResponseWriter, r *http.Request) {
	limit := scoreboard.DefaultTopN
	if l := r.URL.Query().Get("limit"); l != "" {
		val, err := strconv.Atoi(l)
		if err != nil || val <= 0 || val > 100 {
			h.errorResponse(w, "limit must be between 1 and 100", http.StatusBadRequest)
			return
		}
		limit = val
	}

	top, err := h.recorder.Top(r.Context(), limit)
	if err != nil {
		h.appError(w, err)
		return
	}
	outcomes, err := h.recorder.Outcomes(r.Context())
	if err != nil {
		h.appError(w, err)
		return
	}

	h.jsonResponse(w, map[string]any{
		"top":      top,
		"outcomes": outcomes,
	}, http.StatusOK)
}

// health 健康檢查
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if _, err := h.registry.Stats(r.Context()); err != nil {
		h.jsonResponse(w, map[string]any{
			"status": "unavailable",
			"error":  err.Error(),
		}, http.StatusServiceUnavailable)
		return
	}

	h.jsonResponse(w, map[string]any{
		"status": "healthy",
		"time":   time.Now().Unix(),
		"uptime": time.Since(h.started).Round(time.Second).String(),
	}, http.StatusOK)
}

// stats 統計資訊
func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.registry.Stats(r.Context())
	if err != nil {
		h.appError(w, err)
		return
	}

	resp := map[string]any{"registry": stats}
	if h.conns != nil {
		resp["websockets"] = h.conns.Count()
	}
	h.jsonResponse(w, resp, http.StatusOK)
}

// jsonResponse 返回 JSON 響應
func (h *Handler) jsonResponse(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("encode json response failed", "error", err)
	}
}

// errorResponse 返回錯誤響應
func (h *Handler) errorResponse(w http.ResponseWriter, message string, status int) {
	h.jsonResponse(w, map[string]any{
		"error": message,
	}, status)
}

// appError 依錯誤碼決定狀態碼
func (h *Handler) appError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperrors.IsNotFound(err):
		status = http.StatusNotFound
	case apperrors.IsInvalidInput(err):
		status = http.StatusBadRequest
	case apperrors.IsUnavailable(err):
		status = http.StatusServiceUnavailable
	default:
		h.logger.Error("request failed", "error", err)
	}
	h.errorResponse(w, err.Error(), status)
}

// loggerMiddleware 日誌中間件
func (h *Handler) loggerMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// 包裝 ResponseWriter 以獲取狀態碼
		ww := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next(ww, r)

		h.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.statusCode,
			"duration", time.Since(start))
	}
}

// recoverer panic 恢復中間件
func (h *Handler) recoverer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.logger.Error("panic while handling request",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path)

				h.errorResponse(w, "internal server error", http.StatusInternalServerError)
			}
		}()

		next(w, r)
	}
}

// responseWriter 包裝 ResponseWriter 以獲取狀態碼
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}
