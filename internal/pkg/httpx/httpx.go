// Package httpx 是各服务 HTTP 适配层共用的请求解析和错误响应。
// 会话认证由网关完成，调用方身份通过请求头传入。
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"storefront/internal/pkg/errs"
	"storefront/internal/pkg/logger"
)

const (
	HeaderUserID       = "X-User-ID"
	HeaderSessionToken = "X-Session-Token"
	SessionCookie      = "sessionid"

	maxBodyBytes = 1 << 20
)

var ErrMalformedBody = errs.New(errs.KindValidation, "malformed_body", "request body is not valid JSON")

// Extract 从请求头恢复上游的追踪上下文。
func Extract(r *http.Request) context.Context {
	return otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
}

// UserID 返回网关注入的登录用户 ID，匿名请求返回 0。
func UserID(r *http.Request) int64 {
	id, err := strconv.ParseInt(r.Header.Get(HeaderUserID), 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

// SessionToken 优先取请求头，其次取会话 cookie。
func SessionToken(r *http.Request) string {
	if t := strings.TrimSpace(r.Header.Get(HeaderSessionToken)); t != "" {
		return t
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// ClientIP 取 X-Forwarded-For 的第一个地址，没有时使用连接地址。
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if ip := strings.TrimSpace(strings.Split(fwd, ",")[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// PathID 解析路由中的数字 ID。
func PathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.New(errs.KindValidation, "invalid_"+name, "invalid "+name)
	}
	return id, nil
}

func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return ErrMalformedBody.WithCause(err)
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ErrorBody 是所有错误响应的结构。
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError 按错误类别选择状态码。安全策略、完整性和内部错误不暴露具体编码。
func WriteError(ctx context.Context, w http.ResponseWriter, err error) {
	status, code := StatusOf(err)
	body := ErrorBody{Code: code, Message: errs.PublicMessage(err)}
	if status >= http.StatusInternalServerError {
		logger.Ctx(ctx).Error().Err(err).Int("status", status).Msg("request failed")
	}
	WriteJSON(w, status, map[string]ErrorBody{"error": body})
}

// StatusOf 返回错误对应的 HTTP 状态码和对外编码。
func StatusOf(err error) (int, string) {
	var e *errs.Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError, "internal_error"
	}
	switch e.Kind {
	case errs.KindValidation:
		if strings.HasSuffix(e.Code, "_not_found") {
			return http.StatusNotFound, e.Code
		}
		return http.StatusBadRequest, e.Code
	case errs.KindAvailability:
		if strings.HasSuffix(e.Code, "_not_found") {
			return http.StatusNotFound, e.Code
		}
		return http.StatusConflict, e.Code
	case errs.KindSecurityPolicy:
		return http.StatusForbidden, "rejected"
	case errs.KindConcurrency:
		return http.StatusServiceUnavailable, "rejected"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
