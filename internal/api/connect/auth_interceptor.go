package connect

import (
	"context"
	"crypto/subtle"

	"connectrpc.com/connect"

	"github.com/osa030/hifzbox/internal/infra/config"
)

const (
	// ControlTokenHeader is the header name for the control token.
	ControlTokenHeader = "X-Control-Token"
)

// controlAuthInterceptor validates the control token on unary and streaming calls.
type controlAuthInterceptor struct {
	token string
}

// NewControlAuthInterceptor creates an interceptor that validates control tokens
// from request metadata for StudioService methods.
func NewControlAuthInterceptor(cfg *config.Config) connect.Interceptor {
	return &controlAuthInterceptor{token: cfg.Control.Token}
}

func (i *controlAuthInterceptor) authorize(token string) error {
	if token == "" {
		return connect.NewError(connect.CodeUnauthenticated, nil)
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(i.token)) != 1 {
		return connect.NewError(connect.CodeUnauthenticated, nil)
	}
	return nil
}

func (i *controlAuthInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if err := i.authorize(req.Header().Get(ControlTokenHeader)); err != nil {
			return nil, err
		}
		return next(ctx, req)
	}
}

func (i *controlAuthInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (i *controlAuthInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		if err := i.authorize(conn.RequestHeader().Get(ControlTokenHeader)); err != nil {
			return err
		}
		return next(ctx, conn)
	}
}

// tokenInterceptor attaches the control token to outgoing calls.
type tokenInterceptor struct {
	token string
}

func (i *tokenInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		req.Header().Set(ControlTokenHeader, i.token)
		return next(ctx, req)
	}
}

func (i *tokenInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return func(ctx context.Context, spec connect.Spec) connect.StreamingClientConn {
		conn := next(ctx, spec)
		conn.RequestHeader().Set(ControlTokenHeader, i.token)
		return conn
	}
}

func (i *tokenInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}
