// Command lambda-http serves the resume-builder API behind an API Gateway
// HTTP API (payload v2).
//
//	GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"

	"resume-builder/internal/bootstrap"
	"resume-builder/internal/shared/config"
	"resume-builder/internal/shared/server/respond"
	"resume-builder/internal/shared/telemetry"
	"resume-builder/internal/shared/tracing"
)

var version = "dev"

// proxy builds the router on first use and keeps it for the life of the
// execution environment. A failed build is retried on the next invocation.
type proxy struct {
	build func(ctx context.Context) (*gin.Engine, error)

	mu      sync.Mutex
	adapter *ginadapter.GinLambdaV2
}

func (p *proxy) ready(ctx context.Context) (*ginadapter.GinLambdaV2, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.adapter != nil {
		return p.adapter, nil
	}
	router, err := p.build(ctx)
	if err != nil {
		return nil, err
	}
	p.adapter = ginadapter.NewV2(router)
	return p.adapter, nil
}

func (p *proxy) handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	defer telemetry.Sync()

	adapter, err := p.ready(ctx)
	if err != nil {
		telemetry.Error("lambda.bootstrap_failed", map[string]any{
			"err":        err,
			"request_id": req.RequestContext.RequestID,
		})
		return unavailable(), nil
	}
	return adapter.ProxyWithContext(ctx, req)
}

// unavailable renders the same error envelope the router uses.
func unavailable() events.APIGatewayV2HTTPResponse {
	body, _ := json.Marshal(respond.ErrorResponse{Error: respond.ErrorBody{
		Code:    "unavailable",
		Message: "Service is temporarily unavailable.",
	}})
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusServiceUnavailable,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

func buildRouter(ctx context.Context) (*gin.Engine, error) {
	cfg := config.Load()
	telemetry.SetLogger(telemetry.New(telemetry.Options{Service: cfg.ServiceName, Env: cfg.Env}))

	// The execution environment is frozen between invocations, so spans are
	// exported on a best-effort basis and the shutdown hook is never reached.
	if _, err := tracing.Init(context.WithoutCancel(ctx), tracing.Options{
		ServiceName: cfg.ServiceName,
		Env:         cfg.Env,
		Version:     version,
		Endpoint:    cfg.OTLPEndpoint,
	}); err != nil {
		return nil, err
	}

	app, err := bootstrap.Build(cfg)
	if err != nil {
		return nil, err
	}
	telemetry.Info("lambda.ready", map[string]any{"env": cfg.Env, "version": version})
	return app.Router, nil
}

func main() {
	p := &proxy{build: buildRouter}
	lambda.Start(p.handle)
}
