package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"resume-builder/internal/shared/server/respond"
)

func getRequest(path string) events.APIGatewayV2HTTPRequest {
	return events.APIGatewayV2HTTPRequest{
		RawPath: path,
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			RequestID: "req-1",
			HTTP:      events.APIGatewayV2HTTPRequestContextHTTPDescription{Method: http.MethodGet, Path: path},
		},
	}
}

func TestBootstrapFailureIsRetriedAndUsesErrorEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	builds := 0
	p := &proxy{build: func(context.Context) (*gin.Engine, error) {
		builds++
		if builds == 1 {
			return nil, errors.New("database unreachable")
		}
		r := gin.New()
		r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
		return r, nil
	}}

	resp, err := p.handle(context.Background(), getRequest("/healthz"))
	require.NoError(t, err)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	var body respond.ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
	require.Equal(t, "unavailable", body.Error.Code)
	require.NotContains(t, resp.Body, "database unreachable")

	resp, err = p.handle(context.Background(), getRequest("/healthz"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"status":"ok"}`, resp.Body)

	_, err = p.handle(context.Background(), getRequest("/healthz"))
	require.NoError(t, err)
	require.Equal(t, 2, builds)
}
