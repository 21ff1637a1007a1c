package modelproxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Paths del servicio de prediccion.
const (
	PathRecords = "/records"
	PathTrain   = "/train"
	PathPredict = "/predict"
)

var ErrNonJSONResponse = errors.New("upstream returned a non-JSON body")

// Response es la respuesta del upstream tal cual: status y cuerpo JSON (vacio si el upstream no manda cuerpo).
type Response struct {
	Status int
	Body   json.RawMessage
}

// Client define la interfaz para reenviar llamadas al servicio de prediccion.
type Client interface {
	Forward(ctx context.Context, method, path string, body []byte) (Response, error)
}

// HTTPClient implementa Client con un bearer token fijo.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPClient construye un cliente apuntando a baseURL.
func NewHTTPClient(baseURL, token string, logger *zap.Logger) *HTTPClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  logger,
	}
}

func (c *HTTPClient) Forward(ctx context.Context, method, path string, body []byte) (Response, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return Response{Status: resp.StatusCode}, nil
	}
	if !json.Valid(respBody) {
		c.logger.Warn("model upstream non-json response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return Response{}, fmt.Errorf("%s %s: status=%d: %w", method, path, resp.StatusCode, ErrNonJSONResponse)
	}
	return Response{Status: resp.StatusCode, Body: respBody}, nil
}
