package modelproxy

import "context"

// ForwardCall registra una llamada recibida por MockClient.
type ForwardCall struct {
	Method string
	Path   string
	Body   []byte
}

// MockClient permite tests sin un servicio de prediccion real.
type MockClient struct {
	Response Response
	Err      error
	Calls    []ForwardCall
}

func (m *MockClient) Forward(_ context.Context, method, path string, body []byte) (Response, error) {
	m.Calls = append(m.Calls, ForwardCall{Method: method, Path: path, Body: body})
	return m.Response, m.Err
}
