package http

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"quiz-auth/internal/modelproxy"
)

const msgModelUnavailable = "Model service request failed."

// ModelHandler reenvia los endpoints /model al servicio de prediccion.
type ModelHandler struct {
	logger *zap.Logger
	client modelproxy.Client
}

func NewModelHandler(logger *zap.Logger, client modelproxy.Client) *ModelHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModelHandler{
		logger: logger,
		client: client,
	}
}

// CreateRecord maneja POST /model/create.
func (h *ModelHandler) CreateRecord(c *gin.Context) {
	h.forward(c, http.MethodPost, modelproxy.PathRecords, true)
}

// Train maneja POST /model/train.
func (h *ModelHandler) Train(c *gin.Context) {
	h.forward(c, http.MethodPost, modelproxy.PathTrain, true)
}

// Predict maneja POST /model/predict.
func (h *ModelHandler) Predict(c *gin.Context) {
	h.forward(c, http.MethodPost, modelproxy.PathPredict, true)
}

// ListRecords maneja GET /model/records.
func (h *ModelHandler) ListRecords(c *gin.Context) {
	h.forward(c, http.MethodGet, modelproxy.PathRecords, false)
}

// DeleteRecord maneja DELETE /model/records/:id.
func (h *ModelHandler) DeleteRecord(c *gin.Context) {
	h.forward(c, http.MethodDelete, modelproxy.PathRecords+"/"+url.PathEscape(c.Param("id")), false)
}

func (h *ModelHandler) forward(c *gin.Context, method, path string, withBody bool) {
	var body []byte
	if withBody {
		raw, err := c.GetRawData()
		if err != nil {
			h.logger.Warn("read model request body failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
			return
		}
		body = raw
	}

	resp, err := h.client.Forward(c.Request.Context(), method, path, body)
	if err != nil {
		h.logger.Error("model proxy failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgModelUnavailable})
		return
	}
	c.Data(resp.Status, "application/json", resp.Body)
}
