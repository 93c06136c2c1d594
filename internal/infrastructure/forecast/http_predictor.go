package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jhoicas/stockledger/internal/application/inventory"
)

var _ inventory.DemandPredictor = (*HTTPPredictor)(nil)

const (
	defaultTimeout  = 10 * time.Second
	maxResponseSize = 16 * 1024
)

// HTTPPredictor cliente del servicio de predicción de demanda: GET {baseURL}/predict/{productID}.
type HTTPPredictor struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPPredictor construye el adaptador. timeout <= 0 usa 10 s.
func NewHTTPPredictor(baseURL string, timeout time.Duration) *HTTPPredictor {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPPredictor{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type predictResponse struct {
	Quantity *float64 `json:"quantity"`
}

// PredictDemand devuelve la demanda diaria pronosticada (unidades/día) del producto.
func (p *HTTPPredictor) PredictDemand(ctx context.Context, productID string) (float64, error) {
	endpoint := p.baseURL + "/predict/" + url.PathEscape(productID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("predictor: crear HTTP request: %w", err)
	}
	req.Header.Set("accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("predictor: timeout o cancelación: %w", ctx.Err())
		}
		return 0, fmt.Errorf("predictor: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return 0, fmt.Errorf("predictor: leer respuesta: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("predictor: HTTP %d: %s", resp.StatusCode, string(raw))
	}

	var out predictResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return 0, fmt.Errorf("predictor: deserializar respuesta: %w", err)
	}
	if out.Quantity == nil {
		return 0, fmt.Errorf("predictor: respuesta sin quantity")
	}
	return *out.Quantity, nil
}
