package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jhoicas/stockledger/internal/application/inventory"
)

// Verificar en tiempo de compilación que HTTPNotifier implementa inventory.Notifier.
var _ inventory.Notifier = (*HTTPNotifier)(nil)

const (
	sendInAppPath    = "/send/in-app"
	lowStockType     = "low_stock"
	defaultTimeout   = 5 * time.Second
	maxErrorBodySize = 4 * 1024
)

// HTTPNotifier envía avisos in-app al servicio de notificaciones (POST {baseURL}/send/in-app).
type HTTPNotifier struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPNotifier construye el adaptador. timeout <= 0 usa 5 s.
func NewHTTPNotifier(baseURL string, timeout time.Duration) *HTTPNotifier {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPNotifier{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type inAppRequest struct {
	UserID  string        `json:"user_id"`
	Type    string        `json:"type"`
	Title   string        `json:"title"`
	Message string        `json:"message"`
	Data    lowStockAlert `json:"data"`
}

type lowStockAlert struct {
	VariationID string `json:"variation_id"`
	BranchID    string `json:"branch_id"`
	Quantity    int    `json:"quantity"`
	Threshold   int    `json:"threshold"`
}

// NotifyLowStock publica el aviso de stock bajo. Cualquier respuesta fuera de 2xx es error;
// el coordinador de stock lo registra y lo descarta.
func (n *HTTPNotifier) NotifyLowStock(ctx context.Context, alert inventory.LowStockAlert) error {
	payload := inAppRequest{
		UserID:  alert.UserID,
		Type:    lowStockType,
		Title:   "Stock bajo",
		Message: fmt.Sprintf("La variación %s quedó con %d unidades en la sucursal %s (umbral %d)", alert.VariationID, alert.Quantity, alert.BranchID, alert.Threshold),
		Data: lowStockAlert{
			VariationID: alert.VariationID,
			BranchID:    alert.BranchID,
			Quantity:    alert.Quantity,
			Threshold:   alert.Threshold,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: serializar request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+sendInAppPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: crear HTTP request: %w", err)
	}
	req.Header.Set("content-type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("notify: timeout o cancelación: %w", ctx.Err())
		}
		return fmt.Errorf("notify: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return fmt.Errorf("notify: HTTP %d: %s", resp.StatusCode, string(raw))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
