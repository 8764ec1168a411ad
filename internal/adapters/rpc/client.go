package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultEndpoint = "http://localhost:8899"

	// Rate limit conservador para no saturar el nodo local mientras el
	// closer muestrea entropía cada 200ms.
	callsPerSec = 50

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// Client es el cliente JSON-RPC del gateway del ledger, con rate limiting y
// retries con backoff exponencial.
type Client struct {
	http     *http.Client
	endpoint string
	limiter  *rate.Limiter
}

// NewClient crea un Client contra el endpoint dado.
// Si endpoint está vacío, usa el nodo local.
func NewClient(endpoint string) *Client {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Client{
		http:     &http.Client{Timeout: 10 * time.Second},
		endpoint: endpoint,
		limiter:  rate.NewLimiter(callsPerSec, 20),
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *Error          `json:"error"`
}

// Error es un error devuelto por el nodo. El código y el mensaje se usan
// para clasificar fallas del programa (ventana vencida, período cerrado).
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Call ejecuta un método JSON-RPC y decodifica el resultado en out.
// Reintenta errores de transporte y 5xx; los errores RPC del nodo se
// devuelven sin reintentar, tipados como *Error.
func (c *Client) Call(ctx context.Context, method string, params, out any) error {
	req := rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("rpc.Call: marshal request: %w", err)
	}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rpc.Call: rate limiter: %w", err)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("rpc.Call: build request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(httpReq)
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("rpc.Call: %s failed after %d retries: %w", method, maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("rpc.Call: %s: server error %d after %d retries", method, resp.StatusCode, maxRetries)
			}
			slog.Warn("rpc: node busy, retrying", "method", method, "status", resp.StatusCode, "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("rpc.Call: %s: read response: %w", method, err)
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("rpc.Call: %s: client error %d: %s", method, resp.StatusCode, string(raw))
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(raw, &rpcResp); err != nil {
			return fmt.Errorf("rpc.Call: %s: decode response: %w", method, err)
		}
		if rpcResp.Error != nil {
			return rpcResp.Error
		}
		if out != nil {
			if err := json.Unmarshal(rpcResp.Result, out); err != nil {
				return fmt.Errorf("rpc.Call: %s: decode result: %w", method, err)
			}
		}
		return nil
	}
	return fmt.Errorf("rpc.Call: %s: exhausted %d retries", method, maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
