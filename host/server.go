package host

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/mdlayher/vsock"
	"go.uber.org/zap"

	"github.com/cloudx-io/escrowauction/auctionapi"
)

// Server reads one JSON request per connection and writes one JSON response back.
// Connections beyond MaxWorkers are closed immediately rather than queued.
type Server struct {
	cfg      *Config
	runtime  *Runtime
	keys     *KeyManager
	attester AttesterFunc
	metrics  *Metrics
	logger   *zap.Logger
}

func NewServer(cfg *Config, runtime *Runtime, keys *KeyManager, attester AttesterFunc, metrics *Metrics, logger *zap.Logger) *Server {
	return &Server{
		cfg:      cfg,
		runtime:  runtime,
		keys:     keys,
		attester: attester,
		metrics:  metrics,
		logger:   logger,
	}
}

// Listen opens the configured transport.
func (s *Server) Listen() (net.Listener, error) {
	switch s.cfg.Transport {
	case TransportVsock:
		l, err := vsock.Listen(s.cfg.VsockPort, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create vsock listener: %w", err)
		}
		return l, nil
	default:
		l, err := net.Listen("tcp", s.cfg.ListenAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to create tcp listener: %w", err)
		}
		return l, nil
	}
}

// Serve accepts connections until ctx is cancelled, then waits for in-flight requests.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	semaphore := make(chan struct{}, s.cfg.MaxWorkers)
	var wg sync.WaitGroup
	defer wg.Wait()

	stop := context.AfterFunc(ctx, func() {
		if err := listener.Close(); err != nil {
			s.logger.Error("Failed to close listener", zap.Error(err))
		}
	})
	defer stop()

	s.logger.Info("Server listening",
		zap.String("transport", s.cfg.Transport),
		zap.String("addr", listener.Addr().String()),
		zap.Int("max_workers", s.cfg.MaxWorkers))

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Error("Failed to accept connection", zap.Error(err))
			continue
		}

		// Acquire worker slot - immediate rejection if pool full
		select {
		case semaphore <- struct{}{}:
			wg.Add(1)
			go func(c net.Conn) {
				defer wg.Done()
				defer func() { <-semaphore }()
				s.handleConnection(ctx, c)
			}(conn)
		default:
			s.metrics.rejectedConns.Inc()
			s.logger.Warn("No workers available, rejecting connection")
			if err := conn.Close(); err != nil {
				s.logger.Error("Failed to close rejected connection", zap.Error(err))
			}
		}
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic recovered in handleConnection", zap.Any("panic", r))
		}
		if err := conn.Close(); err != nil {
			s.logger.Debug("Failed to close connection", zap.Error(err))
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, conn); err != nil {
		s.logger.Error("Failed to read request", zap.Error(err))
		return
	}

	response := s.HandleRequest(ctx, buf.Bytes())

	if err := json.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// HandleRequest decodes and dispatches a single request envelope.
func (s *Server) HandleRequest(ctx context.Context, raw []byte) any {
	start := time.Now()

	var req auctionapi.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		s.logger.Info("Failed to decode request", zap.Error(err))
		s.metrics.requests.WithLabelValues("invalid", "error").Inc()
		return errorResponse("error", fmt.Errorf("%w: %v", auctionapi.ErrInvalidMessage, err), start)
	}

	s.logger.Debug("Received request", zap.String("type", req.Type))
	response, ok := s.dispatch(ctx, &req, start)

	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	label := requestLabel(req.Type)
	s.metrics.requests.WithLabelValues(label, outcome).Inc()
	s.metrics.requestDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	return response
}

// requestLabel bounds the metric label set to known request types.
func requestLabel(typ string) string {
	switch typ {
	case auctionapi.RequestPing, auctionapi.RequestKey, auctionapi.RequestInstantiate,
		auctionapi.RequestExecute, auctionapi.RequestQuery:
		return typ
	default:
		return "unknown"
	}
}

func (s *Server) dispatch(ctx context.Context, req *auctionapi.Request, start time.Time) (any, bool) {
	switch req.Type {
	case auctionapi.RequestPing:
		return map[string]any{
			"type":      "pong",
			"message":   "auction server is healthy",
			"timestamp": time.Now().Unix(),
		}, true

	case auctionapi.RequestKey:
		keyResp, err := HandleKeyRequest(s.attester, s.keys, s.logger)
		if err != nil {
			s.logger.Error("Key request failed", zap.Error(err))
			return map[string]any{
				"type":    "error",
				"message": fmt.Sprintf("Key request failed: %v", err),
			}, false
		}
		return keyResp, true

	case auctionapi.RequestInstantiate:
		result, err := s.runtime.Instantiate(ctx, req.Sender, req.Instantiate)
		if err != nil {
			return errorResponse("instantiate_response", err, start), false
		}
		return executeResponse("instantiate_response", result, start), true

	case auctionapi.RequestExecute:
		result, err := s.runtime.Execute(ctx, req.Sender, req.Funds, req.Execute)
		if err != nil {
			return errorResponse("execute_response", err, start), false
		}
		return executeResponse("execute_response", result, start), true

	case auctionapi.RequestQuery:
		data, err := s.runtime.Query(req.Query)
		if err != nil {
			return errorResponse("query_response", err, start), false
		}
		return &auctionapi.HostResponse{
			Type:           "query_response",
			Success:        true,
			Result:         data,
			ProcessingTime: time.Since(start).Milliseconds(),
		}, true

	default:
		return map[string]any{
			"type":    "error",
			"message": fmt.Sprintf("Unknown request type: %s", req.Type),
		}, false
	}
}

func executeResponse(typ string, result *ExecuteResult, start time.Time) *auctionapi.HostResponse {
	return &auctionapi.HostResponse{
		Type:              typ,
		Success:           true,
		Response:          result.Response,
		ReceiptID:         result.Receipt.ID,
		ReceiptCOSEBase64: result.ReceiptCOSE.EncodeBase64(),
		ProcessingTime:    time.Since(start).Milliseconds(),
	}
}

func errorResponse(typ string, err error, start time.Time) *auctionapi.HostResponse {
	return &auctionapi.HostResponse{
		Type:           typ,
		Success:        false,
		Message:        err.Error(),
		ErrorCode:      ErrorCode(err),
		ProcessingTime: time.Since(start).Milliseconds(),
	}
}
