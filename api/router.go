package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"
	"github.com/swapengine/engine/internal/domain"
	"github.com/swapengine/engine/internal/notify"
	"github.com/swapengine/engine/internal/queue"
	"github.com/swapengine/engine/internal/store"
	"github.com/swapengine/engine/pkg/observability"
)

// APIServer provides the HTTP/WebSocket surface of the execution engine.
type APIServer struct {
	logger *observability.Logger
	config Config
	router *mux.Router
	server *http.Server

	orders  *store.OrderStore
	jobs    *queue.Queue
	hub     *notify.Hub
	health  *observability.HealthServer
	metrics *observability.MetricsProvider

	upgrader  websocket.Upgrader
	startedAt time.Time
	isRunning bool
}

// Config contains API server configuration.
type Config struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	EnableCORS      bool          `json:"enable_cors"`
	EnableWebSocket bool          `json:"enable_websocket"`
}

// Response is the standard API envelope.
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Count     int         `json:"count,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewAPIServer creates a new API server wired to the order store, job
// queue, notification hub, health server, and metrics provider.
func NewAPIServer(logger *observability.Logger, config Config, orders *store.OrderStore, jobs *queue.Queue, hub *notify.Hub, health *observability.HealthServer, metrics *observability.MetricsProvider) *APIServer {
	if config.Host == "" {
		config.Host = "0.0.0.0"
	}
	if config.Port == 0 {
		config.Port = 3000
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 30 * time.Second
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = 30 * time.Second
	}

	s := &APIServer{
		logger: logger,
		config: config,
		router: mux.NewRouter(),
		orders:  orders,
		jobs:    jobs,
		hub:     hub,
		health:  health,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		startedAt: time.Now().UTC(),
	}

	s.setupRoutes()
	return s
}

func (s *APIServer) setupRoutes() {
	if s.health != nil {
		s.health.RegisterRoutes(s.router)
	} else {
		s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
		s.router.HandleFunc("/health/live", s.handleHealth).Methods("GET")
		s.router.HandleFunc("/health/ready", s.handleHealth).Methods("GET")
	}

	if s.config.EnableWebSocket {
		s.router.HandleFunc("/api/orders/execute", s.handleWebSocket)
	}

	ordersRouter := s.router.PathPrefix("/api/orders").Subrouter()
	ordersRouter.HandleFunc("", s.withLogging(s.handleListOrders)).Methods("GET")
	ordersRouter.HandleFunc("", s.withLogging(s.handleCreateOrder)).Methods("POST")
	ordersRouter.HandleFunc("/count", s.withLogging(s.handleCountOrders)).Methods("GET")
	ordersRouter.HandleFunc("/{id}", s.withLogging(s.handleGetOrder)).Methods("GET")
	ordersRouter.HandleFunc("/{id}", s.withLogging(s.handleCancelOrder)).Methods("DELETE")
	ordersRouter.HandleFunc("/{id}/history", s.withLogging(s.handleOrderHistory)).Methods("GET")
}

// Start begins serving HTTP on the configured address.
func (s *APIServer) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	var handler http.Handler = s.router
	if s.config.EnableCORS {
		c := cors.New(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"*"},
		})
		handler = c.Handler(s.router)
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info(ctx, "starting API server", map[string]interface{}{
		"address":          addr,
		"enable_websocket": s.config.EnableWebSocket,
	})

	s.isRunning = true
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error(ctx, "API server error", err, nil)
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP listener.
func (s *APIServer) Stop(ctx context.Context) error {
	if !s.isRunning {
		return nil
	}
	s.logger.Info(ctx, "stopping API server", nil)
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown API server: %w", err)
	}
	s.isRunning = false
	return nil
}

func (s *APIServer) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info(r.Context(), "api request", map[string]interface{}{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		})
	}
}

func (s *APIServer) sendJSON(w http.ResponseWriter, statusCode int, resp Response) {
	resp.Timestamp = time.Now().UTC()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error(context.Background(), "failed to encode json response", err, nil)
	}
}

func (s *APIServer) sendError(w http.ResponseWriter, statusCode int, err error) {
	s.sendJSON(w, statusCode, Response{Success: false, Error: err.Error()})
}

// statusForKind maps a domain error Kind to an HTTP status code.
func statusForKind(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation, domain.KindBadRequest, domain.KindSlippageExceeded, domain.KindInvalidOrder:
		return http.StatusBadRequest
	case domain.KindNotFound, domain.KindOrderNotFound:
		return http.StatusNotFound
	case domain.KindConflict, domain.KindTerminalState:
		return http.StatusConflict
	case domain.KindServiceUnavailable, domain.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, Response{Success: true, Data: map[string]interface{}{
		"status": "healthy",
		"uptime": time.Since(s.startedAt).String(),
	}})
}

type createOrderRequest struct {
	TokenIn           string           `json:"tokenIn"`
	TokenOut          string           `json:"tokenOut"`
	Amount            decimal.Decimal  `json:"amount"`
	SlippageTolerance *decimal.Decimal `json:"slippageTolerance,omitempty"`
	MaxRetries        *int             `json:"maxRetries,omitempty"`
}

func (s *APIServer) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, domain.NewError(domain.KindValidation, "invalid request body"))
		return
	}

	order, err := s.createOrder(r.Context(), req)
	if err != nil {
		s.sendError(w, statusForKind(domain.KindOf(err)), err)
		return
	}
	s.sendJSON(w, http.StatusCreated, Response{Success: true, Data: order})
}

// createOrder validates, persists, and enqueues a new order — shared by the
// HTTP and WebSocket entry points.
func (s *APIServer) createOrder(ctx context.Context, req createOrderRequest) (*domain.Order, error) {
	input := domain.CreateOrderInput{
		TokenIn:           req.TokenIn,
		TokenOut:          req.TokenOut,
		Amount:            req.Amount,
		SlippageTolerance: req.SlippageTolerance,
		MaxRetries:        req.MaxRetries,
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	order := domain.NewOrder(input)
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}
	if _, err := s.jobs.Enqueue(ctx, order.ID); err != nil {
		if delErr := s.orders.Delete(ctx, order.ID); delErr != nil {
			s.logger.Error(ctx, "createOrder: rollback delete failed after enqueue error", delErr, map[string]interface{}{"orderId": order.ID.String()})
		}
		return nil, err
	}
	s.metrics.RecordOrderSubmitted(ctx, order.TokenIn, order.TokenOut)
	return order, nil
}

func (s *APIServer) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseOrderID(r)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, err)
		return
	}
	order, err := s.orders.FindByID(r.Context(), id)
	if err != nil {
		s.sendError(w, statusForKind(domain.KindOf(err)), err)
		return
	}
	s.sendJSON(w, http.StatusOK, Response{Success: true, Data: order})
}

func (s *APIServer) handleListOrders(w http.ResponseWriter, r *http.Request) {
	filter := filterFromQuery(r)
	orders, err := s.orders.FindAll(r.Context(), filter)
	if err != nil {
		s.sendError(w, statusForKind(domain.KindOf(err)), err)
		return
	}
	count, err := s.orders.Count(r.Context(), filter)
	if err != nil {
		s.sendError(w, statusForKind(domain.KindOf(err)), err)
		return
	}
	s.sendJSON(w, http.StatusOK, Response{Success: true, Data: orders, Count: count})
}

func (s *APIServer) handleCountOrders(w http.ResponseWriter, r *http.Request) {
	filter := filterFromQuery(r)
	count, err := s.orders.Count(r.Context(), filter)
	if err != nil {
		s.sendError(w, statusForKind(domain.KindOf(err)), err)
		return
	}
	s.sendJSON(w, http.StatusOK, Response{Success: true, Data: map[string]interface{}{"count": count}})
}

func (s *APIServer) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseOrderID(r)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, err)
		return
	}
	order, err := s.orders.Cancel(r.Context(), id)
	if err != nil {
		s.sendError(w, statusForKind(domain.KindOf(err)), err)
		return
	}
	s.hub.Publish(r.Context(), notify.Update{OrderID: id, Status: domain.ProgressFailed, Data: map[string]interface{}{"reason": "cancelled"}})
	s.hub.RemoveAll(id)
	s.sendJSON(w, http.StatusOK, Response{Success: true, Data: order})
}

func (s *APIServer) handleOrderHistory(w http.ResponseWriter, r *http.Request) {
	id, err := parseOrderID(r)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, err)
		return
	}
	history, err := s.orders.AuditHistory(r.Context(), id)
	if err != nil {
		s.sendError(w, statusForKind(domain.KindOf(err)), err)
		return
	}
	s.sendJSON(w, http.StatusOK, Response{Success: true, Data: history})
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	idStr := mux.Vars(r)["id"]
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.UUID{}, domain.NewError(domain.KindValidation, "invalid order id")
	}
	return id, nil
}

func filterFromQuery(r *http.Request) domain.OrderFilter {
	q := r.URL.Query()
	filter := domain.OrderFilter{Limit: 50, Offset: 0}

	if status := q.Get("status"); status != "" {
		s := domain.OrderStatus(status)
		filter.Status = &s
	}
	if tokenIn := q.Get("tokenIn"); tokenIn != "" {
		filter.TokenIn = &tokenIn
	}
	if tokenOut := q.Get("tokenOut"); tokenOut != "" {
		filter.TokenOut = &tokenOut
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset >= 0 {
		filter.Offset = offset
	}
	return filter
}

// wsMessage is the envelope for every server push over /api/orders/execute.
type wsMessage struct {
	Type      string      `json:"type"`
	OrderID   string      `json:"orderId,omitempty"`
	Status    string      `json:"status,omitempty"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type wsClientMessage struct {
	Action string             `json:"action"`
	Order  createOrderRequest `json:"order"`
}

// handleWebSocket implements /api/orders/execute: each connection may bind
// itself as the subscriber of any number of orders it creates, and every
// subscription is torn down when the socket closes.
func (s *APIServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error(r.Context(), "websocket upgrade failed", err, nil)
		return
	}
	defer conn.Close()

	var writeMu sync.Mutex
	writeJSON := func(v interface{}) {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.WriteJSON(v)
	}

	var (
		subMu sync.Mutex
		subs  []subscription
	)
	defer func() {
		subMu.Lock()
		defer subMu.Unlock()
		for _, sub := range subs {
			s.hub.Unsubscribe(sub.orderID, sub.ch)
		}
	}()

	for {
		var msg wsClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Action {
		case "ping":
			writeJSON(wsMessage{Type: "success", Message: "pong", Timestamp: time.Now().UTC()})

		case "execute":
			order, err := s.createOrder(r.Context(), msg.Order)
			if err != nil {
				writeJSON(wsMessage{Type: "error", Message: err.Error(), Timestamp: time.Now().UTC()})
				continue
			}
			ch := s.hub.Subscribe(order.ID)
			subMu.Lock()
			subs = append(subs, subscription{orderID: order.ID, ch: ch})
			subMu.Unlock()
			go s.pumpUpdates(order.ID, ch, writeJSON)
			writeJSON(wsMessage{Type: "success", Message: "order accepted", Data: order, Timestamp: time.Now().UTC()})

		default:
			writeJSON(wsMessage{Type: "error", Message: "unknown action: " + msg.Action, Timestamp: time.Now().UTC()})
		}
	}
}

type subscription struct {
	orderID uuid.UUID
	ch      <-chan notify.Update
}

func (s *APIServer) pumpUpdates(orderID uuid.UUID, ch <-chan notify.Update, writeJSON func(interface{})) {
	for update := range ch {
		writeJSON(wsMessage{
			Type:      "status",
			OrderID:   orderID.String(),
			Status:    string(update.Status),
			Data:      update.Data,
			Timestamp: time.Now().UTC(),
		})
	}
}
