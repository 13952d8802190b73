package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"BandView/internal/repository"
	"BandView/internal/usecase"
	xhttp "BandView/pkg/http"
	xlogger "BandView/pkg/logger"
)

// SeriesFeed announces series changes.
type SeriesFeed interface {
	Subscribe(buffer int) (<-chan repository.SeriesKey, func())
}

// StreamMessage is one WebSocket frame.
type StreamMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

const (
	streamBands = "bands"
	streamError = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamHandler pushes band results over WebSocket: once on connect and again
// after every change of the subscribed series. Changes that arrive during a
// push coalesce into a single follow-up push.
type StreamHandler struct {
	logger       *xlogger.Logger
	bands        *usecase.BandsUseCase
	feed         SeriesFeed
	limiter      echo.MiddlewareFunc
	writeWait    time.Duration
	pingInterval time.Duration
}

// NewStreamHandler creates the handler. A nil feed sends the initial result only.
func NewStreamHandler(logger *xlogger.Logger, bands *usecase.BandsUseCase, feed SeriesFeed) *StreamHandler {
	if logger == nil {
		logger = xlogger.NewNop()
	}
	return &StreamHandler{
		logger:       logger,
		bands:        bands,
		feed:         feed,
		writeWait:    10 * time.Second,
		pingInterval: 30 * time.Second,
	}
}

// SetRateLimit guards the upgrade request with mw.
func (h *StreamHandler) SetRateLimit(mw echo.MiddlewareFunc) { h.limiter = mw }

func (h *StreamHandler) RegisterRoutes(e *echo.Echo) {
	if h.limiter != nil {
		e.GET("/ws/bollinger", h.Bollinger, h.limiter)
		return
	}
	e.GET("/ws/bollinger", h.Bollinger)
}

func (h *StreamHandler) Bollinger(c echo.Context) error {
	p, verr := bandsParams(c)
	if verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	var (
		changes <-chan repository.SeriesKey
		cancel  = func() {}
	)
	if h.feed != nil {
		changes, cancel = h.feed.Subscribe(16)
	}
	defer cancel()

	// bad inputs are rejected before upgrading so the client gets a plain HTTP error
	first, err := h.bands.Compute(c.Request().Context(), p)
	if err != nil {
		mapped := toAppError(err)
		if isServerError(mapped) {
			h.logger.Error("stream initial compute error", xlogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, mapped)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go h.readLoop(conn, stop)

	key := repository.SeriesKey{Symbol: p.Symbol, Timeframe: p.Timeframe}
	h.logger.Debug("stream opened", xlogger.String("key", key.String()))
	if err := h.write(conn, StreamMessage{Type: streamBands, Data: first}); err != nil {
		return nil
	}

	pending := make(chan struct{}, 1)
	ping := time.NewTicker(h.pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("stream closed", xlogger.String("key", key.String()))
			return nil
		case k, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			if k == key {
				select {
				case pending <- struct{}{}:
				default:
				}
			}
		case <-pending:
			if err := h.write(conn, h.next(ctx, p)); err != nil {
				h.logger.Debug("stream write failed", xlogger.Error(err))
				return nil
			}
		case <-ping.C:
			deadline := time.Now().Add(h.writeWait)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return nil
			}
		}
	}
}

func (h *StreamHandler) next(ctx context.Context, p usecase.BandsParams) StreamMessage {
	res, err := h.bands.Compute(ctx, p)
	if err == nil {
		return StreamMessage{Type: streamBands, Data: res}
	}
	mapped := toAppError(err)
	if isServerError(mapped) {
		h.logger.Error("stream compute error", xlogger.Error(err))
		mapped = xhttp.InternalError("compute failed")
	}
	return StreamMessage{Type: streamError, Data: mapped}
}

func (h *StreamHandler) write(conn *websocket.Conn, msg StreamMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(h.writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}

// readLoop drains client frames so control messages are handled, and cancels
// the stream when the client goes away.
func (h *StreamHandler) readLoop(conn *websocket.Conn, stop context.CancelFunc) {
	defer stop()
	conn.SetReadLimit(4096)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
