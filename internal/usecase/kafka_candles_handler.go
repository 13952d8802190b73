package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"BandView/internal/domain/models"
	domrepo "BandView/internal/domain/repository"
	pkgkafka "BandView/pkg/kafka"
	applogger "BandView/pkg/logger"
	"BandView/pkg/util"
)

// CandleSink accepts live bars.
type CandleSink interface {
	Upsert(symbol string, tf domrepo.Timeframe, bar models.OHLCV) error
}

// KafkaCandlesHandler consumes candle messages and feeds the memory series store.
type KafkaCandlesHandler struct {
	topic   string
	sink    CandleSink
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewKafkaCandlesHandler(topic string, sink CandleSink, metrics domrepo.Metrics) *KafkaCandlesHandler {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &KafkaCandlesHandler{topic: topic, sink: sink, metrics: metrics}
}

// SetLogger injects a structured logger.
func (h *KafkaCandlesHandler) SetLogger(l *applogger.Logger) { h.l = l }

func (h *KafkaCandlesHandler) Topic() string { return h.topic }

type candleMessage struct {
	Symbol string  `json:"symbol"`
	TF     string  `json:"tf"`
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// incoming message schema: {symbol, tf, time, open, high, low, close, volume}
func (h *KafkaCandlesHandler) Handle(ctx context.Context, b []byte) error {
	var m candleMessage
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode candle: %w", err)
	}
	if m.Symbol == "" {
		h.metrics.RecordError("consumer_invalid")
		return fmt.Errorf("decode candle: symbol required")
	}
	tf := domrepo.Timeframe(m.TF)
	if tf == "" {
		tf = domrepo.DefaultTimeframe()
	}
	if !domrepo.IsValidTimeframe(tf) {
		h.metrics.RecordError("consumer_invalid")
		return fmt.Errorf("decode candle: unsupported timeframe %q", m.TF)
	}
	ts := util.NormalizeMillis(m.Time)
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.UnixMilli(ts)).Seconds())

	bar := models.OHLCV{Time: ts, Open: m.Open, High: m.High, Low: m.Low, Close: m.Close, Volume: m.Volume}
	if err := h.sink.Upsert(m.Symbol, tf, bar); err != nil {
		h.metrics.RecordError("consumer_store")
		if h.l != nil {
			h.l.Warn("candle rejected",
				applogger.String("symbol", m.Symbol),
				applogger.String("tf", string(tf)),
				applogger.Int64("time", ts),
				applogger.Error(err),
			)
		}
		return err
	}
	h.metrics.RecordLastClose(m.Symbol, m.Close)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaCandlesHandler)(nil)
