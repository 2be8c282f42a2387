package ingest

import (
	"tickerfeed/internal/ingest/bitstamp"
	"tickerfeed/internal/obs"

	"github.com/yanun0323/logs"
)

// FrameHandler routes decoded feed frames into the pipeline.
type FrameHandler struct {
	decoder  *bitstamp.Decoder
	pipeline *Pipeline
	metrics  *obs.Metrics
}

// NewFrameHandler joins decoder and pipeline.
func NewFrameHandler(decoder *bitstamp.Decoder, pipeline *Pipeline, metrics *obs.Metrics) *FrameHandler {
	return &FrameHandler{
		decoder:  decoder,
		pipeline: pipeline,
		metrics:  metrics,
	}
}

// HandleFrame never fails; undecodable frames are logged by the decoder and skipped.
func (h *FrameHandler) HandleFrame(payload []byte) {
	event, ok := h.decoder.Decode(payload)
	if !ok {
		return
	}

	switch event.Kind {
	case bitstamp.KindTrade:
		logs.Debugf("received trade update for %s: price=%s, timestamp=%d", event.Trade.Symbol, event.Trade.Price, event.Trade.Timestamp)
		h.pipeline.OnTrade(event.Trade.Symbol, event.Trade.Price, event.Trade.Timestamp)
	case bitstamp.KindSubscriptionAck:
		h.metrics.IncAck()
		logs.Infof("subscription successful for channel: %s", event.Channel)
	default:
		logs.Debugf("received unhandled event type: %s on channel: %s", event.Name, event.Channel)
	}
}
