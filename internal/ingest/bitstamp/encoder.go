package bitstamp

import (
	"tickerfeed/pkg/websocket"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
)

type subscribeRequest struct {
	Event string        `json:"event"`
	Data  subscribeData `json:"data"`
}

type subscribeData struct {
	Channel string `json:"channel"`
}

// Encoder builds subscribe frames.
type Encoder struct {
	event string
}

// NewEncoder uses event as the subscribe event name. Empty means DefaultSubscribeEvent.
func NewEncoder(event string) *Encoder {
	if event == "" {
		event = DefaultSubscribeEvent
	}
	return &Encoder{event: event}
}

// EncodeSubscribe appends {"event":<event>,"data":{"channel":<channel>}} to dst.
func (e *Encoder) EncodeSubscribe(dst []byte, channel string) (websocket.MessageType, []byte, error) {
	payload, err := sonic.ConfigStd.Marshal(subscribeRequest{
		Event: e.event,
		Data:  subscribeData{Channel: channel},
	})
	if err != nil {
		return 0, nil, errors.Wrap(err, "marshal subscribe request").With("channel", channel)
	}
	return websocket.MessageText, append(dst, payload...), nil
}
