package chatsync

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"teamchat/internal/models"
)

const pushRetryDelay = 5 * time.Second

// PushListener follows the websocket of a chat and hands every event to
// onEvent. Events are hints only; the poller still owns the data.
type PushListener struct {
	url     string
	header  http.Header
	dialer  *websocket.Dialer
	onEvent func(models.ChatEvent)
	retry   time.Duration
}

func NewPushListener(url string, header http.Header, onEvent func(models.ChatEvent)) *PushListener {
	return &PushListener{
		url:     url,
		header:  header,
		dialer:  websocket.DefaultDialer,
		onEvent: onEvent,
		retry:   pushRetryDelay,
	}
}

// Run reconnects until ctx is done.
func (p *PushListener) Run(ctx context.Context) {
	for {
		if err := p.session(ctx); err != nil && ctx.Err() == nil {
			log.Debug().Err(err).Str("url", p.url).Msg("push connection lost")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.retry):
		}
	}
}

func (p *PushListener) session(ctx context.Context) error {
	conn, _, err := p.dialer.DialContext(ctx, p.url, p.header)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var ev models.ChatEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Debug().Err(err).Msg("ignoring malformed push event")
			continue
		}
		p.onEvent(ev)
	}
}
