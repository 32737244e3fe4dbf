// FILE: feed_ws.go
// Package main – Websocket market-data feed.
//
// The feed dials FEED_URL and expects one JSON envelope per text message:
//   {"kind":"tick","data":{"symbol":"SPY","time":"09:30:01","last":"450.1",...}}
// kind is tick|imbalance|close|timer; data uses the same JSON shape as the
// journal. Decoded events are sent into the dispatcher inbox. Broker-side
// kinds are rejected: acknowledgements come from the host, not the feed.
//
// The connection is redialed with capped exponential backoff until ctx ends.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type feedEnvelope struct {
	Kind EventKind       `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// decodeFeedMessage turns one websocket message into a market event.
func decodeFeedMessage(msg []byte) (Event, error) {
	var env feedEnvelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return nil, fmt.Errorf("feed envelope: %w", err)
	}
	if !env.Kind.IsMarket() {
		return nil, fmt.Errorf("feed kind %q not accepted", env.Kind)
	}
	return decodeEvent(env.Kind, env.Data)
}

type WSFeed struct {
	url string
	out chan<- Event
	log zerolog.Logger

	ReadTimeout  time.Duration
	PingInterval time.Duration
	MaxBackoff   time.Duration
}

func NewWSFeed(url string, out chan<- Event, log zerolog.Logger) *WSFeed {
	return &WSFeed{
		url:          url,
		out:          out,
		log:          log.With().Str("component", "feed").Logger(),
		ReadTimeout:  60 * time.Second,
		PingInterval: 30 * time.Second,
		MaxBackoff:   30 * time.Second,
	}
}

// Run keeps the feed connected until ctx is cancelled.
func (f *WSFeed) Run(ctx context.Context) error {
	retry := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, _, err := (&websocket.Dialer{HandshakeTimeout: 10 * time.Second}).DialContext(ctx, f.url, nil)
		if err != nil {
			delay := f.backoff(retry)
			retry++
			f.log.Warn().Err(err).Int("retry", retry).Dur("delay", delay).Msg("feed dial failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				continue
			}
		}
		retry = 0
		f.log.Info().Str("url", f.url).Msg("feed connected")
		err = f.consume(ctx, conn)
		conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.log.Warn().Err(err).Msg("feed disconnected")
	}
}

func (f *WSFeed) backoff(retry int) time.Duration {
	d := time.Second << min(retry, 6)
	if d > f.MaxBackoff {
		d = f.MaxBackoff
	}
	return d
}

func (f *WSFeed) consume(ctx context.Context, conn *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	if f.PingInterval > 0 {
		go f.ping(conn, done)
	}

	for {
		if f.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(f.ReadTimeout))
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		ev, err := decodeFeedMessage(msg)
		if err != nil {
			f.log.Warn().Err(err).Msg("feed message dropped")
			continue
		}
		select {
		case f.out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (f *WSFeed) ping(conn *websocket.Conn, done <-chan struct{}) {
	t := time.NewTicker(f.PingInterval)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}
