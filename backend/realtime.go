// Copyright 2026 The Event Control Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Changefeed timing. The server drops subscribers it has not heard
// from in 60 seconds, so the client pings well inside that window.
const (
	feedDialTimeout  = 10 * time.Second
	feedPingInterval = 25 * time.Second
	feedReadTimeout  = 60 * time.Second
	feedWriteTimeout = 10 * time.Second
)

// feedEnvelope is the wire shape of every changefeed message, both
// directions. Client-to-server messages carry Action/Topic/Ref;
// server pushes carry Kind/Table/Row; the join acknowledgment echoes
// Ref with Status.
type feedEnvelope struct {
	Action string          `json:"action,omitempty"`
	Topic  string          `json:"topic,omitempty"`
	Ref    string          `json:"ref,omitempty"`
	Status string          `json:"status,omitempty"`
	Kind   ChangeKind      `json:"kind,omitempty"`
	Table  string          `json:"table,omitempty"`
	Row    json.RawMessage `json:"row,omitempty"`
}

// Subscribe opens the websocket changefeed scoped to one table and,
// when eventID is non-empty, to rows of one event. The returned
// Subscription delivers until Close or transport failure; the caller
// owns reconnection.
func (c *Client) Subscribe(ctx context.Context, table, eventID string) (*Subscription, error) {
	if table == "" {
		return nil, fmt.Errorf("backend: Subscribe requires a table")
	}

	feedURL := websocketURL(c.baseURL) + "/feed/v1"

	dialer := websocket.Dialer{HandshakeTimeout: feedDialTimeout}
	header := http.Header{}
	header.Set("apikey", c.serviceKey)
	header.Set("Authorization", "Bearer "+c.serviceKey)

	conn, _, err := dialer.DialContext(ctx, feedURL, header)
	if err != nil {
		return nil, fmt.Errorf("backend: dialing changefeed: %w", err)
	}

	topic := table
	if eventID != "" {
		topic = table + ":event_id=eq." + eventID
	}
	join := feedEnvelope{
		Action: "subscribe",
		Topic:  topic,
		Ref:    uuid.NewString(),
	}
	conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
	if err := conn.WriteJSON(join); err != nil {
		conn.Close()
		return nil, fmt.Errorf("backend: joining topic %s: %w", topic, err)
	}

	// The first frame must acknowledge the join. Anything else means
	// the server refused the topic.
	conn.SetReadDeadline(time.Now().Add(feedDialTimeout))
	var ack feedEnvelope
	if err := conn.ReadJSON(&ack); err != nil {
		conn.Close()
		return nil, fmt.Errorf("backend: reading join ack for %s: %w", topic, err)
	}
	if ack.Ref != join.Ref || ack.Status != "ok" {
		conn.Close()
		return nil, fmt.Errorf("backend: changefeed refused topic %s: status %q", topic, ack.Status)
	}

	feedContext, cancel := context.WithCancel(ctx)
	subscription := NewSubscription(cancel)

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(feedReadTimeout))
	})

	// Writer side: periodic pings, and connection teardown on cancel.
	// Closing the connection is what unblocks the reader goroutine.
	go func() {
		ticker := time.NewTicker(feedPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-feedContext.Done():
				conn.Close()
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	// Reader side: decode pushes until the connection dies.
	go func() {
		defer cancel()
		for {
			conn.SetReadDeadline(time.Now().Add(feedReadTimeout))
			var envelope feedEnvelope
			if err := conn.ReadJSON(&envelope); err != nil {
				if feedContext.Err() != nil {
					// Close() tore the connection down; clean end.
					subscription.Finish(nil)
				} else {
					subscription.Finish(fmt.Errorf("backend: changefeed read: %w", err))
				}
				return
			}
			if envelope.Kind == "" {
				// Server heartbeat or ack echo. Liveness only.
				continue
			}
			c.logger.Debug("changefeed notification",
				"topic", topic,
				"kind", envelope.Kind,
				"table", envelope.Table,
			)
			subscription.Deliver(Change{
				Kind:  envelope.Kind,
				Table: envelope.Table,
				Row:   envelope.Row,
			})
		}
	}()

	c.logger.Info("changefeed subscribed", "topic", topic)
	return subscription, nil
}

// websocketURL converts an http(s) base URL to its ws(s) form.
func websocketURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base
}
