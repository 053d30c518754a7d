// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package publish pushes settled circuit documents to external consumers.
package publish

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/vk/circuitgo/internal/circuitdoc"
	"github.com/vk/circuitgo/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// DefaultTimeout bounds a publish when SocketIO.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// SocketIO emits a circuit document as one Socket.IO event.
type SocketIO struct {
	URL       string // e.g. ws://localhost:3000/socket.io/
	Namespace string
	Event     string
	// AckEvent, when set, is the event the server answers with; Publish
	// waits for it before returning.
	AckEvent           string
	Timeout            time.Duration
	InsecureSkipVerify bool
}

type outcome struct {
	reply any
	err   error
}

// Publish connects, emits doc and disconnects. It returns the server's reply
// when AckEvent is set.
func (p SocketIO) Publish(ctx context.Context, doc circuitdoc.Document) (any, error) {
	if p.URL == "" {
		return nil, errors.New("publish: no Socket.IO URL configured")
	}
	event := p.Event
	if event == "" {
		event = "circuit"
	}
	namespace := p.Namespace
	if namespace == "" {
		namespace = "/"
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := ctxlog.FromContext(ctx).With("publisher", "socketio", "url", p.URL, "event", event)

	payload, err := Payload(doc)
	if err != nil {
		return nil, err
	}
	parsedURL, err := url.Parse(p.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if p.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host), opts)
	io := manager.Socket(namespace, opts)
	defer func() {
		logger.Debug("Disconnecting socket client")
		io.Disconnect()
	}()

	var connected atomic.Bool
	done := make(chan outcome, 1)
	finish := func(o outcome) {
		select {
		case done <- o:
		default:
		}
	}

	io.On(types.EventName("connect"), func(...any) {
		connected.Store(true)
		logger.Debug("Connected, emitting document.", "sid", io.Id(), "records", doc.Len())
		io.Emit(event, payload)
		if p.AckEvent == "" {
			finish(outcome{})
		}
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connection failed")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		finish(outcome{err: err})
	})
	if p.AckEvent != "" {
		io.On(types.EventName(p.AckEvent), func(data ...any) {
			var reply any
			if len(data) > 0 {
				reply = data[0]
			}
			finish(outcome{reply: reply})
		})
	}

	io.Connect()

	select {
	case <-opCtx.Done():
		if connected.Load() {
			return nil, fmt.Errorf("timed out after connecting while waiting for event '%s'", p.AckEvent)
		}
		return nil, errors.New("timed out while waiting for initial connection")
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("publishing to %s: %w", p.URL, res.err)
		}
		logger.Info("Circuit document published.", "records", doc.Len())
		return res.reply, nil
	}
}

// Payload converts doc into the generic form the Socket.IO encoder sends.
func Payload(doc circuitdoc.Document) ([]any, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding circuit document: %w", err)
	}
	var out []any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding circuit document: %w", err)
	}
	return out, nil
}
