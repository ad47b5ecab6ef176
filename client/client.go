// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package client implements a JSON-RPC client for A2A agents.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-a2a/a2a-ollama"
	"github.com/go-a2a/a2a-ollama/internal/telemetry"
)

// Client talks to a single A2A agent endpoint.
type Client struct {
	httpClient   *http.Client
	url          string
	interceptors []Interceptor
	logger       *slog.Logger
	tracer       trace.Tracer
	newID        func() string
}

// New creates a new [Client] posting JSON-RPC requests to endpoint.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		url:        endpoint,
		logger:     slog.Default(),
		tracer:     telemetry.Tracer(),
		newID:      uuid.NewString,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// NewFromCard creates a new [Client] for the endpoint advertised by card.
func NewFromCard(card *a2a.AgentCard, opts ...Option) *Client {
	return New(card.URL, opts...)
}

// URL returns the endpoint the client posts to.
func (c *Client) URL() string { return c.url }

// GetAgentCard fetches the agent card from the well-known path of the
// client's host.
func (c *Client) GetAgentCard(ctx context.Context) (*a2a.AgentCard, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return nil, fmt.Errorf("parse agent url: %w", err)
	}
	base := (&url.URL{Scheme: u.Scheme, Host: u.Host}).String()
	return NewCardResolver(base, c.httpClient).GetAgentCard(ctx, "")
}

// SendTask sends a message and waits for the finished task.
func (c *Client) SendTask(ctx context.Context, params *a2a.TaskSendParams) (*a2a.Task, error) {
	var t a2a.Task
	if err := c.call(ctx, a2a.MethodTasksSend, params, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTask retrieves the stored state of a task.
func (c *Client) GetTask(ctx context.Context, params *a2a.TaskQueryParams) (*a2a.Task, error) {
	var t a2a.Task
	if err := c.call(ctx, a2a.MethodTasksGet, params, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// CancelTask asks the agent to cancel a task.
func (c *Client) CancelTask(ctx context.Context, params *a2a.TaskIDParams) (*a2a.Task, error) {
	var t a2a.Task
	if err := c.call(ctx, a2a.MethodTasksCancel, params, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// SetTaskPushNotification registers a push notification callback for a task.
func (c *Client) SetTaskPushNotification(ctx context.Context, params *a2a.TaskIDParams) error {
	return c.call(ctx, a2a.MethodTasksPushNotificationSet, params, nil)
}

// GetTaskPushNotification reads the push notification callback of a task.
func (c *Client) GetTaskPushNotification(ctx context.Context, params *a2a.TaskIDParams) error {
	return c.call(ctx, a2a.MethodTasksPushNotificationGet, params, nil)
}

// SendTaskSubscribe sends a message and streams the task's status updates.
//
// The returned sequence ends after the final event. A JSON-RPC error sent by
// the agent on the stream is yielded as a [*a2a.JSONRPCError].
func (c *Client) SendTaskSubscribe(ctx context.Context, params *a2a.TaskSendParams) (iter.Seq2[*a2a.TaskStatusUpdateEvent, error], error) {
	return c.subscribe(ctx, a2a.MethodTasksSendSubscribe, params)
}

// Resubscribe reattaches to the status updates of a task.
func (c *Client) Resubscribe(ctx context.Context, params *a2a.TaskQueryParams) (iter.Seq2[*a2a.TaskStatusUpdateEvent, error], error) {
	return c.subscribe(ctx, a2a.MethodTasksResubscribe, params)
}

func (c *Client) start(ctx context.Context, method string) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "a2a.client."+method, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(telemetry.MethodKey.String(method)))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// call performs a unary JSON-RPC call and decodes the result into out.
func (c *Client) call(ctx context.Context, method string, params, out any) (err error) {
	ctx, span := c.start(ctx, method)
	defer func() { endSpan(span, err) }()

	resp, err := c.post(ctx, method, params, a2a.ContentTypeJSON)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}

	var raw a2a.RawResponse
	if err := json.UnmarshalRead(resp.Body, &raw); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if raw.Error != nil {
		return raw.Error
	}
	if out == nil || len(raw.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

func (c *Client) subscribe(ctx context.Context, method string, params any) (iter.Seq2[*a2a.TaskStatusUpdateEvent, error], error) {
	ctx, span := c.start(ctx, method)

	resp, err := c.post(ctx, method, params, a2a.ContentTypeEventStream)
	if err != nil {
		endSpan(span, err)
		return nil, err
	}

	// Errors detected before the stream opens come back as a plain JSON body.
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), a2a.ContentTypeEventStream) {
		defer resp.Body.Close()
		err := decodeImmediateError(resp)
		endSpan(span, err)
		return nil, err
	}

	return func(yield func(*a2a.TaskStatusUpdateEvent, error) bool) {
		var err error
		defer func() {
			resp.Body.Close()
			endSpan(span, err)
		}()

		for ev, evErr := range readEvents(resp.Body) {
			if evErr != nil {
				err = evErr
				yield(nil, evErr)
				return
			}
			if !yield(ev, nil) || ev.Final {
				return
			}
		}
	}, nil
}

func decodeImmediateError(resp *http.Response) error {
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}
	var raw a2a.RawResponse
	if err := json.UnmarshalRead(resp.Body, &raw); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if raw.Error != nil {
		return raw.Error
	}
	return fmt.Errorf("unexpected content type %q", resp.Header.Get("Content-Type"))
}

func (c *Client) post(ctx context.Context, method string, params any, accept string) (*http.Response, error) {
	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode %s params: %w", method, err)
	}
	id, err := json.Marshal(c.newID())
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(a2a.NewRequest(jsontext.Value(id), method, rawParams))
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", a2a.ContentTypeJSON)
	req.Header.Set("Accept", accept)

	c.logger.DebugContext(ctx, "sending request", "method", method, "url", c.url)

	invoker := chainInterceptors(c.interceptors, func(ctx context.Context, req *http.Request) (*http.Response, error) {
		return c.httpClient.Do(req)
	})
	resp, err := invoker(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return resp, nil
}
