package engine

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"aide/stream"
	"aide/tools"
)

// CompletionStreamer opens one streamed exchange with the completion
// service. Connection and protocol errors surface through the returned
// decoder, never here.
type CompletionStreamer interface {
	Stream(ctx context.Context, params anthropic.MessageNewParams) *stream.Decoder
}

// Client is the production CompletionStreamer, backed by the service SDK.
type Client struct {
	client   anthropic.Client
	fallback stream.FallbackFunc
}

func NewClient(baseURL, apiKey string) *Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	schemas := tools.SchemaIndex()
	return &Client{
		client: anthropic.NewClient(opts...),
		fallback: func(name string) map[string]any {
			return tools.FallbackArgs(schemas, name)
		},
	}
}

func (c *Client) Stream(ctx context.Context, params anthropic.MessageNewParams) *stream.Decoder {
	sse := c.client.Messages.NewStreaming(ctx, params)
	return stream.NewDecoder(sse, c.fallback)
}
