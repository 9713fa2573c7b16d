package notify

import (
	"context"

	"promohub/internal/pkg/httpclient"
)

// WebhookSink 把事件 POST 到外部地址。
type WebhookSink struct {
	client *httpclient.Client
	url    string
}

func NewWebhookSink(client *httpclient.Client, url string) *WebhookSink {
	return &WebhookSink{client: client, url: url}
}

func (s *WebhookSink) Name() string { return "webhook" }

func (s *WebhookSink) Deliver(ctx context.Context, msg Message) error {
	return s.client.PostJSON(ctx, s.url, msg.Payload)
}
