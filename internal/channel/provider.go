package channel

import "context"

// Provider abstracts delivery to an external notification service for one
// channel. The core pipeline only ever calls Send — the concrete SMTP,
// push, or messaging-API adapters that implement it are external
// collaborators and out of scope for this repository.
type Provider interface {
	Send(ctx context.Context, recipient, content map[string]any, variables map[string]string) (providerMsgID string, err error)
}

// ProviderFunc adapts a plain function to the Provider interface, handy for
// tests. The provider registered by default is WebhookProvider.
type ProviderFunc func(ctx context.Context, recipient, content map[string]any, variables map[string]string) (string, error)

func (f ProviderFunc) Send(ctx context.Context, recipient, content map[string]any, variables map[string]string) (string, error) {
	return f(ctx, recipient, content, variables)
}
