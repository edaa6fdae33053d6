package channel_test

import (
	"context"
	"sort"
	"testing"

	"github.com/notifyrelay/pipeline/internal/channel"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	reg := channel.NewRegistry()
	provider := channel.ProviderFunc(func(ctx context.Context, recipient, content map[string]any, variables map[string]string) (string, error) {
		return "msg-1", nil
	})
	reg.Register("email", "email_notification", provider)

	entry, ok := reg.Lookup("email")
	if !ok {
		t.Fatal("expected email channel to be registered")
	}
	if entry.Topic != "email_notification" {
		t.Fatalf("expected topic email_notification, got %s", entry.Topic)
	}

	if _, ok := reg.Lookup("sms"); ok {
		t.Fatal("expected sms to be unregistered")
	}
}

func TestRegistry_TopicFor_UnknownChannel(t *testing.T) {
	reg := channel.NewRegistry()
	if _, err := reg.TopicFor("push"); err == nil {
		t.Fatal("expected an error for an unregistered channel")
	}
}

func TestRegistry_Tags(t *testing.T) {
	reg := channel.NewRegistry()
	noop := channel.ProviderFunc(func(ctx context.Context, recipient, content map[string]any, variables map[string]string) (string, error) {
		return "", nil
	})
	reg.Register("email", channel.DefaultTopic("email"), noop)
	reg.Register("sms", channel.DefaultTopic("sms"), noop)

	tags := reg.Tags()
	sort.Strings(tags)
	if len(tags) != 2 || tags[0] != "email" || tags[1] != "sms" {
		t.Fatalf("expected [email sms], got %v", tags)
	}
}

func TestDefaultTopic(t *testing.T) {
	if got := channel.DefaultTopic("push"); got != "push_notification" {
		t.Fatalf("expected push_notification, got %s", got)
	}
}

func TestProviderFunc_Send(t *testing.T) {
	var gotRecipient map[string]any
	f := channel.ProviderFunc(func(ctx context.Context, recipient, content map[string]any, variables map[string]string) (string, error) {
		gotRecipient = recipient
		return "id-1", nil
	})

	id, err := f.Send(context.Background(), map[string]any{"user_id": "u1"}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "id-1" {
		t.Fatalf("expected id-1, got %s", id)
	}
	if gotRecipient["user_id"] != "u1" {
		t.Fatalf("expected recipient to be passed through, got %v", gotRecipient)
	}
}
