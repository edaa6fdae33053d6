package channel

import "fmt"

// Entry is what the registry produces for one channel tag: the bus topic
// consumers for that channel should use, and the provider capability that
// actually performs delivery. Channel consumers are generic over Entry —
// there is no hardcoded switch over a fixed channel enum anywhere in the
// pipeline.
type Entry struct {
	Tag      string
	Topic    string
	Provider Provider
}

// Registry is an open-set index from channel tag to Entry. New channels can
// be added at startup without touching consumer code.
type Registry struct {
	entries map[string]Entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register adds or replaces the entry for tag.
func (r *Registry) Register(tag, topic string, provider Provider) {
	r.entries[tag] = Entry{Tag: tag, Topic: topic, Provider: provider}
}

// Lookup returns the entry for tag, if registered.
func (r *Registry) Lookup(tag string) (Entry, bool) {
	e, ok := r.entries[tag]
	return e, ok
}

// TopicFor returns the bus topic for tag, erroring if the channel is not
// registered — used by the ingest gate to route outbox rows.
func (r *Registry) TopicFor(tag string) (string, error) {
	e, ok := r.entries[tag]
	if !ok {
		return "", fmt.Errorf("channel %q is not registered", tag)
	}
	return e.Topic, nil
}

// Tags returns every registered channel tag, in no particular order.
func (r *Registry) Tags() []string {
	tags := make([]string, 0, len(r.entries))
	for t := range r.entries {
		tags = append(tags, t)
	}
	return tags
}

// DefaultTopic is the conventional bus topic name for a channel tag.
func DefaultTopic(tag string) string {
	return tag + "_notification"
}
