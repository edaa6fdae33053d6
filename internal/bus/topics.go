package bus

// DelayedTopic and StatusTopic are the two fixed logical topics beyond the
// one-per-channel set; channel topics are named via channel.DefaultTopic.
const (
	DelayedTopic = "delayed_notification"
	StatusTopic  = "notification_status"
)
