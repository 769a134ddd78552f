package bus

const (
	TopicChatMessage      = "chat.message"
	TopicSessionLifecycle = "session.lifecycle.v1"
)

func IsDialogueTopic(topic string) bool {
	return topic == TopicChatMessage
}
