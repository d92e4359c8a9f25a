package entity

type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Image is an attachment sent alongside a user message.
type Image struct {
	Data     []byte
	MimeType string
}

type Message struct {
	Role    MessageRole
	Content string
	Images  []Image
}

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func UserMessage(content string, images ...Image) Message {
	return Message{Role: RoleUser, Content: content, Images: images}
}

func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}
