package enums

// ChatRole identifies the author of a chat message sent to the model.
type ChatRole string

const (
	ChatRoleSystem    ChatRole = "system"
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

var chatRoles = set[ChatRole]{ChatRoleSystem, ChatRoleUser, ChatRoleAssistant}

func (r ChatRole) String() string { return string(r) }

// IsValid reports whether r is one of the roles the chat API accepts.
func (r ChatRole) IsValid() bool { return chatRoles.has(r) }
