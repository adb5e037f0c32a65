package chat

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Presence is the simulated online state of a participant.
type Presence string

const (
	PresenceOnline  Presence = "online"
	PresenceOffline Presence = "offline"
	PresenceTyping  Presence = "typing"
)

// User is a chat participant as shown in the header roster.
type User struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Role   Role     `json:"role"`
	Avatar string   `json:"avatar"`
	Status Presence `json:"status"`
}

const (
	AssistantID   = "ai-assistant"
	CurrentUserID = "current-user"

	defaultAvatar = "/placeholder.svg?height=40&width=40"
)

// SeedRoster returns the fixed participants of the widget. The first two entries
// (assistant, current user) are never touched by presence simulation.
func SeedRoster() []User {
	return []User{
		{
			ID:     AssistantID,
			Name:   "AI Assistant",
			Role:   RoleAssistant,
			Avatar: defaultAvatar,
			Status: PresenceOnline,
		},
		{
			ID:     CurrentUserID,
			Name:   "You",
			Role:   RoleUser,
			Avatar: defaultAvatar,
			Status: PresenceOnline,
		},
		{
			ID:     "john-doe",
			Name:   "John Doe",
			Role:   RoleUser,
			Avatar: defaultAvatar,
			Status: PresenceOnline,
		},
		{
			ID:     "jane-smith",
			Name:   "Jane Smith",
			Role:   RoleUser,
			Avatar: defaultAvatar,
			Status: PresenceOffline,
		},
	}
}

// Assistant returns the assistant participant snapshot.
func Assistant() User {
	return SeedRoster()[0]
}

// CurrentUser returns the local user's participant snapshot.
func CurrentUser() User {
	return SeedRoster()[1]
}
