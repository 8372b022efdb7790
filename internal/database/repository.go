package database

type CrmRepository interface {
	Ping() error
	IsConversationBanned(conversationId string) (bool, error)
	SetConversationBanned(conversationId int, banned bool) error
	GetEmployeeById(id int) (Employee, error)
	GetEmployeeByEmail(email string) (Employee, error)
	CreateMessage(params CreateMessageParams) (Message, error)
	GetMessages(conversationId, limit int) ([]Message, error)
	CreateNotification(params CreateNotificationParams) (Notification, error)
	GetConversationParticipants(conversationId int) ([]Participant, error)
}
