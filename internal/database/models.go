package database

import "time"

type Employee struct {
	Id           int
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

type Message struct {
	Id             int
	ConversationId int
	SenderId       int
	Content        string
	SentAt         time.Time
}

type Notification struct {
	Id          int
	RecipientId int
	Title       string
	Body        string
	Read        bool
	CreatedAt   time.Time
}

type Participant struct {
	EmployeeId int
	FirstName  string
	LastName   string
}

type CreateMessageParams struct {
	ConversationId int
	SenderId       int
	Content        string
}

type CreateNotificationParams struct {
	RecipientId int
	Title       string
	Body        string
}
