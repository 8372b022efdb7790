package database

import (
	"time"
)

func (db *PgCrmRepository) Ping() error {
	return db.conn.Ping()
}

// IsConversationBanned is a point lookup of the authoritative ban flag.
// It is executed on every relayed message and must never be cached.
func (db *PgCrmRepository) IsConversationBanned(conversationId string) (bool, error) {
	row := db.conn.QueryRow(
		"SELECT est_bannie FROM conversation WHERE id_conversation = $1::int LIMIT 1",
		conversationId,
	)

	var banned bool
	err := row.Scan(&banned)

	return banned, err
}

func (db *PgCrmRepository) SetConversationBanned(conversationId int, banned bool) error {
	_, err := db.conn.Exec(
		"UPDATE conversation SET est_bannie = $2 WHERE id_conversation = $1",
		conversationId,
		banned,
	)

	return err
}

func (db *PgCrmRepository) GetEmployeeById(id int) (Employee, error) {
	row := db.conn.QueryRow(
		"SELECT id_personne, prenom, nom, email, mot_de_passe, role FROM personne "+
			"WHERE id_personne = $1 LIMIT 1",
		id,
	)

	var e Employee
	err := row.Scan(
		&e.Id,
		&e.FirstName,
		&e.LastName,
		&e.Email,
		&e.PasswordHash,
		&e.Role,
	)

	return e, err
}

func (db *PgCrmRepository) GetEmployeeByEmail(email string) (Employee, error) {
	row := db.conn.QueryRow(
		"SELECT id_personne, prenom, nom, email, mot_de_passe, role FROM personne "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var e Employee
	err := row.Scan(
		&e.Id,
		&e.FirstName,
		&e.LastName,
		&e.Email,
		&e.PasswordHash,
		&e.Role,
	)

	return e, err
}

func (db *PgCrmRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	res := db.conn.QueryRow(
		"INSERT INTO message (id_conversation, id_emetteur, contenu, date_envoi) "+
			"VALUES ($1, $2, $3, $4) RETURNING id_message, id_conversation, id_emetteur, contenu, date_envoi",
		params.ConversationId,
		params.SenderId,
		params.Content,
		time.Now().UTC(),
	)

	var m Message
	err := res.Scan(
		&m.Id,
		&m.ConversationId,
		&m.SenderId,
		&m.Content,
		&m.SentAt,
	)

	return m, err
}

func (db *PgCrmRepository) GetMessages(conversationId, limit int) ([]Message, error) {
	rows, err := db.conn.Query(
		"SELECT id_message, id_conversation, id_emetteur, contenu, date_envoi FROM message "+
			"WHERE id_conversation = $1 ORDER BY date_envoi DESC LIMIT $2",
		conversationId,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(
			&m.Id,
			&m.ConversationId,
			&m.SenderId,
			&m.Content,
			&m.SentAt,
		); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}

func (db *PgCrmRepository) CreateNotification(params CreateNotificationParams) (Notification, error) {
	res := db.conn.QueryRow(
		"INSERT INTO notification (destinataire_id, titre, contenu, lue, date_creation) "+
			"VALUES ($1, $2, $3, FALSE, $4) RETURNING id_notification, destinataire_id, titre, contenu, lue, date_creation",
		params.RecipientId,
		params.Title,
		params.Body,
		time.Now().UTC(),
	)

	var n Notification
	err := res.Scan(
		&n.Id,
		&n.RecipientId,
		&n.Title,
		&n.Body,
		&n.Read,
		&n.CreatedAt,
	)

	return n, err
}

func (db *PgCrmRepository) GetConversationParticipants(conversationId int) ([]Participant, error) {
	rows, err := db.conn.Query(
		"SELECT p.id_personne, p.prenom, p.nom FROM participant pa "+
			"JOIN personne p ON p.id_personne = pa.id_personne "+
			"WHERE pa.id_conversation = $1",
		conversationId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []Participant
	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.EmployeeId, &p.FirstName, &p.LastName); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}

	return participants, rows.Err()
}
