package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/crmsuite/relay/internal/database"
	"github.com/crmsuite/relay/internal/relay"
	"github.com/gorilla/websocket"
)

const defaultMessageLimit = 50

type EmployeeResponse struct {
	Id        int    `json:"id_personne"`
	FirstName string `json:"prenom"`
	LastName  string `json:"nom"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

type CreateMessageRequest struct {
	ConversationId int    `json:"id_conversation"`
	Content        string `json:"contenu"`
}

type MessageResponse struct {
	Id             int       `json:"id_message"`
	ConversationId int       `json:"id_conversation"`
	SenderId       int       `json:"id_emetteur"`
	Content        string    `json:"contenu"`
	SentAt         time.Time `json:"date_envoi"`
}

type CreateNotificationRequest struct {
	RecipientId int    `json:"destinataire_id"`
	Title       string `json:"titre"`
	Body        string `json:"contenu"`
}

type NotificationResponse struct {
	Id          int       `json:"id_notification"`
	RecipientId int       `json:"destinataire_id,omitempty"`
	Title       string    `json:"titre"`
	Body        string    `json:"contenu"`
	Read        bool      `json:"lue"`
	CreatedAt   time.Time `json:"date_creation"`
}

type BanConversationRequest struct {
	ConversationId int  `json:"id_conversation"`
	Banned         bool `json:"est_bannie"`
}

type ParticipantResponse struct {
	EmployeeId int    `json:"id_personne"`
	FirstName  string `json:"prenom"`
	LastName   string `json:"nom"`
}

func messageResponse(m database.Message) MessageResponse {
	return MessageResponse{
		Id:             m.Id,
		ConversationId: m.ConversationId,
		SenderId:       m.SenderId,
		Content:        m.Content,
		SentAt:         m.SentAt,
	}
}

func (s *CrmApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *CrmApp) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Println("health check:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]string{"status": "ok"})
}

// createMessage persists a chat message for the authenticated sender
// and returns the stored record. The client pushes the returned record
// to the relay itself; the REST layer does not.
func (s *CrmApp) createMessage(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.ConversationId <= 0 || req.Content == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	msg, err := s.db.CreateMessage(database.CreateMessageParams{
		ConversationId: req.ConversationId,
		SenderId:       userId,
		Content:        req.Content,
	})
	if err != nil {
		s.log.Println("create message:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, messageResponse(msg))
}

func (s *CrmApp) getMessages(w http.ResponseWriter, r *http.Request) {
	conversationIdStr := r.URL.Query().Get("conversation_id")
	if conversationIdStr == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	conversationId, err := strconv.Atoi(conversationIdStr)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	limit := defaultMessageLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	dbMessages, err := s.db.GetMessages(conversationId, limit)
	if err != nil {
		s.log.Println("get messages:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	messages := make([]MessageResponse, 0, len(dbMessages))
	for _, m := range dbMessages {
		messages = append(messages, messageResponse(m))
	}

	s.writeJson(w, http.StatusOK, messages)
}

// createNotification durably persists the notification, then pushes it
// to the relay best-effort for live delivery. A failed push is
// invisible here: the record surfaces on the recipient's next fetch.
func (s *CrmApp) createNotification(w http.ResponseWriter, r *http.Request) {
	var req CreateNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Title == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	notif, err := s.db.CreateNotification(database.CreateNotificationParams{
		RecipientId: req.RecipientId,
		Title:       req.Title,
		Body:        req.Body,
	})
	if err != nil {
		s.log.Println("create notification:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	resp := NotificationResponse{
		Id:          notif.Id,
		RecipientId: notif.RecipientId,
		Title:       notif.Title,
		Body:        notif.Body,
		Read:        notif.Read,
		CreatedAt:   notif.CreatedAt,
	}

	s.notifier.Push(relay.EventSendNotification, resp)

	s.writeJson(w, http.StatusCreated, resp)
}

// banConversation flips the authoritative ban flag, then echoes the ban
// through the relay so open conversation views refresh immediately.
func (s *CrmApp) banConversation(w http.ResponseWriter, r *http.Request) {
	var req BanConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.ConversationId <= 0 {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.SetConversationBanned(req.ConversationId, req.Banned); err != nil {
		s.log.Println("set conversation banned:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.notifier.Push(relay.EventConversationBanned, req)

	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *CrmApp) getParticipants(w http.ResponseWriter, r *http.Request) {
	conversationId, err := strconv.Atoi(r.URL.Query().Get("conversation_id"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbParticipants, err := s.db.GetConversationParticipants(conversationId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	participants := make([]ParticipantResponse, 0, len(dbParticipants))
	for _, p := range dbParticipants {
		participants = append(participants, ParticipantResponse{
			EmployeeId: p.EmployeeId,
			FirstName:  p.FirstName,
			LastName:   p.LastName,
		})
	}

	s.writeJson(w, http.StatusOK, participants)
}

func (s *CrmApp) serveWs(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := relay.NewClient(userId, conn, s.rs, s.log)
	s.rs.RegisterClient(client)

	go client.Write()
	go client.Read()
}
