package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/npezzotti/go-chatapp/internal/database"
	"github.com/npezzotti/go-chatapp/internal/types"
)

type SendMessageRequest struct {
	Text string `json:"text"`
	// Image is an optional base64 data URI.
	Image string `json:"image"`
}

type SidebarResponse struct {
	Users          []types.User `json:"users"`
	UnseenMessages map[int]int  `json:"unseen_messages"`
	OnlineUserIds  []int        `json:"online_user_ids"`
}

type OnlineUsersResponse struct {
	OnlineUserIds []int `json:"online_user_ids"`
}

func toMessage(m database.Message) types.Message {
	return types.Message{
		Id:         m.Id,
		SenderId:   m.SenderId,
		ReceiverId: m.ReceiverId,
		Text:       m.Text,
		Image:      m.Image,
		Seen:       m.Seen,
		CreatedAt:  m.CreatedAt,
	}
}

func pathId(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		return 0, false
	}

	return id, true
}

func (s *GoChatApp) sidebar(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	dbUsers, err := s.db.ListAccountsExcept(userId)
	if err != nil {
		s.log.Println("list accounts:", err)
		s.writeError(w, NewInternalServerError(err))
		return
	}

	unseen, err := s.unseen.ComputeUnseenForViewer(userId)
	if err != nil {
		s.log.Println("compute unseen:", err)
		s.writeError(w, NewInternalServerError(err))
		return
	}

	users := make([]types.User, 0, len(dbUsers))
	for _, u := range dbUsers {
		user := toUser(u)
		user.EmailAddress = ""
		users = append(users, user)
	}

	s.writeJson(w, http.StatusOK, SidebarResponse{
		Users:          users,
		UnseenMessages: unseen,
		OnlineUserIds:  s.cs.OnlineUserIds(),
	})
}

// getMessages returns the conversation with a contact and then marks the
// contact's messages to the viewer as seen. The returned records carry the
// seen flags as they were before the update.
func (s *GoChatApp) getMessages(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	contactId, ok := pathId(r)
	if !ok {
		s.writeError(w, NewBadRequestError())
		return
	}

	dbMessages, err := s.db.GetConversation(userId, contactId)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	if _, err := s.unseen.MarkConversationSeen(userId, contactId); err != nil {
		s.log.Println("mark conversation seen:", err)
		s.writeError(w, NewInternalServerError(err))
		return
	}

	messages := make([]types.Message, 0, len(dbMessages))
	for _, m := range dbMessages {
		messages = append(messages, toMessage(m))
	}

	s.writeJson(w, http.StatusOK, messages)
}

func (s *GoChatApp) markSeen(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	messageId, ok := pathId(r)
	if !ok {
		s.writeError(w, NewBadRequestError())
		return
	}

	if err := s.unseen.MarkSingleSeen(messageId, userId); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.writeError(w, NewNotFoundError())
			return
		}
		s.writeError(w, NewInternalServerError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// sendMessage persists a message and only then hands it to the chat server
// for live delivery. A message that failed to persist is never routed.
func (s *GoChatApp) sendMessage(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeError(w, NewUnauthorizedError())
		return
	}

	receiverId, ok := pathId(r)
	if !ok || receiverId == userId {
		s.writeError(w, NewBadRequestError())
		return
	}

	var req SendMessageRequest
	if errResp := decodeJson(r, &req); errResp != nil {
		s.writeError(w, errResp)
		return
	}

	if strings.TrimSpace(req.Text) == "" && req.Image == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	if _, err := s.db.GetAccountById(receiverId); err != nil {
		s.writeError(w, lookupError(err))
		return
	}

	params := database.CreateMessageParams{
		SenderId:   userId,
		ReceiverId: receiverId,
		Text:       req.Text,
	}

	if req.Image != "" {
		url, errResp := s.uploadImage(r.Context(), req.Image)
		if errResp != nil {
			s.writeError(w, errResp)
			return
		}
		params.Image = url
	}

	dbMsg, err := s.db.CreateMessage(params)
	if err != nil {
		s.log.Println("create message:", err)
		s.writeError(w, NewInternalServerError(err))
		return
	}

	msg := toMessage(dbMsg)
	s.cs.Route(msg)

	s.writeJson(w, http.StatusCreated, msg)
}

func (s *GoChatApp) onlineUsers(w http.ResponseWriter, _ *http.Request) {
	s.writeJson(w, http.StatusOK, OnlineUsersResponse{
		OnlineUserIds: s.cs.OnlineUserIds(),
	})
}
