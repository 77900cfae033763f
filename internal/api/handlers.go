package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"

	"github.com/chatfastnow/go-chatserver/internal/database"
	"github.com/chatfastnow/go-chatserver/internal/server"
	"github.com/chatfastnow/go-chatserver/internal/stats"
	"github.com/chatfastnow/go-chatserver/internal/types"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type RegisterRequest struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	ProfilePicture string `json:"profilePicture"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	types.User
	Token string `json:"token"`
}

type AccessChatRequest struct {
	UserId string `json:"userId"`
}

type CreateGroupRequest struct {
	ChatName string   `json:"chatName"`
	UserIds  []string `json:"userIds"`
}

type RenameGroupRequest struct {
	ChatId   string `json:"chatId"`
	ChatName string `json:"chatName"`
}

type GroupMemberRequest struct {
	ChatId string `json:"chatId"`
	UserId string `json:"userId"`
}

type SendMessageRequest struct {
	Content string `json:"content"`
	ChatId  string `json:"chatId"`
}

func (s *ChatApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *ChatApp) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		s.log.Println("health check:", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Write([]byte("OK"))
}

func (s *ChatApp) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	pwdHash, err := hashPassword(req.Password)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	newUser, err := s.db.CreateUser(r.Context(), database.CreateUserParams{
		Username:       req.Username,
		Email:          req.Email,
		PasswordHash:   pwdHash,
		ProfilePicture: req.ProfilePicture,
	})
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, database.ErrDuplicateUsername) {
			errResp = NewBadRequestError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user := toUser(newUser)
	token, err := s.createJwtForSession(user, defaultJwtExpiration)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, AuthResponse{User: user, Token: token})
}

func (s *ChatApp) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Username == "" || req.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUser, err := s.db.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, database.ErrNotFound) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// an unknown username and a wrong password are indistinguishable to the
	// caller
	if !verifyPassword(dbUser.PasswordHash, req.Password) {
		errResp := NewNotFoundError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user := toUser(dbUser)
	token, err := s.createJwtForSession(user, defaultJwtExpiration)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, AuthResponse{User: user, Token: token})
}

func (s *ChatApp) listUsers(w http.ResponseWriter, r *http.Request) {
	dbUsers, err := s.db.ListUsers(r.Context())
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	users := make([]types.User, 0, len(dbUsers))
	for _, u := range dbUsers {
		users = append(users, toUser(u))
	}

	s.writeJson(w, http.StatusOK, users)
}

func (s *ChatApp) searchUsers(w http.ResponseWriter, r *http.Request) {
	caller, ok := SessionUser(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	callerId, err := bson.ObjectIDFromHex(caller.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUsers, err := s.db.SearchUsers(r.Context(), r.URL.Query().Get("search"), callerId)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	users := make([]types.User, 0, len(dbUsers))
	for _, u := range dbUsers {
		users = append(users, toUser(u))
	}

	s.writeJson(w, http.StatusOK, users)
}

// accessChat returns the direct chat between the caller and the given user,
// creating it on first contact. Repeated calls with the same pair, in either
// order, resolve to the same chat.
func (s *ChatApp) accessChat(w http.ResponseWriter, r *http.Request) {
	caller, ok := SessionUser(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req AccessChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	targetId, err := bson.ObjectIDFromHex(req.UserId)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	callerId, _ := bson.ObjectIDFromHex(caller.Id)

	if _, err := s.db.GetUserById(r.Context(), targetId); err != nil {
		var errResp *ApiError
		if errors.Is(err, database.ErrNotFound) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbChat, err := s.db.FindDirectChat(r.Context(), callerId, targetId)
	if errors.Is(err, database.ErrNotFound) {
		dbChat, err = s.db.CreateChat(r.Context(), database.CreateChatParams{
			IsGroupChat: false,
			UserIds:     []bson.ObjectID{callerId, targetId},
		})
	}
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	chat, err := s.resolveChat(r, dbChat)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, chat)
}

func (s *ChatApp) fetchChats(w http.ResponseWriter, r *http.Request) {
	caller, ok := SessionUser(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	callerId, err := bson.ObjectIDFromHex(caller.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbChats, err := s.db.ListChatsForUser(r.Context(), callerId)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	chats, err := s.resolveChats(r, dbChats)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, chats)
}

func (s *ChatApp) createGroup(w http.ResponseWriter, r *http.Request) {
	caller, ok := SessionUser(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.ChatName == "" || len(req.UserIds) == 0 {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	callerId, _ := bson.ObjectIDFromHex(caller.Id)

	memberIds := make([]bson.ObjectID, 0, len(req.UserIds)+1)
	for _, idHex := range req.UserIds {
		id, err := bson.ObjectIDFromHex(idHex)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		if id != callerId {
			memberIds = append(memberIds, id)
		}
	}

	// a group needs at least one member beyond the creator
	if len(memberIds) == 0 {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	memberIds = append(memberIds, callerId)

	dbChat, err := s.db.CreateChat(r.Context(), database.CreateChatParams{
		ChatName:    req.ChatName,
		IsGroupChat: true,
		UserIds:     memberIds,
		GroupAdmin:  callerId,
	})
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	chat, err := s.resolveChat(r, dbChat)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, chat)
}

func (s *ChatApp) renameGroup(w http.ResponseWriter, r *http.Request) {
	var req RenameGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.ChatName == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	chatId, err := s.groupChatId(r, req.ChatId)
	if err != nil {
		s.writeChatError(w, err)
		return
	}

	dbChat, err := s.db.UpdateChatName(r.Context(), chatId, req.ChatName)
	if err != nil {
		s.writeChatError(w, err)
		return
	}

	chat, err := s.resolveChat(r, dbChat)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, chat)
}

func (s *ChatApp) addToGroup(w http.ResponseWriter, r *http.Request) {
	chatId, userId, ok := s.decodeGroupMemberRequest(w, r)
	if !ok {
		return
	}

	dbChat, err := s.db.AddChatMember(r.Context(), chatId, userId)
	if err != nil {
		s.writeChatError(w, err)
		return
	}

	chat, err := s.resolveChat(r, dbChat)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, chat)
}

func (s *ChatApp) removeFromGroup(w http.ResponseWriter, r *http.Request) {
	chatId, userId, ok := s.decodeGroupMemberRequest(w, r)
	if !ok {
		return
	}

	dbChat, err := s.db.RemoveChatMember(r.Context(), chatId, userId)
	if err != nil {
		s.writeChatError(w, err)
		return
	}

	chat, err := s.resolveChat(r, dbChat)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, chat)
}

func (s *ChatApp) sendMessage(w http.ResponseWriter, r *http.Request) {
	caller, ok := SessionUser(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Content == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	chatId, err := bson.ObjectIDFromHex(req.ChatId)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbChat, err := s.db.GetChatById(r.Context(), chatId)
	if err != nil {
		s.writeChatError(w, err)
		return
	}

	callerId, _ := bson.ObjectIDFromHex(caller.Id)
	if !slices.Contains(dbChat.UserIds, callerId) {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbMsg, err := s.db.CreateMessage(r.Context(), database.CreateMessageParams{
		SenderId: callerId,
		ChatId:   chatId,
		Content:  req.Content,
	})
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// best-effort: a failure here leaves the message without an inbox
	// pointer update
	if err := s.db.SetLatestMessage(r.Context(), chatId, dbMsg.Id); err != nil {
		s.log.Println("set latest message:", err)
	}

	s.stats.Incr(stats.MessagesSent)

	chat, err := s.resolveChat(r, dbChat)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	msg := types.Message{
		Id:        dbMsg.Id.Hex(),
		Sender:    caller,
		Chat:      &chat,
		Content:   dbMsg.Content,
		CreatedAt: dbMsg.CreatedAt,
	}

	s.writeJson(w, http.StatusOK, msg)
}

func (s *ChatApp) getMessages(w http.ResponseWriter, r *http.Request) {
	chatId, err := bson.ObjectIDFromHex(r.PathValue("chatId"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbChat, err := s.db.GetChatById(r.Context(), chatId)
	if err != nil {
		s.writeChatError(w, err)
		return
	}

	dbMsgs, err := s.db.ListMessagesForChat(r.Context(), chatId)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	chat, err := s.resolveChat(r, dbChat)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	userById := make(map[string]types.User, len(chat.Users))
	for _, u := range chat.Users {
		userById[u.Id] = u
	}

	messages := make([]types.Message, 0, len(dbMsgs))
	for _, m := range dbMsgs {
		sender, ok := userById[m.SenderId.Hex()]
		if !ok {
			// sender may have left the chat since
			dbSender, err := s.db.GetUserById(r.Context(), m.SenderId)
			if err == nil {
				sender = toUser(dbSender)
				userById[sender.Id] = sender
			}
		}

		messages = append(messages, types.Message{
			Id:        m.Id.Hex(),
			Sender:    sender,
			Chat:      &chat,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}

	s.writeJson(w, http.StatusOK, messages)
}

func (s *ChatApp) serveWs(w http.ResponseWriter, r *http.Request) {
	user, ok := SessionUser(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
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

	client := server.NewClient(user, conn, s.cs, s.log)

	s.cs.RegisterClient(client)
	go client.Write()
	go client.Read()
}

// decodeGroupMemberRequest parses and validates the shared body shape of the
// add/remove membership endpoints.
func (s *ChatApp) decodeGroupMemberRequest(w http.ResponseWriter, r *http.Request) (bson.ObjectID, bson.ObjectID, bool) {
	var req GroupMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return bson.ObjectID{}, bson.ObjectID{}, false
	}

	userId, err := bson.ObjectIDFromHex(req.UserId)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return bson.ObjectID{}, bson.ObjectID{}, false
	}

	chatId, err := s.groupChatId(r, req.ChatId)
	if err != nil {
		s.writeChatError(w, err)
		return bson.ObjectID{}, bson.ObjectID{}, false
	}

	return chatId, userId, true
}

var errNotGroupChat = errors.New("not a group chat")

// groupChatId resolves the chat id and verifies the chat is a group: member
// and name mutations are not defined for direct chats.
func (s *ChatApp) groupChatId(r *http.Request, idHex string) (bson.ObjectID, error) {
	chatId, err := bson.ObjectIDFromHex(idHex)
	if err != nil {
		return bson.ObjectID{}, errNotGroupChat
	}

	chat, err := s.db.GetChatById(r.Context(), chatId)
	if err != nil {
		return bson.ObjectID{}, err
	}

	if !chat.IsGroupChat {
		return bson.ObjectID{}, errNotGroupChat
	}

	return chatId, nil
}

func (s *ChatApp) writeChatError(w http.ResponseWriter, err error) {
	var errResp *ApiError
	switch {
	case errors.Is(err, database.ErrNotFound):
		errResp = NewNotFoundError()
	case errors.Is(err, errNotGroupChat):
		errResp = NewBadRequestError()
	default:
		errResp = NewInternalServerError(err)
	}
	s.writeJson(w, errResp.StatusCode, errResp)
}
