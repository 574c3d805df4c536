package realtime

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	domain "github.com/Keshujangid/Chat-app/domain/chat"
	"github.com/Keshujangid/Chat-app/modules/chat"
	"github.com/Keshujangid/Chat-app/modules/presence"
)

// Handlers owns the websocket connection lifecycle and dispatches inbound
// frames to the chat and presence services.
type Handlers struct {
	hub      *Hub
	chat     *chat.Service
	presence *presence.Module
	logger   *slog.Logger
}

// NewHandlers wires the connection handlers.
func NewHandlers(hub *Hub, chatService *chat.Service, presenceModule *presence.Module) *Handlers {
	return &Handlers{
		hub:      hub,
		chat:     chatService,
		presence: presenceModule,
		logger:   slog.Default(),
	}
}

// HandleConnection runs a single websocket session from registration to
// disconnect. The upgrade middleware has already authenticated the
// connection and stored the claims in locals.
func (h *Handlers) HandleConnection(c *websocket.Conn) {
	claims, ok := c.Locals(LocalsUserKey).(*domain.Claims)
	if !ok || claims == nil {
		c.Close()
		return
	}

	ctx := context.Background()
	client := NewClient(uuid.New().String(), claims.UserID, claims.Username, c)
	h.hub.Register(client)

	defer func() {
		h.hub.Unregister(client.ID)
		h.presence.HandleDisconnect(ctx, client.UserID)
		c.Close()
	}()

	snapshot, err := h.presence.HandleConnect(ctx, client.UserID, client.ID)
	if err != nil {
		h.logger.Error("presence connect failed", "userID", client.UserID, "error", err)
		return
	}
	if err := client.Send(Envelope{Event: EventOnlineSnapshot, Data: mustMarshal(snapshot)}); err != nil {
		h.logger.Warn("failed to send online snapshot", "connID", client.ID, "error", err)
	}

	h.logger.Info("websocket connected", "userID", client.UserID, "connID", client.ID)

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			break
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			h.sendError(client, "", "invalid message format")
			continue
		}
		h.Dispatch(ctx, client, env)
	}

	h.logger.Info("websocket disconnected", "userID", client.UserID, "connID", client.ID)
}

// Dispatch routes one inbound envelope.
func (h *Handlers) Dispatch(ctx context.Context, client *Client, env Envelope) {
	switch env.Event {
	case EventConversationJoin:
		h.handleJoin(ctx, client, env)
	case EventConversationLeave:
		h.handleLeave(ctx, client, env)
	case EventRequestOnlineUsers:
		h.handleRequestOnlineUsers(ctx, client, env)
	case EventMessageSend:
		h.handleSendMessage(ctx, client, env)
	case EventUserTyping, EventUserStopTyping:
		h.handleTyping(client, env)
	default:
		h.sendError(client, env.Ref, "unknown event: "+env.Event)
	}
}

// handleJoin authorizes the user against the conversation roster, adds
// the connection to the room, notifies the other members, and replies
// with the room-scoped online snapshot.
func (h *Handlers) handleJoin(ctx context.Context, client *Client, env Envelope) {
	conversationID, err := decodeConversationID(env.Data)
	if err != nil || conversationID == "" {
		h.sendError(client, env.Ref, "conversationId required")
		return
	}

	ok, err := h.chat.IsParticipant(ctx, conversationID, client.UserID)
	if err != nil {
		h.sendError(client, env.Ref, "failed to join conversation")
		return
	}
	if !ok {
		h.sendError(client, env.Ref, "not a member of this conversation")
		return
	}

	room := roomKey(conversationID)
	h.hub.JoinRoom(client.ID, room)
	h.hub.BroadcastToRoom(room, EventUserJoined, RoomEventPayload{
		UserID:         client.UserID,
		ConversationID: conversationID,
	}, client.ID)

	if err := h.sendRoomOnlineUsers(ctx, client, conversationID); err != nil {
		h.logger.Warn("failed to send room online users", "connID", client.ID, "error", err)
	}
}

func (h *Handlers) handleLeave(ctx context.Context, client *Client, env Envelope) {
	conversationID, err := decodeConversationID(env.Data)
	if err != nil || conversationID == "" {
		h.sendError(client, env.Ref, "conversationId required")
		return
	}
	room := roomKey(conversationID)
	h.hub.LeaveRoom(client.ID, room)
	h.hub.BroadcastToRoom(room, EventUserLeft, RoomEventPayload{
		UserID:         client.UserID,
		ConversationID: conversationID,
	}, client.ID)
}

// handleRequestOnlineUsers re-sends the room-scoped snapshot on demand.
func (h *Handlers) handleRequestOnlineUsers(ctx context.Context, client *Client, env Envelope) {
	conversationID, err := decodeConversationID(env.Data)
	if err != nil || conversationID == "" {
		h.sendError(client, env.Ref, "conversationId required")
		return
	}
	if err := h.sendRoomOnlineUsers(ctx, client, conversationID); err != nil {
		h.sendError(client, env.Ref, "failed to fetch online users")
	}
}

// sendRoomOnlineUsers replies with participants of the conversation that
// are currently online, the requester included.
func (h *Handlers) sendRoomOnlineUsers(ctx context.Context, client *Client, conversationID string) error {
	participantIDs, err := h.chat.ParticipantIDs(ctx, conversationID)
	if err != nil {
		return err
	}
	online, err := h.presence.Tracker().FilterOnline(ctx, participantIDs)
	if err != nil {
		return err
	}
	return client.Send(Envelope{
		Event: EventConversationOnline,
		Data: mustMarshal(OnlineUsersPayload{
			ConversationID: conversationID,
			OnlineUsers:    online,
		}),
	})
}

// handleSendMessage persists the message and acks the sender with the
// hydrated view. Delivery to the room happens via the MessageCreated
// event consumer, which excludes this connection, so the sender sees its
// message exactly once.
func (h *Handlers) handleSendMessage(ctx context.Context, client *Client, env Envelope) {
	var payload SendMessagePayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		h.sendAckError(client, env.Ref, "invalid message payload")
		return
	}

	view, err := h.chat.SendMessage(ctx, chat.SendMessageInput{
		ConversationID: payload.ConversationID,
		SenderID:       client.UserID,
		SenderConnID:   client.ID,
		Text:           payload.Text,
		Attachments:    payload.Attachments,
	})
	if err != nil {
		h.sendAckError(client, env.Ref, err.Error())
		return
	}

	ack := AckPayload{Status: StatusOK, Message: view}
	if err := client.Send(Envelope{Event: EventAck, Ref: env.Ref, Data: mustMarshal(ack)}); err != nil {
		h.logger.Warn("failed to ack message", "connID", client.ID, "error", err)
	}
}

// handleTyping relays typing indicators to the room without touching
// storage. The sender is excluded.
func (h *Handlers) handleTyping(client *Client, env Envelope) {
	var payload TypingPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil || payload.ConversationID == "" {
		return
	}
	payload.UserID = client.UserID
	h.hub.BroadcastToRoom(roomKey(payload.ConversationID), env.Event, payload, client.ID)
}

func (h *Handlers) sendAckError(client *Client, ref, message string) {
	ack := AckPayload{Status: StatusError, Error: message}
	if err := client.Send(Envelope{Event: EventAck, Ref: ref, Data: mustMarshal(ack)}); err != nil {
		h.logger.Warn("failed to send error ack", "connID", client.ID, "error", err)
	}
}

func (h *Handlers) sendError(client *Client, ref, message string) {
	if err := client.Send(Envelope{Event: EventError, Ref: ref, Error: message}); err != nil {
		h.logger.Warn("failed to send error frame", "connID", client.ID, "error", err)
	}
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`null`)
	}
	return data
}
