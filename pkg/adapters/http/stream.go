package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
)

// StreamReply is written for every activity received on the stream.
type StreamReply struct {
	ReplyTo string             `json:"reply_to,omitempty"`
	Result  *domain.TurnResult `json:"result,omitempty"`
	Error   *ErrorResponse     `json:"error,omitempty"`
}

// Stream handles GET /api/stream. The connection carries one conversation;
// the query parameters conversation_id, user_id and channel_id seed every
// activity that omits them. Turns run in order of arrival.
func (s *Server) Stream(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	base := domain.Activity{
		ChannelID:      q.Get("channel_id"),
		ConversationID: q.Get("conversation_id"),
		UserID:         q.Get("user_id"),
	}

	opts := &websocket.AcceptOptions{OriginPatterns: s.origins}
	ws, err := websocket.Accept(w, r, opts)
	if err != nil {
		s.logger.Warn("Failed to accept WebSocket", "err", err)
		return
	}
	defer func() {
		if err := ws.Close(websocket.StatusNormalClosure, "conversation closed"); err != nil {
			s.logger.Debug("Failed to close websocket", "err", err)
		}
	}()

	ws.SetReadLimit(s.maxBody)

	ctx := r.Context()
	for {
		var act domain.Activity
		if err := wsjson.Read(ctx, ws, &act); err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				s.logger.Debug("WebSocket closed by client", "conversation_id", base.ConversationID)
			} else {
				s.logger.Warn("WebSocket read error", "err", err)
			}
			return
		}
		fill(&act, base)

		reply := StreamReply{ReplyTo: act.ID}
		res, err := s.turn(ctx, act)
		if err != nil {
			_, code := StatusFor(err)
			reply.Error = &ErrorResponse{Error: err.Error(), Code: code}
		} else {
			reply.Result = res
		}
		if err := wsjson.Write(ctx, ws, reply); err != nil {
			s.logger.Debug("WebSocket write error", "err", err)
			return
		}
	}
}

func fill(act *domain.Activity, base domain.Activity) {
	if act.ChannelID == "" {
		act.ChannelID = base.ChannelID
	}
	if act.ConversationID == "" {
		act.ConversationID = base.ConversationID
	}
	if act.UserID == "" {
		act.UserID = base.UserID
	}
}
