package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	botbuilder "github.com/edboykin-insight/botbuilder-dotnet"
	"github.com/edboykin-insight/botbuilder-dotnet/internal/logging"
	"github.com/edboykin-insight/botbuilder-dotnet/internal/sanitize"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/state"
)

// DialogsURI is the resource describing the loaded dialogs.
const DialogsURI = "botbuilder://dialogs"

// DefaultChannel is used for activities that do not name a channel.
const DefaultChannel = "mcp"

// TurnResponse is the structured output of send_message.
type TurnResponse struct {
	Messages     []string `json:"messages" jsonschema_description:"Replies emitted during the turn, in order"`
	Suspended    bool     `json:"suspended" jsonschema_description:"True when the bot waits for the next message"`
	Ended        bool     `json:"ended" jsonschema_description:"True when the conversation's root dialog ended"`
	Unhandled    bool     `json:"unhandled" jsonschema_description:"True when no rule handled the input"`
	ActiveDialog string   `json:"active_dialog,omitempty" jsonschema_description:"Dialog on top of the stack after the turn"`
}

// DialogsResponse lists the dialogs the bot can run.
type DialogsResponse struct {
	Root    string   `json:"root"`
	Dialogs []string `json:"dialogs"`
}

// Server exposes a Bot as an MCP server, so an agent can hold a
// conversation with it.
type Server struct {
	bot       *botbuilder.Bot
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger for rejected calls.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(bot *botbuilder.Bot, opts ...Option) *Server {
	s := &Server{
		bot:    bot,
		logger: logging.NewNop(),
		mcpServer: server.NewMCPServer("botbuilder-mcp", botbuilder.Version,
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves on addr using SSE until ctx is canceled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	// TOOL: send_message
	sendTool := mcp.NewTool("send_message",
		mcp.WithDescription("Send a message (or a named event) to the bot and return its replies."),
		mcp.WithString("conversation_id", mcp.Required(), mcp.Description("Conversation to continue or start")),
		mcp.WithString("text", mcp.Description("User text")),
		mcp.WithString("event", mcp.Description("Event name; sends an event activity instead of a message")),
		mcp.WithString("user_id", mcp.Description("User identity (defaults to 'agent')")),
		mcp.WithString("channel_id", mcp.Description("Channel identity (defaults to 'mcp')")),
		mcp.WithOutputSchema[TurnResponse](),
	)
	s.mcpServer.AddTool(sendTool, mcp.NewStructuredToolHandler(s.handleSendMessage))

	// TOOL: list_dialogs
	listTool := mcp.NewTool("list_dialogs",
		mcp.WithDescription("List the dialogs the bot can run."),
		mcp.WithOutputSchema[DialogsResponse](),
	)
	s.mcpServer.AddTool(listTool, mcp.NewStructuredToolHandler(s.handleListDialogs))

	// TOOL: inspect_conversation
	s.mcpServer.AddTool(mcp.NewTool("inspect_conversation",
		mcp.WithDescription("Return the persisted scopes (conversation, user, dialog stack) of a conversation."),
		mcp.WithString("conversation_id", mcp.Required(), mcp.Description("Conversation to inspect")),
		mcp.WithString("user_id", mcp.Description("User identity (defaults to 'agent')")),
		mcp.WithString("channel_id", mcp.Description("Channel identity (defaults to 'mcp')")),
	), s.handleInspect)
}

func activityFrom(args map[string]interface{}) domain.Activity {
	act := domain.Activity{ChannelID: DefaultChannel, UserID: "agent"}
	act.ConversationID, _ = args["conversation_id"].(string)
	act.Text, _ = args["text"].(string)
	if v, ok := args["user_id"].(string); ok && v != "" {
		act.UserID = v
	}
	if v, ok := args["channel_id"].(string); ok && v != "" {
		act.ChannelID = v
	}
	if name, ok := args["event"].(string); ok && name != "" {
		act.Type = domain.ActivityEvent
		act.Name = name
	}
	return act
}

func (s *Server) handleSendMessage(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TurnResponse, error) {
	act := activityFrom(args)
	if act.ConversationID == "" {
		return TurnResponse{}, errors.New("conversation_id is required")
	}

	clean, err := sanitize.Input(act.Text, 0)
	if err != nil {
		s.logger.Warn("MCP send_message: input rejected", "err", err, "size", len(act.Text))
		return TurnResponse{}, fmt.Errorf("input rejected: %w", err)
	}
	act.Text = clean

	res, err := s.bot.OnTurn(ctx, act)
	if err != nil {
		return TurnResponse{}, fmt.Errorf("turn failed: %w", err)
	}
	return TurnResponse{
		Messages:     res.Texts(),
		Suspended:    res.Suspended,
		Ended:        res.Ended,
		Unhandled:    res.Unhandled,
		ActiveDialog: res.ActiveDialog,
	}, nil
}

func (s *Server) handleListDialogs(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (DialogsResponse, error) {
	return s.dialogs(), nil
}

func (s *Server) handleInspect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	act := activityFrom(request.GetArguments())
	if act.ConversationID == "" {
		return mcp.NewToolResultError("conversation_id is required"), nil
	}

	keys := state.KeysFor(act)
	items, err := s.bot.Sessions().Inspect(ctx, keys.All()...)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("inspect failed: %v", err)), nil
	}

	out := make(map[string]json.RawMessage, len(items))
	for key, item := range items {
		out[key] = json.RawMessage(item.Value)
	}
	jsonBytes, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) dialogs() DialogsResponse {
	return DialogsResponse{Root: s.bot.Root(), Dialogs: s.bot.Dialogs()}
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(DialogsURI, "Loaded Dialogs",
		mcp.WithMIMEType("application/json"),
	), s.readDialogs)
}

func (s *Server) readDialogs(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	jsonBytes, err := json.Marshal(s.dialogs())
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      DialogsURI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
