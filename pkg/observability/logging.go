package observability

import (
	"context"
	"log/slog"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
)

// LogHooks returns hooks that log engine events at debug level, and failed
// turns at warn level.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurnEnd: func(ctx context.Context, e *domain.TurnEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "turn_failed",
					"conversation_id", e.ConversationID,
					"duration", e.Duration,
					"err", e.Err,
				)
				return
			}
			logger.DebugContext(ctx, "turn_end",
				"conversation_id", e.ConversationID,
				"duration", e.Duration,
				"messages", e.Messages,
			)
		},
		OnRuleFired: func(ctx context.Context, e *domain.RuleEvent) {
			logger.DebugContext(ctx, "rule_fired",
				"conversation_id", e.ConversationID,
				"dialog", e.Dialog,
				"match", e.Match,
				"name", e.Name,
				"mode", e.Mode,
			)
		},
		OnSuspend: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "suspend",
				"conversation_id", e.ConversationID,
				"dialog", e.Dialog,
				"step", e.Kind,
			)
		},
		OnDialogPush: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "dialog_push", "conversation_id", e.ConversationID, "dialog", e.Dialog, "depth", e.Depth)
		},
		OnDialogPop: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "dialog_pop", "conversation_id", e.ConversationID, "dialog", e.Dialog, "depth", e.Depth)
		},
	}
}
