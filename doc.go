/*
Package botbuilder is a rule-triggered, stack-based conversation engine for
building multi-turn bots.

A bot is a set of dialogs. Each dialog declares trigger rules (intent, event,
fallback) that install a plan of steps into the dialog's frame. Steps send
text, prompt for input, branch, call other dialogs and return values. A step
that needs user input suspends the plan; the next inbound turn resumes it
exactly where it stopped, even on another process, because the dialog stack
is persisted with the conversation.

# Concept

Every inbound activity is one turn. The Bot loads the conversation's scopes
from a ports.Storage, advances the active frame until its plan drains or
suspends, and writes back only the scopes that changed using
compare-and-swap on version tokens. A turn that fails or is canceled
persists nothing, so a channel can safely redeliver the activity.

# Key Features

  - Hexagonal Architecture: recognizers, templates, expressions and storage are injected.
  - Durable Execution: suspended prompts survive restarts and move between replicas.
  - Optimistic Concurrency: concurrent writers never silently overwrite each other.
  - Storage backends: memory, file, Redis and SQLite, all passing the same contract suite.

# Usage

	store := memory.NewStore()
	bot, err := botbuilder.New(store,
		botbuilder.WithDialogs(domain.Dialog{
			ID: "root",
			Rules: []domain.Rule{
				domain.OnFallback(
					domain.Prompt("What is your name?", "user.name"),
					domain.SendText("Hello {{.user.name}}!"),
				),
			},
		}),
	)
	if err != nil {
		log.Fatal(err)
	}

	res, err := bot.OnTurn(ctx, domain.Activity{
		ChannelID:      "console",
		ConversationID: "c1",
		UserID:         "u1",
		Text:           "hi",
	})
*/
package botbuilder
