/*
Package domain contains the core data model of the conversation engine.

It defines the instruction set of the interpreter (Steps), the declarative
trigger rules that populate a plan, the dialog stack that survives between
turns, and the activities exchanged with a channel. This package is kept free
of I/O and persistence so every other layer can depend on it.

# Key Entities

  - Step: one executable instruction; a tagged union dispatched on Kind.
  - Rule: a trigger (intent, event or fallback) plus the steps it installs.
  - Dialog: an identity and its ordered rule set.
  - Frame / Stack: the activation records persisted in the dialog scope.
  - Activity: an inbound message or event; Message is an outbound reply.
*/
package domain
