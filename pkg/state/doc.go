/*
Package state implements the scoped property bags a turn reads and writes.

Four scopes are addressable with dotted paths:

  - turn.*          discarded when the turn ends
  - dialog.*        locals of the active frame, persisted with the dialog stack
  - conversation.*  shared by everyone in a conversation on a channel
  - user.*          follows one user on a channel

Persisted scopes are loaded lazily and saved with optimistic concurrency
through ports.Storage.
*/
package state
