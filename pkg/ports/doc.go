/*
Package ports defines the driven ports (interfaces) of the conversation engine.

These interfaces decouple the interpreter from storage backends and from the
external capabilities it consumes, so the same engine runs against an
in-memory map in tests and Redis or SQLite in production.

# Key Interfaces

  - Storage: key/value read, compare-and-swap write, idempotent delete.
  - Recognizer: text to ranked intents and entities.
  - Templates / Expressions: rendering and evaluation against scope data.
  - DistributedLocker: serializes turns of one conversation across replicas.
*/
package ports
