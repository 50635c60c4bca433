/*
Package session serializes turns per conversation.

The engine assumes it owns a conversation's dialog stack for the length of
a turn. Manager provides that guarantee inside one process with a
reference-counted mutex per key, and across replicas when a
ports.DistributedLocker is configured.
*/
package session
