/*
Package session keeps many evaluation consoles alive, keyed by session ID.

A chat host typically maps a channel (or a user) to a session ID and routes
every eval command through Manager.Evaluate. The Manager creates consoles on
demand, serializes operations per ID with reference-counted locks and, when
configured with a ports.DistributedLocker, also across replicas.
*/
package session
