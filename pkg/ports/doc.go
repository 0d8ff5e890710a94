/*
Package ports defines the driven ports (interfaces) of the evaluation console.

These interfaces decouple the console from external implementations, so a
session can keep its history in memory, on disk or in Redis, and pull its
prelude snippets from any library.

# Key Interfaces

  - HistoryStore: Records every invocation of a session.
  - SnippetLibrary: Provides named snippets, some of which are autoloaded.
  - DistributedLocker: Provides distributed locking for handling concurrent session access.
*/
package ports
