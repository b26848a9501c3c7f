// Package shutdown coordinates graceful process termination.
//
// Components register hooks with OnShutdown. Wait blocks until SIGINT,
// SIGTERM or Trigger, then runs the hooks in reverse registration order
// under a shared deadline.
package shutdown
