// Package fbgo is a server-side feature-flag SDK: it streams flag and
// segment definitions over a websocket into a versioned in-memory store,
// evaluates flags against a user with the same rule/rollout pipeline the
// originating SDK uses, and ships evaluation and metric events back to the
// flag service asynchronously in bounded batches.
package fbgo
