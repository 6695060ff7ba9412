// Package redisstate provides a Redis-backed implementation of the state
// store so tool-set memory survives process restarts and is shared across
// pool instances.
package redisstate
