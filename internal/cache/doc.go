// Package cache keeps synthesized speech segments so repeated phrases are
// not sent to the TTS engine twice. It stacks an in-memory LRU (L1) on a
// zstd compressed disk store (L2) with TTL based cleanup.
package cache
