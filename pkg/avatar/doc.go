// Package avatar defines the types shared by the contact picture pipeline:
// contact identities, cache keys, photo locators and decoded images.
//
// The pipeline itself lives in the sub-packages:
//   - fallback: deterministic colored-letter placeholders
//   - cache: byte-bounded LRU image cache
//   - coordinator: per-slot "last request wins" bookkeeping
//   - slot: generation-checked display slot registry
//   - loop: single-consumer delivery loop
//   - workqueue: bounded background worker pool
//   - loader: orchestration of all of the above
package avatar
