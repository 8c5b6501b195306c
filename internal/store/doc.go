// Package store keeps the recent report attempts of a reporter and fans them
// out to live subscribers.
//
// The main components are:
//
//   - [Store]: Interface defining storage and subscription operations
//   - [MemoryStore]: Bounded in-memory implementation of Store with pub/sub
//   - [AttemptRecord]: Storage representation of one resolved attempt
//
// Subscribers receive records via channels with non-blocking sends (slow
// subscribers miss records rather than block the reporter).
package store
