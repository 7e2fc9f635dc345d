// Package domain contains the core entities and value objects for streamkeeper.
//
// The package has no dependencies on infrastructure (HTTP, file system,
// logging). It describes the single managed broadcast record, the provider
// lifecycle states and how they are bucketed, and the error taxonomy used at
// the tick boundary.
//
// # Entities
//
//   - [Record]: the persisted pointer to the broadcast currently being managed
//   - [Broadcast]: a freshly provisioned, ingest-bound broadcast
//   - [CreateSpec]: what to ask the provider for when creating a broadcast
//   - [LifecycleState]: provider-reported state and its [Bucket]
package domain
