// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// Ports are the boundaries between the lifecycle core and the outside world.
// They say what the keeper needs from collaborators without saying how the
// collaborators do it.
//
// # Port Interfaces
//
//   - [StateRepository]: Persists and loads the managed broadcast record
//   - [BroadcastProvider]: Creates, queries and ends hosted broadcasts
//   - [OutputController]: Drives the local encoder's stream output
//   - [IngestConfigurer]: Optional encoder capability to retarget ingest
//   - [Notifier]: Announces a newly provisioned broadcast
//   - [IdentityProvider]: Supplies provider credentials
//   - [TokenStore]: Persists provider credentials
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them against the
// file system, YouTube, OBS and Discord.
package ports
