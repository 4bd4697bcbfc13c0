// Package driving defines the interfaces external actors (the CLI) use
// to drive the core services: these are the "driving" ports in hexagonal
// architecture terminology.
//
// Implementations of these interfaces live in internal/core/services.
package driving
