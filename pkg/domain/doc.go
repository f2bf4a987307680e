/*
Package domain contains the value types shared by the spectate notification core.

It is kept pure and free of dependencies beyond the standard library, so that
adapters (metrics, Redis, HTTP) can depend on it without pulling in the core.

# Key Entities

  - Event: An immutable, ordered key/value record describing one change.
  - Batch: An ordered, non-empty group of events delivered to views at once.
  - Call: A pending invocation of a controlled method, with lazy parameter binding.
  - Answer: A completed invocation, carrying the before-hook's contribution.

The errors declared here form the taxonomy returned by the core.
*/
package domain
