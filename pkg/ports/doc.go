/*
Package ports defines the driven ports (interfaces) used by the spectate adapters.

# Key Interfaces

  - Journal: Keeps a bounded, sequence-numbered history of delivered batches
    (e.g., in memory or in a Redis list). The HTTP adapter reads from it.

RunJournalContract is a reusable test suite every Journal implementation runs,
including the wrappers in pkg/persistence/middleware.
*/
package ports
