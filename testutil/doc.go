// Package testutil provides testing utilities for blobarena.
//
// This package is intended for use in tests and benchmarks only.
// It provides a deterministic, goroutine-safe random source and generators
// for the key distributions that config datasets tend to have.
//
// # Random Keys
//
//	rng := testutil.NewRNG(seed)
//	ids := rng.UniqueKeys(1000)          // distinct uint32 IDs
//	names := rng.Words(1000, 4, 12)      // random lower-case identifiers
//
// # Skewed Keys
//
//	keys := rng.ZipfKeys(10000, 100, 1.5) // few hot keys, long tail
package testutil
