// Package features groups higher-level abstractions built on top of the
// core reactive primitives in pkg/ripple.
//
// Subpackages:
//
//   - async: asynchronous values with idle/loading/ready/failed phases,
//     retry, and stale-completion protection
//
// The packages here depend on pkg/ripple but never the other way around.
package features
