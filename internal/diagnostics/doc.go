// Package diagnostics explains why a planning problem has no solution by
// reading the compiled domain and problem texts, without a second solve.
package diagnostics
