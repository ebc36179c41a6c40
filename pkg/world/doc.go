// Package world indexes loaded world content into an immutable Store and
// exposes per-persona views with world overrides merged in.
package world
