// Package pathfind provides a generic A* search and the dialogue and world-map
// instantiations used for hints and reachability checks.
package pathfind
