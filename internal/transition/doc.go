// Package transition applies moves to a dialogue state and reports their side effects.
package transition
