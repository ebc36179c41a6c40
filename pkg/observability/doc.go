/*
Package observability exports engine activity as Prometheus metrics.

Metrics.Hooks returns domain.LifecycleHooks to pass to the engine with
WithLifecycleHooks; Handler serves the registry for scraping.
*/
package observability
