/*
Package session implements session management and persistence orchestration.

A Manager serializes access to each dialogue state with a ref-counted
in-process mutex and, when configured, a ports.DistributedLocker shared by
all replicas. New sessions are seeded from the persona start context.
*/
package session
