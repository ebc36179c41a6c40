/*
Package ports declares what the daqs engine needs from the outside world.

# Interfaces

  - WorldLoader reads contexts, triggers, concepts, personas and locations.
    Loaders that also implement Watchable drive hot reload.
  - StateStore keeps DialogueState per session id. RunStateStoreContract is
    the behavior every implementation must pass.
  - DistributedLocker serializes one session across replicas.
  - Planner turns a compiled PDDL domain and problem into plan steps.

WorldLoader, DistributedLocker and Planner have Func adapters for tests and
small integrations.
*/
package ports
