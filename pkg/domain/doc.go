/*
Package domain contains the core domain models of the daqs dialogue engine.

It defines the static world records (contexts, triggers, concepts, personas and
map locations), the mutable DialogueState of an interaction, and the closed set
of Moves that transform it. This package is kept pure and free of external
dependencies like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - Context: A node of the dialogue graph, possibly locked behind concepts.
  - Trigger: A conversational beat that yields a concept.
  - Persona: The NPC, with tags, mood-gated behavior rules and ordered equipment.
  - DialogueState: Current context, owned concepts, visited/unlocked sets and mood.
  - Move: A legal action, rendered in the token grammar shared with the planner.
*/
package domain
