/*
Package daqs is a symbolic dialogue and quest planning engine.

A world is a graph of dialogue contexts joined by connections. Contexts can be
locked behind concepts, pairs of concepts or named unlock actions; triggers
hand out concepts; personas bring tags, equipment and behaviour rules. Given a
dialogue state, the engine enumerates the legal moves, applies them, compiles
a goal into a PDDL domain and problem and hands both to an external planner.

# Architecture

The world model (pkg/world) is immutable once loaded and is replaced as a
whole on reload. Move generation (internal/moves), application
(internal/transition), compilation (internal/compiler) and path analysis
(internal/pathfind) are pure functions over a world and a state. Everything
with side effects sits behind the ports in pkg/ports: world loaders, session
stores, planners and locks, with implementations under pkg/adapters.

# Usage

	eng, err := daqs.New("./atlas")
	if err != nil {
		log.Fatal(err)
	}

	state, err := eng.NewState("lyra")
	if err != nil {
		log.Fatal(err)
	}

	moves, _ := eng.ValidMoves(state)
	diff, err := eng.Apply(ctx, state, moves[0])

	res, err := eng.Plan(ctx, state, daqs.Goal{Context: "ctx_vault"})
	if errors.Is(err, domain.ErrNoPlanFound) {
		fmt.Println(res.Diagnosis)
	}

Worlds can also be built in code and served with memory.NewLoader, which is
what the tests and the examples below do.
*/
package daqs
