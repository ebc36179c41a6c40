package daqs_test

import (
	"context"
	"fmt"
	"log"

	"github.com/VasyaLutiy/daqs-v5.0"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/adapters/memory"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
)

// ExampleNew_memory builds a two-room world in code: the back room stays
// locked until the barkeep hands out the password.
func ExampleNew_memory() {
	loader := memory.NewLoader(domain.World{
		Contexts: []domain.Context{
			{
				ID:          "ctx_bar",
				Connections: []domain.Connection{{To: "ctx_backroom"}},
				Properties:  domain.ContextProperties{IsStart: true},
			},
			{
				ID:         "ctx_backroom",
				Properties: domain.ContextProperties{IsLocked: true, RequiredConcept: "cpt_password"},
			},
		},
		Triggers: []domain.Trigger{{ID: "trig_barkeep", ParentContext: "ctx_bar", Yields: "cpt_password"}},
		Concepts: []domain.Concept{{ID: "cpt_password"}},
	})

	eng, err := daqs.New("", daqs.WithLoader(loader))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	state, err := eng.NewState("")
	if err != nil {
		log.Fatal(err)
	}

	moves, _ := eng.ValidMoves(state)
	for _, mv := range moves {
		fmt.Println("legal:", mv)
	}

	for _, token := range []string{"activate-trigger player ctx_bar trig_barkeep cpt_password", "apply-concept player ctx_bar ctx_backroom cpt_password"} {
		if _, err := eng.ApplyToken(ctx, state, token); err != nil {
			log.Fatal(err)
		}
	}
	fmt.Println("now in:", state.CurrentContext)
	// Output:
	// legal: activate-trigger player ctx_bar trig_barkeep cpt_password
	// now in: ctx_backroom
}
