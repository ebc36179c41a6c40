package compiler

import (
	"fmt"
	"strings"

	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
)

var navigationTypes = []string{"location", "thing", "agent", "ability"}

// Navigation compiles the world map and the player's physical state into the
// navigation domain. goal is either a location id, compiled to (at player goal),
// or a literal goal expression.
func (c *Compiler) Navigation(player domain.PlayerState, goal string) (*Compilation, error) {
	view := c.store
	agent := player.PlayerID
	if agent == "" {
		agent = c.agent
	}
	if _, ok := view.Location(player.CurrentLocation); !ok {
		return nil, fmt.Errorf("%w: location %q", domain.ErrUnknownContext, player.CurrentLocation)
	}

	goal = strings.TrimSpace(goal)
	if !strings.HasPrefix(goal, "(") {
		if _, ok := view.Location(goal); !ok {
			return nil, fmt.Errorf("%w: goal location %q", domain.ErrUnknownContext, goal)
		}
		goal = "(at " + agent + " " + goal + ")"
	}

	b := newBuilder(navigationTypes, navigationAbilities)
	b.object("agent", agent)
	b.fact("at", agent, player.CurrentLocation)
	b.fact("controllable", agent)

	for _, item := range sortedKeys(player.Inventory) {
		if player.Inventory[item] > 0 {
			b.object("thing", item)
			b.fact("has-item", agent, item)
		}
	}
	for _, ability := range sortedKeys(player.Abilities) {
		if player.Abilities[ability] > 0 {
			b.object("ability", ability)
			b.fact("has-ability", agent, ability)
		}
	}

	for _, id := range view.LocationIDs() {
		loc, _ := view.Location(id)
		b.object("location", id)
		for _, obj := range loc.Contains {
			b.object("thing", obj)
			b.fact("at", obj, id)
		}
		for _, to := range view.LocationNeighbors(id) {
			b.fact("path", id, to)
			target, _ := view.Location(to)
			if req := target.Properties.RequiredConcept; target.Properties.IsLocked && req != "" {
				b.object("thing", req)
				b.fact("blocked", id, to, req)
			} else {
				b.fact("path_available", id, to)
			}
		}
		if player.DiscoveredLocations.Has(id) && !loc.Properties.IsLocked {
			b.fact("accessible", id)
		}
	}
	b.fact("accessible", player.CurrentLocation)

	return &Compilation{
		Domain:  navigationDomain,
		Problem: b.problem("navigation-"+agent, NavigationDomain, goal),
	}, nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return sortedUnique(keys)
}
