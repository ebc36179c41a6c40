// Package atlas loads a daqs world from YAML atlas files.
//
// A persona atlas groups personas together with the contexts, triggers and
// concepts that belong to their story lines:
//
//	type: persona_group
//	personas:
//	  - id: lyra
//	    tags: [proactive, mercenary]
//	    start_context: ctx_tavern_intro
//	    equipment:
//	      weapons:
//	        - {id: dagger, pddl_tags: [sharp]}
//	    contexts:
//	      - id: ctx_tavern_intro
//	        properties: {is_start: true}
//	    triggers:
//	      - {id: trig_barkeep, parent_context: ctx_tavern_intro, yields: cpt_password}
//
// Region atlases describe the physical map:
//
//	locations:
//	  - id: gate
//	    connections: [{to: road, direction: bidirectional}]
//	    contains: {items: [{id: lantern}], npcs: [guard]}
//	    properties: {position: [0, 0]}
package atlas
