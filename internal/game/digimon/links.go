package digimon

import "github.com/cory-johannsen/digigm/internal/errors"

// Link makes child an evolution of parent, updating both sides.
//
// Precondition: parent and child are distinct, already loaded entities.
// Postcondition: child.EvolvesFromID == parent.ID and parent lists child.
// A previous parent of child is returned so the caller can unlink it.
func Link(parent, child *Digimon) (previousParent string, err error) {
	if parent.ID == child.ID {
		return "", errors.Validation("a digimon cannot evolve from itself")
	}
	previousParent = child.EvolvesFromID
	if previousParent == parent.ID {
		previousParent = ""
	}
	if !parent.HasChild(child.ID) {
		parent.EvolutionPathIDs = append(parent.EvolutionPathIDs, child.ID)
	}
	child.EvolvesFromID = parent.ID
	return previousParent, nil
}

// Unlink removes the parent/child relation from both sides. Unlinking an
// absent relation is a no-op.
func Unlink(parent, child *Digimon) {
	out := parent.EvolutionPathIDs[:0:0]
	for _, id := range parent.EvolutionPathIDs {
		if id != child.ID {
			out = append(out, id)
		}
	}
	parent.EvolutionPathIDs = out
	if child.EvolvesFromID == parent.ID {
		child.EvolvesFromID = ""
	}
}

// Getter resolves a Digimon by id.
type Getter func(id string) (*Digimon, bool)

// Ancestors follows EvolvesFromID from start, nearest first. It stops on
// a missing id or a repeated id.
func Ancestors(start *Digimon, get Getter) []*Digimon {
	var out []*Digimon
	seen := map[string]bool{start.ID: true}
	for id := start.EvolvesFromID; id != "" && !seen[id]; {
		seen[id] = true
		d, ok := get(id)
		if !ok {
			break
		}
		out = append(out, d)
		id = d.EvolvesFromID
	}
	return out
}

// Descendants walks EvolutionPathIDs breadth first from start. Each
// Digimon appears at most once, so cyclic data terminates.
func Descendants(start *Digimon, get Getter) []*Digimon {
	var out []*Digimon
	seen := map[string]bool{start.ID: true}
	queue := append([]string(nil), start.EvolutionPathIDs...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		d, ok := get(id)
		if !ok {
			continue
		}
		out = append(out, d)
		queue = append(queue, d.EvolutionPathIDs...)
	}
	return out
}
