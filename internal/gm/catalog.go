package gm

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/digigm/internal/config"
	"github.com/cory-johannsen/digigm/internal/game/attack"
	"github.com/cory-johannsen/digigm/internal/game/effect"
	"github.com/cory-johannsen/digigm/internal/game/hazard"
	"github.com/cory-johannsen/digigm/internal/game/quality"
)

// Catalog bundles the read-only registries. It is immutable after load
// and safe for concurrent reads.
type Catalog struct {
	Qualities *quality.Registry
	Attacks   *attack.Registry
	Effects   *effect.Registry
	Hazards   *hazard.Registry
}

// LoadCatalog reads every content directory named by cfg.
//
// Postcondition: every attack effect resolves to an effect definition.
func LoadCatalog(cfg config.ContentConfig) (*Catalog, error) {
	qualities, err := quality.LoadDirectory(cfg.Qualities)
	if err != nil {
		return nil, fmt.Errorf("loading qualities: %w", err)
	}
	attacks, err := attack.LoadDirectory(cfg.Attacks)
	if err != nil {
		return nil, fmt.Errorf("loading attacks: %w", err)
	}
	effects, err := effect.LoadDirectory(cfg.Effects)
	if err != nil {
		return nil, fmt.Errorf("loading effects: %w", err)
	}
	hazards, err := hazard.LoadDirectory(cfg.Hazards)
	if err != nil {
		return nil, fmt.Errorf("loading hazards: %w", err)
	}
	c := &Catalog{Qualities: qualities, Attacks: attacks, Effects: effects, Hazards: hazards}
	if err := c.check(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) check() error {
	var errs []string
	for _, t := range c.Attacks.All() {
		if t.Effect == "" {
			continue
		}
		if _, ok := c.Effects.Lookup(t.Effect); !ok {
			errs = append(errs, fmt.Sprintf("attack %q: unknown effect %q", t.ID, t.Effect))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("inconsistent catalogue:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}
