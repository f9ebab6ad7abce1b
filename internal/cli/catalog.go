package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cory-johannsen/digigm/internal/errors"
	"github.com/cory-johannsen/digigm/internal/game/attack"
	"github.com/cory-johannsen/digigm/internal/game/combat"
	"github.com/cory-johannsen/digigm/internal/game/derive"
	"github.com/cory-johannsen/digigm/internal/game/hazard"
	"github.com/cory-johannsen/digigm/internal/game/quality"
	"github.com/cory-johannsen/digigm/internal/game/stage"
)

func (a *app) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
}

func parseStage(s string) (stage.Stage, error) {
	if s == "" {
		return "", nil
	}
	st, err := stage.Parse(s)
	if err != nil {
		return "", errors.Validation("%v", err)
	}
	return st, nil
}

func (a *app) printQualities(ts []*quality.Template) error {
	w := a.table()
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tCATEGORY\tDP\tRANKS\tSTAGE")
	for _, t := range ts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n", t.ID, t.Name, t.Type, t.Category, t.DPCost, t.MaxRanks, t.StageRequirement)
	}
	return w.Flush()
}

func (a *app) qualitiesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "qualities", Short: "Browse the Quality catalogue"}

	var typ, category, stageName string
	list := &cobra.Command{
		Use:   "list",
		Short: "List qualities, optionally filtered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.loadCatalog()
			if err != nil {
				return err
			}
			st, err := parseStage(stageName)
			if err != nil {
				return err
			}
			ts := c.Qualities.All()
			if st != "" {
				ts = c.Qualities.AvailableAtStage(st)
			}
			f := quality.Filter{Type: quality.Type(typ), Category: category}
			out := ts[:0:0]
			for _, t := range ts {
				if (f.Type == "" || t.Type == f.Type) && (f.Category == "" || t.Category == f.Category) {
					out = append(out, t)
				}
			}
			return a.printQualities(out)
		},
	}
	list.Flags().StringVar(&typ, "type", "", "free, negative or purchasable")
	list.Flags().StringVar(&category, "category", "", "quality category")
	list.Flags().StringVar(&stageName, "stage", "", "only qualities unlocked at this stage")

	search := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search names, descriptions and effects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.loadCatalog()
			if err != nil {
				return err
			}
			return a.printQualities(c.Qualities.Search(args[0]))
		},
	}

	show := &cobra.Command{
		Use:   "show ID",
		Short: "Show one quality in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.loadCatalog()
			if err != nil {
				return err
			}
			t, ok := c.Qualities.Lookup(args[0])
			if !ok {
				return errors.NotFound("quality", args[0])
			}
			return a.printQualityDetail(c.Qualities, t)
		},
	}

	var availType, availCategory string
	available := &cobra.Command{
		Use:   "available DIGIMON_ID",
		Short: "List the qualities a Digimon may take next",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			ts, err := svc.AvailableQualities(cmd.Context(), args[0], quality.Filter{Type: quality.Type(availType), Category: availCategory})
			if err != nil {
				return err
			}
			return a.printQualities(ts)
		},
	}
	available.Flags().StringVar(&availType, "type", "", "free, negative or purchasable")
	available.Flags().StringVar(&availCategory, "category", "", "quality category")

	cmd.AddCommand(list, search, show, available)
	return cmd
}

func (a *app) printQualityDetail(reg *quality.Registry, t *quality.Template) error {
	a.printf("%s (%s)\n", t.Name, t.ID)
	a.printf("  type: %s  category: %s  dp: %d  max ranks: %d\n", t.Type, t.Category, t.DPCost, t.MaxRanks)
	if t.StageRequirement != "" {
		a.printf("  requires stage: %s\n", t.StageRequirement)
	}
	if len(t.MaxRanksByStage) > 0 {
		var parts []string
		for _, st := range stage.All() {
			if v, ok := t.MaxRanksByStage[st]; ok {
				parts = append(parts, fmt.Sprintf("%s=%d", st, v))
			}
		}
		a.printf("  ranks by stage: %s\n", strings.Join(parts, " "))
	}
	if len(t.Prerequisites) > 0 {
		var parts []string
		for _, p := range t.Prerequisites {
			parts = append(parts, p.String())
		}
		a.printf("  prerequisites: %s\n", strings.Join(parts, ", "))
	}
	if ex := reg.ExclusionsOf(t.ID); len(ex) > 0 {
		a.printf("  exclusive with: %s\n", strings.Join(ex, ", "))
	}
	for _, c := range t.Choices {
		a.printf("  choice %s: %s\n", c.ID, c.Name)
	}
	if t.Description != "" {
		a.printf("  %s\n", t.Description)
	}
	if t.Effect != "" {
		a.printf("  effect: %s\n", t.Effect)
	}
	return nil
}

func (a *app) printAttacks(ts []*attack.Template) error {
	w := a.table()
	fmt.Fprintln(w, "ID\tNAME\tRANGE\tTYPE\tSTAGE\tEFFECT")
	for _, t := range ts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.Name, t.Range, t.Type, t.Stage, t.Effect)
	}
	return w.Flush()
}

func (a *app) attacksCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "attacks", Short: "Browse the Attack catalogue"}

	var stageName, rng, typ string
	list := &cobra.Command{
		Use:   "list",
		Short: "List attacks, optionally filtered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.loadCatalog()
			if err != nil {
				return err
			}
			st, err := parseStage(stageName)
			if err != nil {
				return err
			}
			var out []*attack.Template
			for _, t := range c.Attacks.All() {
				if (st == "" || t.UsableAt(st)) &&
					(rng == "" || string(t.Range) == rng) &&
					(typ == "" || string(t.Type) == typ) {
					out = append(out, t)
				}
			}
			return a.printAttacks(out)
		},
	}
	list.Flags().StringVar(&stageName, "stage", "", "only attacks usable at this stage")
	list.Flags().StringVar(&rng, "range", "", "melee or ranged")
	list.Flags().StringVar(&typ, "type", "", "damage or support")

	search := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search attack names, descriptions, effects and species",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.loadCatalog()
			if err != nil {
				return err
			}
			return a.printAttacks(c.Attacks.Search(args[0]))
		},
	}

	cmd.AddCommand(list, search)
	return cmd
}

func (a *app) hazardsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "hazards", Short: "Browse the hazard catalogue"}

	var category, severity string
	list := &cobra.Command{
		Use:   "list",
		Short: "List hazards, optionally filtered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.loadCatalog()
			if err != nil {
				return err
			}
			w := a.table()
			fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tSEVERITY\tDURATION\tAREA")
			for _, t := range c.Hazards.All() {
				if category != "" && t.Category != hazard.Category(category) {
					continue
				}
				if severity != "" && t.Severity != hazard.Severity(severity) {
					continue
				}
				dur := "permanent"
				if t.Duration != nil {
					dur = fmt.Sprintf("%d", *t.Duration)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.Name, t.Category, t.Severity, dur, t.AffectedArea)
			}
			return w.Flush()
		},
	}
	list.Flags().StringVar(&category, "category", "", "terrain, weather, digital, trap or other")
	list.Flags().StringVar(&severity, "severity", "", "minor, moderate or severe")

	cmd.AddCommand(list)
	return cmd
}

func (a *app) stagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stages",
		Short: "Print the stage table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := a.table()
			fmt.Fprintln(w, "STAGE\tDP\tMOVE\tWOUNDS\tBRAINS\tATTACKS\tBONUS\tNEG DP")
			for _, st := range stage.All() {
				c := stage.MustConfig(st)
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
					st, c.DP, c.Movement, c.WoundBonus, c.Brains, c.Attacks, c.StageBonus, stage.NegativeDPLimit(st))
			}
			return w.Flush()
		},
	}
}

func baseStatFlags(cmd *cobra.Command, b *derive.BaseStats) {
	cmd.Flags().IntVar(&b.Accuracy, "accuracy", 0, "accuracy")
	cmd.Flags().IntVar(&b.Damage, "damage", 0, "damage")
	cmd.Flags().IntVar(&b.Dodge, "dodge", 0, "dodge")
	cmd.Flags().IntVar(&b.Armor, "armor", 0, "armor")
	cmd.Flags().IntVar(&b.Health, "health", 0, "health")
}

func (a *app) deriveCmd() *cobra.Command {
	var b derive.BaseStats
	var stageName string
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Compute derived stats from base stats and a stage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := parseStage(stageName)
			if err != nil {
				return err
			}
			if field, ok := b.Validate(); !ok {
				return errors.Validation("base stat %s must not be negative", field)
			}
			return a.printJSON(derive.Compute(b, st))
		},
	}
	baseStatFlags(cmd, &b)
	cmd.Flags().StringVar(&stageName, "stage", string(stage.Rookie), "stage")
	return cmd
}

func (a *app) initiativeCmd() *cobra.Command {
	var agility, count int
	cmd := &cobra.Command{
		Use:   "initiative",
		Short: "Roll 3d6 + agility",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for range max(1, count) {
				init := combat.RollInitiative(agility, a.dice)
				a.printf("%d (3d6=%d + %d)\n", init.Total, init.Roll, agility)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&agility, "agility", 0, "agility modifier")
	cmd.Flags().IntVar(&count, "count", 1, "number of rolls")
	return cmd
}
