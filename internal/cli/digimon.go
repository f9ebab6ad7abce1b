package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cory-johannsen/digigm/internal/errors"
	"github.com/cory-johannsen/digigm/internal/game/attack"
	"github.com/cory-johannsen/digigm/internal/game/derive"
	"github.com/cory-johannsen/digigm/internal/game/digimon"
	"github.com/cory-johannsen/digigm/internal/game/stage"
)

func (a *app) printDigimonSummary(d *digimon.Digimon) {
	a.printf("%s  %s (%s, %s %s)  DP %d  wounds %d/%d\n",
		d.ID, d.Name, d.Species, d.Stage, d.Attribute, d.BaseDP, d.CurrentWounds, d.DerivedStats.WoundBoxes)
}

func (a *app) digimonCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "digimon", Short: "Create and edit Digimon"}
	cmd.AddCommand(
		a.digimonCreateCmd(),
		a.digimonShowCmd(),
		a.digimonListCmd(),
		a.digimonAddQualityCmd(),
		a.digimonRemoveQualityCmd(),
		a.digimonSetStageCmd(),
		a.digimonValidateCmd(),
		a.digimonAddAttackCmd(),
		a.digimonRemoveAttackCmd(),
		a.digimonLinkCmd(),
		a.digimonUnlinkCmd(),
		a.digimonLineageCmd(),
		a.digimonCopyCmd(),
		a.digimonDeleteCmd(),
	)
	return cmd
}

func (a *app) digimonCreateCmd() *cobra.Command {
	var (
		file  string
		spec  digimon.Spec
		stats derive.BaseStats
		st    string
		attr  string
		fam   string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a Digimon from flags or a YAML/JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file != "" {
				spec = digimon.Spec{}
				if err := decodeFile(file, &spec); err != nil {
					return errors.Validation("%v", err)
				}
			} else {
				spec.Stage = stage.Stage(st)
				spec.Attribute = digimon.Attribute(attr)
				spec.Family = digimon.Family(fam)
				spec.BaseStats = &stats
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			d, err := svc.CreateDigimon(cmd.Context(), spec)
			if err != nil {
				return err
			}
			return a.printJSON(d)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&file, "file", "f", "", "read the Digimon from a YAML or JSON file")
	f.StringVar(&spec.Name, "name", "", "name")
	f.StringVar(&spec.Species, "species", "", "species")
	f.StringVar(&st, "stage", string(stage.Rookie), "stage")
	f.StringVar(&attr, "attribute", string(digimon.Vaccine), "vaccine, data, virus or free")
	f.StringVar(&fam, "family", "", "family")
	f.StringVar(&spec.Type, "type", "", "type")
	f.StringVar(&spec.PartnerID, "partner", "", "partner Tamer id")
	f.BoolVar(&spec.IsEnemy, "enemy", false, "mark as an enemy")
	f.StringVar(&spec.Notes, "notes", "", "free-form notes")
	baseStatFlags(cmd, &stats)
	return cmd
}

func (a *app) digimonShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print a Digimon as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			d, err := svc.GetDigimon(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printJSON(d)
		},
	}
}

func (a *app) digimonListCmd() *cobra.Command {
	var partner, st string
	var enemies, allies bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List Digimon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if enemies && allies {
				return errors.Validation("--enemies and --allies are mutually exclusive")
			}
			parsed, err := parseStage(st)
			if err != nil {
				return err
			}
			f := digimon.Filter{PartnerID: partner, Stage: parsed}
			if enemies || allies {
				f.IsEnemy = &enemies
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			ds, err := svc.ListDigimon(cmd.Context(), f)
			if err != nil {
				return err
			}
			for _, d := range ds {
				a.printDigimonSummary(d)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&partner, "partner", "", "only Digimon partnered to this Tamer")
	cmd.Flags().StringVar(&st, "stage", "", "only Digimon at this stage")
	cmd.Flags().BoolVar(&enemies, "enemies", false, "only enemies")
	cmd.Flags().BoolVar(&allies, "allies", false, "only non-enemies")
	return cmd
}

func (a *app) digimonAddQualityCmd() *cobra.Command {
	var choice string
	cmd := &cobra.Command{
		Use:   "add-quality DIGIMON_ID QUALITY",
		Short: "Add one rank of a Quality",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			d, err := svc.AddQuality(cmd.Context(), args[0], args[1], choice)
			if err != nil {
				return err
			}
			a.printDigimonSummary(d)
			return nil
		},
	}
	cmd.Flags().StringVar(&choice, "choice", "", "sub-option for qualities that require one")
	return cmd
}

func (a *app) digimonRemoveQualityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-quality DIGIMON_ID QUALITY",
		Short: "Remove one rank of a Quality",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			d, err := svc.RemoveQuality(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			a.printDigimonSummary(d)
			return nil
		},
	}
}

func (a *app) digimonSetStageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-stage DIGIMON_ID STAGE",
		Short: "Change a Digimon's stage and recompute derived stats",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := parseStage(args[1])
			if err != nil {
				return err
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			d, err := svc.SetStage(cmd.Context(), args[0], st)
			if err != nil {
				return err
			}
			a.printDigimonSummary(d)
			return nil
		},
	}
}

func (a *app) digimonValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate DIGIMON_ID",
		Short: "Report every rule the Digimon's Quality build breaks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			problems, err := svc.ValidateQualities(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(problems) == 0 {
				a.printf("valid\n")
				return nil
			}
			for _, p := range problems {
				a.printf("- %s\n", p.Error())
			}
			return errors.Newf(errors.CodeRuleViolation, "%d rule violation(s)", len(problems))
		},
	}
}

func (a *app) digimonAddAttackCmd() *cobra.Command {
	var custom attack.Attack
	var rng, typ, tags string
	cmd := &cobra.Command{
		Use:   "add-attack DIGIMON_ID [TEMPLATE_ID]",
		Short: "Add a catalogue attack, or a custom one with --name",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			var d *digimon.Digimon
			switch {
			case len(args) == 2:
				d, err = svc.AddAttack(cmd.Context(), args[0], args[1])
			case custom.Name != "":
				custom.Range = attack.Range(rng)
				custom.Type = attack.Kind(typ)
				if tags != "" {
					custom.Tags = strings.Split(tags, ",")
				}
				d, err = svc.AddCustomAttack(cmd.Context(), args[0], custom)
			default:
				return errors.Validation("either TEMPLATE_ID or --name is required")
			}
			if err != nil {
				return err
			}
			for _, at := range d.Attacks {
				a.printf("%s  %s (%s %s)\n", at.ID, at.Name, at.Range, at.Type)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&custom.Name, "name", "", "custom attack name")
	cmd.Flags().StringVar(&rng, "range", string(attack.Melee), "melee or ranged")
	cmd.Flags().StringVar(&typ, "type", string(attack.Damage), "damage or support")
	cmd.Flags().StringVar(&tags, "tags", "", "comma-separated tags")
	cmd.Flags().StringVar(&custom.Effect, "effect", "", "effect name")
	cmd.Flags().StringVar(&custom.Description, "description", "", "description")
	return cmd
}

func (a *app) digimonRemoveAttackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-attack DIGIMON_ID ATTACK_ID",
		Short: "Remove an attack",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			_, err = svc.RemoveAttack(cmd.Context(), args[0], args[1])
			return err
		},
	}
}

func (a *app) digimonLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link PARENT_ID CHILD_ID",
		Short: "Record that CHILD evolves from PARENT",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			parent, child, err := svc.LinkEvolution(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			a.printf("%s -> %s\n", parent.Name, child.Name)
			return nil
		},
	}
}

func (a *app) digimonUnlinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlink PARENT_ID CHILD_ID",
		Short: "Remove an evolution link",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			return svc.UnlinkEvolution(cmd.Context(), args[0], args[1])
		},
	}
}

func (a *app) digimonLineageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lineage ID",
		Short: "Print the evolution ancestry and descendants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			anc, desc, err := svc.Lineage(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.printf("ancestors: %s\n", names(anc))
			a.printf("descendants: %s\n", names(desc))
			return nil
		},
	}
}

func names(ds []*digimon.Digimon) string {
	if len(ds) == 0 {
		return "-"
	}
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = fmt.Sprintf("%s (%s)", d.Name, d.ID)
	}
	return strings.Join(out, ", ")
}

func (a *app) digimonCopyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy ID",
		Short: "Duplicate a Digimon without its evolution links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			d, err := svc.CopyDigimon(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.printDigimonSummary(d)
			return nil
		},
	}
}

func (a *app) digimonDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a Digimon and detach its links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			return svc.DeleteDigimon(cmd.Context(), args[0])
		},
	}
}
