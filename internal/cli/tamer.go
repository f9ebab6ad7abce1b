package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cory-johannsen/digigm/internal/errors"
	"github.com/cory-johannsen/digigm/internal/game/derive"
	"github.com/cory-johannsen/digigm/internal/game/tamer"
)

func (a *app) tamerCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "tamer", Short: "Create and edit Tamers"}
	cmd.AddCommand(
		a.tamerCreateCmd(),
		a.tamerShowCmd(),
		a.tamerListCmd(),
		a.tamerPartnerCmd(),
		a.tamerEditCmd("wounds TAMER_ID DELTA", "Add or heal wounds", func(t *tamer.Tamer, n int) error {
			t.ApplyWounds(n)
			return nil
		}),
		a.tamerEditCmd("inspire TAMER_ID N", "Gain inspiration", func(t *tamer.Tamer, n int) error {
			t.GainInspiration(n)
			return nil
		}),
		a.tamerEditCmd("spend-inspiration TAMER_ID N", "Spend inspiration", func(t *tamer.Tamer, n int) error {
			return t.SpendInspiration(n)
		}),
		a.tamerUseAspectCmd(),
		a.tamerMarkTormentCmd(),
		a.tamerRestCmd(),
		a.tamerDeleteCmd(),
	)
	return cmd
}

func (a *app) tamerCreateCmd() *cobra.Command {
	var (
		file   string
		spec   tamer.Spec
		level  string
		attrs  derive.Attributes
		skills derive.Skills
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a Tamer from flags or a YAML/JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file != "" {
				spec = tamer.Spec{}
				if err := decodeFile(file, &spec); err != nil {
					return errors.Validation("%v", err)
				}
			} else {
				spec.CampaignLevel = tamer.CampaignLevel(level)
				spec.Attributes = &attrs
				spec.Skills = &skills
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			t, err := svc.CreateTamer(cmd.Context(), spec)
			if err != nil {
				return err
			}
			return a.printJSON(t)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&file, "file", "f", "", "read the Tamer from a YAML or JSON file")
	f.StringVar(&spec.Name, "name", "", "name")
	f.IntVar(&spec.Age, "age", 0, "age")
	f.StringVar(&level, "campaign", string(tamer.Standard), "standard, enhanced or extreme")
	f.IntVar(&attrs.Agility, "agility", 0, "agility")
	f.IntVar(&attrs.Body, "body", 0, "body")
	f.IntVar(&attrs.Charisma, "charisma", 0, "charisma")
	f.IntVar(&attrs.Intelligence, "intelligence", 0, "intelligence")
	f.IntVar(&attrs.Willpower, "willpower", 0, "willpower")
	f.StringVar(&spec.Notes, "notes", "", "free-form notes")
	return cmd
}

func (a *app) tamerShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print a Tamer as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			t, err := svc.GetTamer(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printJSON(t)
		},
	}
}

func (a *app) tamerListCmd() *cobra.Command {
	var level string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List Tamers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			ts, err := svc.ListTamers(cmd.Context(), tamer.Filter{CampaignLevel: tamer.CampaignLevel(level)})
			if err != nil {
				return err
			}
			for _, t := range ts {
				a.printf("%s  %s (%s)  partners %d  wounds %d/%d\n",
					t.ID, t.Name, t.CampaignLevel, len(t.PartnerDigimonIDs), t.CurrentWounds, t.DerivedStats.WoundBoxes)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&level, "campaign", "", "only Tamers at this campaign level")
	return cmd
}

func (a *app) tamerPartnerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "partner TAMER_ID DIGIMON_ID",
		Short: "Partner a Digimon with a Tamer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			_, err = svc.AddPartner(cmd.Context(), args[0], args[1])
			return err
		},
	}
}

// tamerEditCmd builds a TAMER_ID N command that applies fn through
// UpdateTamer.
func (a *app) tamerEditCmd(use, short string, fn func(*tamer.Tamer, int) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long:  short + ". Pass negative values after --, e.g. `wounds ID -- -2`.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return errors.Validation("%q is not a number", args[1])
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			t, err := svc.UpdateTamer(cmd.Context(), args[0], func(t *tamer.Tamer) error { return fn(t, n) })
			if err != nil {
				return err
			}
			a.printf("%s: wounds %d/%d  inspiration %d/%d\n",
				t.Name, t.CurrentWounds, t.DerivedStats.WoundBoxes, t.Inspiration, t.MaxInspiration)
			return nil
		},
	}
}

func (a *app) tamerUseAspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use-aspect TAMER_ID ASPECT_ID",
		Short: "Spend one use of an aspect",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			_, err = svc.UpdateTamer(cmd.Context(), args[0], func(t *tamer.Tamer) error {
				return t.UseAspect(args[1])
			})
			return err
		},
	}
}

func (a *app) tamerMarkTormentCmd() *cobra.Command {
	var boxes int
	cmd := &cobra.Command{
		Use:   "mark-torment TAMER_ID TORMENT_ID",
		Short: "Mark boxes on a torment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			var overcome bool
			_, err = svc.UpdateTamer(cmd.Context(), args[0], func(t *tamer.Tamer) error {
				var err error
				overcome, err = t.MarkTorment(args[1], boxes)
				return err
			})
			if err != nil {
				return err
			}
			if overcome {
				a.printf("torment overcome\n")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&boxes, "boxes", 1, "boxes to mark")
	return cmd
}

func (a *app) tamerRestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rest TAMER_ID",
		Short: "Restore inspiration and aspect uses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			_, err = svc.UpdateTamer(cmd.Context(), args[0], func(t *tamer.Tamer) error {
				t.Rest()
				return nil
			})
			return err
		},
	}
}

func (a *app) tamerDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a Tamer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			return svc.DeleteTamer(cmd.Context(), args[0])
		},
	}
}
