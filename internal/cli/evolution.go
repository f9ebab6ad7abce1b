package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cory-johannsen/digigm/internal/errors"
	"github.com/cory-johannsen/digigm/internal/game/evolution"
	"github.com/cory-johannsen/digigm/internal/gm"
)

func (a *app) printLine(l *evolution.Line) {
	a.printf("%s  %s\n", l.ID, l.Name)
	for i, slot := range l.Chain {
		marker := " "
		if i == l.CurrentStageIndex {
			marker = ">"
		}
		req := ""
		if r := slot.Requirements; r != nil {
			req = "  requires " + string(r.Type)
			switch {
			case r.Type == evolution.Item:
				req += " " + r.ItemName
			case r.Value != nil:
				req += " " + strconv.Itoa(*r.Value)
			}
		}
		a.printf("%s %d. %s (%s)%s\n", marker, i, slot.Species, slot.Stage, req)
	}
	p := l.EvolutionProgress
	a.printf("  battles %d  xp %d  bond %d  items %v\n", p.BattlesWon, p.XPEarned, p.BondLevel, p.ItemsCollected)
}

func (a *app) evolutionCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "evolution", Aliases: []string{"evo"}, Short: "Track evolution lines"}

	var file string
	create := &cobra.Command{
		Use:   "create --file LINE.yaml",
		Short: "Create an evolution line from a YAML or JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var spec evolution.Spec
			if err := decodeFile(file, &spec); err != nil {
				return errors.Validation("%v", err)
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			l, err := svc.CreateLine(cmd.Context(), spec)
			if err != nil {
				return err
			}
			a.printLine(l)
			return nil
		},
	}
	create.Flags().StringVarP(&file, "file", "f", "", "line definition")
	_ = create.MarkFlagRequired("file")

	var partner string
	list := &cobra.Command{
		Use:   "list",
		Short: "List evolution lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			ls, err := svc.ListLines(cmd.Context(), evolution.Filter{PartnerID: partner})
			if err != nil {
				return err
			}
			for _, l := range ls {
				cur, _ := l.CurrentStage()
				a.printf("%s  %s  at %s (%s)\n", l.ID, l.Name, cur.Species, cur.Stage)
			}
			return nil
		},
	}
	list.Flags().StringVar(&partner, "partner", "", "only lines for this partner")

	canEvolve := &cobra.Command{
		Use:   "can-evolve ID",
		Short: "Preview whether the next evolution is allowed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			v, err := svc.CanEvolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.printf("%t: %s\n", v.CanEvolve, v.Reason)
			return nil
		},
	}

	var force bool
	evolve := &cobra.Command{
		Use:   "evolve ID",
		Short: "Advance to the next stage of the line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.lineOp(cmd, func(svc *gm.Service) (*evolution.Line, error) {
				if force {
					return svc.ForceEvolve(cmd.Context(), args[0])
				}
				return svc.Evolve(cmd.Context(), args[0])
			})
		},
	}
	evolve.Flags().BoolVar(&force, "force", false, "skip the requirement check")

	devolve := &cobra.Command{
		Use:   "devolve ID",
		Short: "Step back one stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.lineOp(cmd, func(svc *gm.Service) (*evolution.Line, error) {
				return svc.Devolve(cmd.Context(), args[0])
			})
		},
	}

	var delta gm.ProgressDelta
	progress := &cobra.Command{
		Use:   "progress ID",
		Short: "Record battles, XP, bond or an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.lineOp(cmd, func(svc *gm.Service) (*evolution.Line, error) {
				return svc.RecordProgress(cmd.Context(), args[0], delta)
			})
		},
	}
	progress.Flags().IntVar(&delta.Battles, "battles", 0, "battles won")
	progress.Flags().IntVar(&delta.XP, "xp", 0, "XP earned")
	progress.Flags().IntVar(&delta.Bond, "bond", 0, "bond gained")
	progress.Flags().StringVar(&delta.Item, "item", "", "item collected")

	show := &cobra.Command{
		Use:   "show ID",
		Short: "Print an evolution line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.lineOp(cmd, func(svc *gm.Service) (*evolution.Line, error) {
				return svc.GetLine(cmd.Context(), args[0])
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an evolution line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			return svc.DeleteLine(cmd.Context(), args[0])
		},
	}

	cmd.AddCommand(create, list, show, canEvolve, evolve, devolve, progress, del)
	return cmd
}

func (a *app) lineOp(cmd *cobra.Command, fn func(*gm.Service) (*evolution.Line, error)) error {
	svc, err := a.service(cmd.Context())
	if err != nil {
		return err
	}
	l, err := fn(svc)
	if err != nil {
		return err
	}
	a.printLine(l)
	return nil
}
