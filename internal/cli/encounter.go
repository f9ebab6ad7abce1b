package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cory-johannsen/digigm/internal/errors"
	"github.com/cory-johannsen/digigm/internal/game/combat"
	"github.com/cory-johannsen/digigm/internal/game/digimon"
	"github.com/cory-johannsen/digigm/internal/gm"
)

func (a *app) budget() combat.ActionBudget {
	return combat.ActionBudget{Simple: a.cfg.Encounter.SimpleActions, Complex: a.cfg.Encounter.ComplexActions}
}

// encounterOp runs fn against the service and prints the resulting
// turn order. The service treats unknown encounters as a silent no-op;
// at the command line that is reported as not found.
func (a *app) encounterOp(use, short string, nargs int, fn func(ctx context.Context, svc *gm.Service, args []string) (*combat.Encounter, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			e, err := fn(cmd.Context(), svc, args)
			if err != nil {
				return err
			}
			if e == nil {
				return errors.NotFound("encounter", args[0])
			}
			a.printEncounter(e)
			return nil
		},
	}
}

func (a *app) printEncounter(e *combat.Encounter) {
	a.printf("%s  %s  phase %s  round %d\n", e.ID, e.Name, e.Phase, e.Round)
	current, _ := e.CurrentParticipant()
	w := a.table()
	for _, id := range e.TurnOrder {
		p, ok := e.Participant(id)
		if !ok {
			continue
		}
		marker := " "
		if current != nil && current.ID == p.ID && e.Phase == combat.PhaseCombat {
			marker = ">"
		}
		var effects []string
		for _, ef := range p.ActiveEffects {
			effects = append(effects, fmt.Sprintf("%s(%d)", ef.Name, ef.Duration))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\tinit %d\twounds %d/%d\t%s\t%s\n",
			marker, p.ID, p.Name, p.Initiative, p.CurrentWounds, p.MaxWounds, p.CurrentStance, strings.Join(effects, " "))
	}
	_ = w.Flush()
	for _, h := range e.Hazards {
		dur := "permanent"
		if h.Duration != nil {
			dur = strconv.Itoa(*h.Duration)
		}
		a.printf("  hazard %s  %s (%s)\n", h.ID, h.Name, dur)
	}
}

func (a *app) encounterCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "encounter", Aliases: []string{"enc"}, Short: "Run combat encounters"}
	cmd.AddCommand(
		a.encounterCreateCmd(),
		a.encounterListCmd(),
		a.encounterOp("show ID", "Print an encounter", 1, func(ctx context.Context, svc *gm.Service, args []string) (*combat.Encounter, error) {
			return svc.GetEncounter(ctx, args[0])
		}),
		a.encounterDeleteCmd(),
		a.encounterAddCmd(),
		a.encounterOp("remove ID PARTICIPANT_ID", "Remove a participant", 2, func(ctx context.Context, svc *gm.Service, args []string) (*combat.Encounter, error) {
			return svc.RemoveParticipant(ctx, args[0], args[1])
		}),
		a.encounterOp("roll ID", "Enter the initiative phase", 1, func(ctx context.Context, svc *gm.Service, args []string) (*combat.Encounter, error) {
			return svc.RollInitiative(ctx, args[0])
		}),
		a.encounterOp("start ID", "Start combat", 1, func(ctx context.Context, svc *gm.Service, args []string) (*combat.Encounter, error) {
			return svc.StartCombat(ctx, args[0])
		}),
		a.encounterNextCmd(),
		a.encounterOp("end ID", "End combat", 1, func(ctx context.Context, svc *gm.Service, args []string) (*combat.Encounter, error) {
			return svc.EndCombat(ctx, args[0])
		}),
		a.encounterLogCmd(),
		a.encounterHazardCmd(),
		a.encounterEffectCmd(),
		a.encounterOp("stance ID PARTICIPANT_ID STANCE", "Set a participant's stance", 3, func(ctx context.Context, svc *gm.Service, args []string) (*combat.Encounter, error) {
			return svc.SetParticipantStance(ctx, args[0], args[1], digimon.Stance(args[2]))
		}),
		a.encounterOp("wounds ID PARTICIPANT_ID DELTA", "Add or heal participant wounds", 3, func(ctx context.Context, svc *gm.Service, args []string) (*combat.Encounter, error) {
			n, err := strconv.Atoi(args[2])
			if err != nil {
				return nil, errors.Validation("%q is not a number", args[2])
			}
			return svc.ApplyParticipantWounds(ctx, args[0], args[1], n)
		}),
		a.encounterOp("spend ID PARTICIPANT_ID simple|complex", "Spend one action", 3, func(ctx context.Context, svc *gm.Service, args []string) (*combat.Encounter, error) {
			return svc.SpendAction(ctx, args[0], args[1], combat.ActionKind(args[2]))
		}),
	)
	return cmd
}

func (a *app) encounterCreateCmd() *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an encounter in the setup phase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			e, err := svc.CreateEncounter(cmd.Context(), args[0], description)
			if err != nil {
				return err
			}
			a.printf("%s\n", e.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "scene description")
	return cmd
}

func (a *app) encounterListCmd() *cobra.Command {
	var phase string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List encounters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			es, err := svc.ListEncounters(cmd.Context(), combat.Phase(phase))
			if err != nil {
				return err
			}
			for _, e := range es {
				a.printf("%s  %s  phase %s  round %d  participants %d\n", e.ID, e.Name, e.Phase, e.Round, len(e.Participants))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&phase, "phase", "", "only encounters in this phase")
	return cmd
}

func (a *app) encounterDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an encounter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			return svc.DeleteEncounter(cmd.Context(), args[0])
		},
	}
}

func (a *app) encounterAddCmd() *cobra.Command {
	var (
		digimonID, tamerID string
		initiative         int
		maxWounds          int
	)
	cmd := &cobra.Command{
		Use:   "add ID (--digimon ID | --tamer ID)",
		Short: "Add a participant, rolling initiative unless --initiative is given",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := gm.ParticipantSpec{MaxWounds: maxWounds}
			switch {
			case digimonID != "" && tamerID == "":
				spec.Kind, spec.EntityID = combat.KindDigimon, digimonID
			case tamerID != "" && digimonID == "":
				spec.Kind, spec.EntityID = combat.KindTamer, tamerID
			default:
				return errors.Validation("exactly one of --digimon or --tamer is required")
			}
			if cmd.Flags().Changed("initiative") {
				spec.Initiative = &initiative
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			e, p, err := svc.AddParticipant(cmd.Context(), args[0], spec)
			if err != nil {
				return err
			}
			if e == nil {
				return errors.NotFound("encounter", args[0])
			}
			a.printf("%s joined with initiative %d\n", p.Name, p.Initiative)
			a.printEncounter(e)
			return nil
		},
	}
	cmd.Flags().StringVar(&digimonID, "digimon", "", "Digimon id")
	cmd.Flags().StringVar(&tamerID, "tamer", "", "Tamer id")
	cmd.Flags().IntVar(&initiative, "initiative", 0, "fixed initiative instead of a roll")
	cmd.Flags().IntVar(&maxWounds, "max-wounds", 0, "override the entity's wound boxes")
	return cmd
}

func (a *app) encounterNextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next ID",
		Short: "Advance to the next turn",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			e, expired, err := svc.NextTurn(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if e == nil {
				return errors.NotFound("encounter", args[0])
			}
			pids := make([]string, 0, len(expired))
			for pid := range expired {
				pids = append(pids, pid)
			}
			sort.Strings(pids)
			for _, pid := range pids {
				for _, ef := range expired[pid] {
					a.printf("%s: %s expired\n", pid, ef.Name)
				}
			}
			a.printEncounter(e)
			return nil
		},
	}
}

func (a *app) encounterLogCmd() *cobra.Command {
	var (
		entry    combat.LogEntry
		target   string
		damage   int
		effects  string
		showOnly bool
	)
	cmd := &cobra.Command{
		Use:   "log ID",
		Short: "Append to or print the battle log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			var e *combat.Encounter
			if showOnly {
				e, err = svc.GetEncounter(cmd.Context(), args[0])
			} else {
				if cmd.Flags().Changed("target") {
					entry.Target = &target
				}
				if cmd.Flags().Changed("damage") {
					entry.Damage = &damage
				}
				if effects != "" {
					entry.Effects = strings.Split(effects, ",")
				}
				e, err = svc.AppendLog(cmd.Context(), args[0], entry)
			}
			if err != nil {
				return err
			}
			if e == nil {
				return errors.NotFound("encounter", args[0])
			}
			for _, l := range e.BattleLog {
				line := fmt.Sprintf("[round %d] %s: %s", l.Round, l.ActorName, l.Action)
				if l.Target != nil {
					line += " -> " + *l.Target
				}
				if l.Result != "" {
					line += " (" + l.Result + ")"
				}
				if l.Damage != nil {
					line += fmt.Sprintf(" %d damage", *l.Damage)
				}
				a.printf("%s\n", line)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVar(&showOnly, "show", false, "print the log without appending")
	f.StringVar(&entry.ActorID, "actor", "", "acting participant id")
	f.StringVar(&entry.ActorName, "actor-name", "", "acting participant name")
	f.StringVar(&entry.Action, "action", "", "what happened")
	f.StringVar(&target, "target", "", "target name")
	f.StringVar(&entry.Result, "result", "", "outcome")
	f.IntVar(&damage, "damage", 0, "damage dealt")
	f.StringVar(&effects, "effects", "", "comma-separated effect names")
	return cmd
}

func (a *app) encounterHazardCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "hazard", Short: "Manage encounter hazards"}

	var duration int
	add := &cobra.Command{
		Use:   "add ID TEMPLATE_ID",
		Short: "Add a catalogue hazard",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			var dur *int
			if cmd.Flags().Changed("duration") {
				dur = &duration
			}
			e, err := svc.AddHazard(cmd.Context(), args[0], args[1], dur)
			if err != nil {
				return err
			}
			if e == nil {
				return errors.NotFound("encounter", args[0])
			}
			a.printEncounter(e)
			return nil
		},
	}
	add.Flags().IntVar(&duration, "duration", 0, "override the template duration in rounds")

	remove := a.encounterOp("remove ID HAZARD_ID", "Remove a hazard", 2, func(ctx context.Context, svc *gm.Service, args []string) (*combat.Encounter, error) {
		return svc.RemoveHazard(ctx, args[0], args[1])
	})

	tick := &cobra.Command{
		Use:   "tick ID",
		Short: "Age timed hazards by one round",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			e, expired, err := svc.TickHazards(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if e == nil {
				return errors.NotFound("encounter", args[0])
			}
			for _, h := range expired {
				a.printf("%s expired\n", h.Name)
			}
			a.printEncounter(e)
			return nil
		},
	}

	cmd.AddCommand(add, remove, tick)
	return cmd
}

func (a *app) encounterEffectCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "effect", Short: "Manage participant effects"}

	var duration int
	var source string
	apply := &cobra.Command{
		Use:   "apply ID PARTICIPANT_ID EFFECT",
		Short: "Apply a catalogue effect by id or name",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			e, err := svc.ApplyEffect(cmd.Context(), args[0], args[1], args[2], duration, source)
			if err != nil {
				return err
			}
			if e == nil {
				return errors.NotFound("encounter", args[0])
			}
			a.printEncounter(e)
			return nil
		},
	}
	apply.Flags().IntVar(&duration, "duration", 0, "rounds; 0 uses the effect's default")
	apply.Flags().StringVar(&source, "source", "", "who or what applied it")

	remove := a.encounterOp("remove ID PARTICIPANT_ID EFFECT_ID", "Remove an effect", 3, func(ctx context.Context, svc *gm.Service, args []string) (*combat.Encounter, error) {
		return svc.RemoveEffect(ctx, args[0], args[1], args[2])
	})

	list := &cobra.Command{
		Use:   "list",
		Short: "List catalogue effects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.loadCatalog()
			if err != nil {
				return err
			}
			w := a.table()
			fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tDURATION")
			for _, d := range c.Effects.All() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", d.ID, d.Name, d.Category, d.DefaultDuration)
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(apply, remove, list)
	return cmd
}
