package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/petcare/internal/database"
	"github.com/mesh-intelligence/petcare/internal/query"
	"github.com/mesh-intelligence/petcare/pkg/types"
)

var clock = func() time.Time { return time.Now().UTC() }

// dueReport is the output of the due command.
type dueReport struct {
	Tasks   []types.Task         `json:"tasks"`
	Records []types.HealthRecord `json:"records"`
}

func newDueCmd(a *app) *cobra.Command {
	var (
		owner   string
		overdue bool
		within  int
	)
	cmd := &cobra.Command{
		Use:   "due",
		Short: "Show open tasks and upcoming health record follow-ups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDatabase(cmd, func(ctx context.Context, db *database.Database) error {
				now := clock()
				var rep dueReport
				if overdue {
					rep.Tasks = query.OverdueTasks(ctx, db.Tasks, owner, now)
				} else {
					rep.Tasks = query.PendingTasks(ctx, db.Tasks, owner)
				}
				rep.Records = query.RecordsDueBefore(ctx, db.HealthRecords, owner, now.AddDate(0, 0, within))
				return a.emit(cmd.OutOrStdout(), rep, func(w io.Writer) {
					tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
					for i := range rep.Tasks {
						t := &rep.Tasks[i]
						mark := ""
						if t.Overdue(now) {
							mark = "overdue"
						}
						fmt.Fprintf(tw, "task\t%s\t%s\t%s\t%s\n", t.ID, t.DueDate.Format("2006-01-02 15:04"), t.Title, mark)
					}
					for _, r := range rep.Records {
						fmt.Fprintf(tw, "record\t%s\t%s\t%s\t\n", r.ID, r.NextDueDate.Format("2006-01-02"), r.Title)
					}
					tw.Flush()
				})
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "only records of this user id")
	cmd.Flags().BoolVar(&overdue, "overdue", false, "only tasks past their due date")
	cmd.Flags().IntVar(&within, "within", 30, "days ahead to look for health record follow-ups")
	return cmd
}

func newCompleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <task-id>",
		Short: "Mark a task done, scheduling the next occurrence of recurring tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDatabase(cmd, func(ctx context.Context, db *database.Database) error {
				done, next, found, err := query.CompleteTask(ctx, db.Tasks, args[0], clock())
				if err != nil {
					return classify(err)
				}
				if !found {
					return userError(fmt.Errorf("%w: task %q", types.ErrNotFound, args[0]))
				}
				out := map[string]any{"completed": done, "next": next}
				return a.emit(cmd.OutOrStdout(), out, func(w io.Writer) {
					fmt.Fprintf(w, "Completed task: %s\n", done.ID)
					if next != nil {
						fmt.Fprintf(w, "Next due %s: %s\n", next.DueDate.Format("2006-01-02 15:04"), next.ID)
					}
				})
			})
		},
	}
}

// petSummary is the output of the pet command.
type petSummary struct {
	Pet               types.Pet          `json:"pet"`
	Tasks             []types.Task       `json:"tasks"`
	FavoriteMeals     []types.Meal       `json:"favoriteMeals"`
	ActiveMedications []types.Medication `json:"activeMedications"`
	Activity          query.Totals       `json:"activity"`
}

func newPetCmd(a *app) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "pet <pet-id>",
		Short: "Summarize one pet's care",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDatabase(cmd, func(ctx context.Context, db *database.Database) error {
				pet, ok := db.Pets.GetByID(ctx, args[0])
				if !ok {
					return userError(fmt.Errorf("%w: pet %q", types.ErrNotFound, args[0]))
				}
				now := clock()
				sum := petSummary{
					Pet:               pet,
					Tasks:             query.TasksForPet(ctx, db.Tasks, pet.ID),
					FavoriteMeals:     query.FavoriteMeals(ctx, db.Meals, pet.ID),
					ActiveMedications: query.ActiveMedications(ctx, db.Medications, pet.ID, now),
					Activity:          query.ActivityTotals(ctx, db.Activities, pet.ID, now.AddDate(0, 0, -days)),
				}
				return a.emit(cmd.OutOrStdout(), sum, func(w io.Writer) {
					printPetSummary(w, sum, days)
				})
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "activity window in days")
	return cmd
}

func printPetSummary(w io.Writer, s petSummary, days int) {
	fmt.Fprintf(w, "%s\n", label(&s.Pet))
	fmt.Fprintf(w, "tasks: %d\n", len(s.Tasks))
	for i := range s.Tasks {
		fmt.Fprintf(w, "  %s\n", label(&s.Tasks[i]))
	}
	for i := range s.FavoriteMeals {
		fmt.Fprintf(w, "favorite meal: %s\n", label(&s.FavoriteMeals[i]))
	}
	for i := range s.ActiveMedications {
		fmt.Fprintf(w, "medication: %s\n", label(&s.ActiveMedications[i]))
	}
	fmt.Fprintf(w, "activity (%dd): %d sessions, %d min, %.1f km\n",
		days, s.Activity.Sessions, s.Activity.Minutes, s.Activity.DistanceKm)
}

func newFindUserCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "find-user <email>",
		Short: "Look up a user by email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDatabase(cmd, func(ctx context.Context, db *database.Database) error {
				u, ok := query.UserByEmail(ctx, db.Users, args[0])
				if !ok {
					return userError(fmt.Errorf("%w: user %q", types.ErrNotFound, args[0]))
				}
				return writeJSON(cmd.OutOrStdout(), u)
			})
		},
	}
}
