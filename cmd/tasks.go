package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newTasksCmd() *cobra.Command {
	var (
		debugMode     bool
		listID        string
		showCompleted bool
	)

	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List task lists and tasks",
		Long: `Without --list, print all task lists of the account. With --list, print
the tasks in that list.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			sc, err := newCLIServerContext(ctx, debugMode)
			if err != nil {
				return err
			}
			defer func() { _ = sc.Shutdown() }()

			if listID == "" {
				lists, err := sc.TasksClient().ListTaskLists(ctx)
				if err != nil {
					return fmt.Errorf("failed to list task lists: %w", err)
				}
				for _, list := range lists {
					fmt.Printf("%s  %s\n", list.ID, list.Title)
				}
				return nil
			}

			taskItems, err := sc.TasksClient().ListTasks(ctx, listID, showCompleted)
			if err != nil {
				return fmt.Errorf("failed to list tasks: %w", err)
			}
			for _, task := range taskItems {
				marker := "[ ]"
				if task.Status == "completed" {
					marker = "[x]"
				}
				line := fmt.Sprintf("%s %s", marker, task.Title)
				if !task.Due.IsZero() {
					line += fmt.Sprintf(" (due %s)", task.Due.Format("2006-01-02"))
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&listID, "list", "", "Task list ID")
	cmd.Flags().BoolVar(&showCompleted, "show-completed", false, "Include completed and hidden tasks")

	return cmd
}
