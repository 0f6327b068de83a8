package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/nhle/todoctl/internal/api"
	"github.com/nhle/todoctl/internal/model"
	"github.com/nhle/todoctl/internal/theme"
	"github.com/nhle/todoctl/internal/todos"
)

// lookupPageSize is the page size used when scanning for a todo by id.
const lookupPageSize = 100

func newTodosCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "todos",
		Aliases: []string{"todo", "t"},
		Short:   "Manage todos",
	}

	cmd.AddCommand(newTodosListCmd(a))
	cmd.AddCommand(newTodosAddCmd(a))
	cmd.AddCommand(newTodosEditCmd(a))
	cmd.AddCommand(newTodosToggleCmd(a))
	cmd.AddCommand(newTodosRmCmd(a))
	cmd.AddCommand(newTodosReorderCmd(a))
	cmd.AddCommand(newTodosBulkCmd(a))

	return cmd
}

// authed opens the services and restores the cached session.
func authed(cmd *cobra.Command, a *App) (*services, error) {
	svc, err := a.services(cliNotifier(cmd))
	if err != nil {
		return nil, err
	}
	if err := svc.restore(cmd.Context()); err != nil {
		svc.session.Close()
		return nil, err
	}
	return svc, nil
}

func newTodosListCmd(a *App) *cobra.Command {
	var (
		page     int
		limit    int
		search   string
		status   string
		priority string
		sortBy   string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of todos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := model.DefaultQuery(a.cfg.Todos.PageSize)
			q.Search = search
			if page > 0 {
				q.Page = page
			}
			if limit > 0 {
				q.PageSize = limit
			}
			var err error
			if q.Status, err = model.ParseStatusFilter(status); err != nil {
				return err
			}
			if q.Priority, err = model.ParsePriorityFilter(priority); err != nil {
				return err
			}
			if q.Sort, err = model.ParseSortOrder(sortBy); err != nil {
				return err
			}

			svc, err := authed(cmd, a)
			if err != nil {
				return err
			}
			defer svc.session.Close()

			res, err := svc.client.ListTodos(cmd.Context(), q)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			writeTable(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size (default todos.page_size)")
	cmd.Flags().StringVar(&search, "search", "", "Match title or description")
	cmd.Flags().StringVar(&status, "status", "all", "all|completed|incomplete")
	cmd.Flags().StringVar(&priority, "priority", "all", "all|high|medium|low")
	cmd.Flags().StringVar(&sortBy, "sort", "none", "none|asc|desc (by priority)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw page as JSON")

	return cmd
}

// draftFlags are the editable fields shared by add and edit.
type draftFlags struct {
	title       string
	description string
	priority    string
	due         string
}

func (f *draftFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "Title")
	cmd.Flags().StringVar(&f.description, "description", "", "Description (markdown)")
	cmd.Flags().StringVar(&f.priority, "priority", "", "high|medium|low")
	cmd.Flags().StringVar(&f.due, "due", "", "Due date YYYY-MM-DD, \"none\" clears it")
}

// apply copies the flags the user set onto d.
func (f *draftFlags) apply(cmd *cobra.Command, d *todos.Draft) error {
	flags := cmd.Flags()
	if flags.Changed("title") {
		d.SetTitle(f.title)
	}
	if flags.Changed("description") {
		d.SetDescription(f.description)
	}
	if flags.Changed("priority") {
		p, err := model.ParsePriority(f.priority)
		if err != nil {
			return err
		}
		if err := d.SetPriority(p); err != nil {
			return err
		}
	}
	if flags.Changed("due") {
		due := f.due
		if due == "none" {
			due = ""
		}
		if err := d.SetDueDate(due); err != nil {
			return err
		}
	}
	return nil
}

func newTodosAddCmd(a *App) *cobra.Command {
	var f draftFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a todo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.title == "" {
				err := huh.NewInput().
					Title("Title").
					Placeholder("What needs to be done?").
					Value(&f.title).
					Run()
				if err != nil {
					return err
				}
				cmd.Flags().Set("title", f.title)
			}

			d := todos.NewDraft()
			if err := f.apply(cmd, &d); err != nil {
				return err
			}

			svc, err := authed(cmd, a)
			if err != nil {
				return err
			}
			defer svc.session.Close()

			created, err := svc.todos.Create(cmd.Context(), d)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), created.ID)
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}

func newTodosEditCmd(a *App) *cobra.Command {
	var f draftFlags
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			svc, err := authed(cmd, a)
			if err != nil {
				return err
			}
			defer svc.session.Close()

			t, err := findTodo(cmd.Context(), svc.client, id)
			if err != nil {
				return err
			}
			d := todos.DraftFrom(t)
			if err := f.apply(cmd, &d); err != nil {
				return err
			}
			if err := d.Validate(); err != nil {
				return err
			}

			if _, err := svc.client.UpdateTodo(cmd.Context(), d.ApplyTo(t)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), todos.MsgUpdated)
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}

func newTodosToggleCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip a todo between open and completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			svc, err := authed(cmd, a)
			if err != nil {
				return err
			}
			defer svc.session.Close()

			t, err := findTodo(cmd.Context(), svc.client, id)
			if err != nil {
				return err
			}
			t.Completed = !t.Completed
			updated, err := svc.client.UpdateTodo(cmd.Context(), t)
			if err != nil {
				return err
			}

			state := "open"
			if updated.Completed {
				state = "completed"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d is now %s\n", updated.ID, state)
			return nil
		},
	}
}

func newTodosRmCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a todo",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			svc, err := authed(cmd, a)
			if err != nil {
				return err
			}
			defer svc.session.Close()

			if err := svc.client.DeleteTodo(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), todos.MsgDeleted)
			return nil
		},
	}
}

func newTodosReorderCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <id>...",
		Short: "Give the listed todos their positions in the given order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}

			svc, err := authed(cmd, a)
			if err != nil {
				return err
			}
			defer svc.session.Close()

			res, err := svc.client.ReorderTodos(cmd.Context(), ids)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}
}

func newTodosBulkCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "bulk <complete|incomplete|delete> <id>...",
		Short: "Apply one action to several todos",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := model.ParseBulkAction(args[0])
			if err != nil {
				return err
			}
			ids, err := parseIDs(args[1:])
			if err != nil {
				return err
			}

			svc, err := authed(cmd, a)
			if err != nil {
				return err
			}
			defer svc.session.Close()

			res, err := svc.client.BulkUpdate(cmd.Context(), ids, action)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}
}

// findTodo scans the pages for id. The API has no single-todo endpoint.
func findTodo(ctx context.Context, c *api.Client, id int) (model.Todo, error) {
	q := model.DefaultQuery(lookupPageSize)
	for {
		res, err := c.ListTodos(ctx, q)
		if err != nil {
			return model.Todo{}, err
		}
		for _, t := range res.Data {
			if t.ID == id {
				return t, nil
			}
		}
		if q.Page >= res.TotalPages || len(res.Data) == 0 {
			return model.Todo{}, fmt.Errorf("todo %d: %w", id, todos.ErrNotFound)
		}
		q.Page++
	}
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid todo id %q", s)
	}
	return id, nil
}

func parseIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	seen := make(map[int]bool, len(args))
	for _, s := range args {
		id, err := parseID(s)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			return nil, errors.New("duplicate todo id " + s)
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeTable renders one page with a footer line.
func writeTable(w io.Writer, page model.TodoPage) {
	if len(page.Data) == 0 {
		fmt.Fprintln(w, "No todos.")
		return
	}

	header := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBlue).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
		Headers("ID", "DONE", "PRI", "TITLE", "DUE").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			if col == 2 && row >= 0 && row < len(page.Data) {
				return theme.PriorityStyle(page.Data[row].Priority).Padding(0, 1)
			}
			return cell
		})

	for _, td := range page.Data {
		done := " "
		if td.Completed {
			done = "x"
		}
		t.Row(strconv.Itoa(td.ID), done, td.Priority.String(), td.Title, td.DueDay())
	}

	fmt.Fprintln(w, t.Render())
	fmt.Fprintf(w, "Page %d of %d · %d todos\n", page.Page, max(page.TotalPages, 1), page.Total)
}
