package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nhle/todoctl/internal/model"
)

// Kind identifies a palette command.
type Kind int

const (
	Refresh Kind = iota
	NewTodo
	Search
	Status
	Priority
	Sort
	Page
	PageSize
	Select
	Bulk
	ClearFilters
	Logout
	Quit
)

// Command is a parsed palette command. Only the fields used by Kind are set.
type Command struct {
	Kind     Kind
	Text     string
	Status   model.StatusFilter
	Priority model.PriorityFilter
	Sort     model.SortOrder
	N        int
	All      bool
	Action   model.BulkAction
}

// Names lists the command words offered as completions.
func Names() []string {
	return []string{
		"refresh", "new", "search ", "status ", "priority ", "sort ",
		"page ", "size ", "select all", "select none",
		"complete", "incomplete", "delete selected", "clear", "logout", "quit",
	}
}

// Parse turns a palette line into a Command.
func Parse(line string) (Command, error) {
	line = strings.TrimSpace(line)
	word, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(word) {
	case "refresh", "r":
		return Command{Kind: Refresh}, nil
	case "new", "add":
		return Command{Kind: NewTodo}, nil
	case "search", "find":
		return Command{Kind: Search, Text: rest}, nil
	case "clear":
		return Command{Kind: ClearFilters}, nil
	case "logout":
		return Command{Kind: Logout}, nil
	case "quit", "q":
		return Command{Kind: Quit}, nil

	case "status":
		f, err := model.ParseStatusFilter(rest)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: Status, Status: f}, nil

	case "priority":
		f, err := model.ParsePriorityFilter(rest)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: Priority, Priority: f}, nil

	case "sort":
		s, err := model.ParseSortOrder(rest)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: Sort, Sort: s}, nil

	case "page", "size":
		n, err := strconv.Atoi(rest)
		if err != nil || n < 1 {
			return Command{}, fmt.Errorf("%s needs a positive number", word)
		}
		if strings.EqualFold(word, "size") {
			return Command{Kind: PageSize, N: n}, nil
		}
		return Command{Kind: Page, N: n}, nil

	case "select":
		switch strings.ToLower(rest) {
		case "all":
			return Command{Kind: Select, All: true}, nil
		case "none":
			return Command{Kind: Select, All: false}, nil
		}
		return Command{}, fmt.Errorf("select takes all or none")

	case "complete", "incomplete", "delete":
		a, err := model.ParseBulkAction(word)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: Bulk, Action: a}, nil
	}

	return Command{}, fmt.Errorf("unknown command %q", word)
}
