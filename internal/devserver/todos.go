package devserver

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/todoctl/internal/model"
	"github.com/nhle/todoctl/internal/store"
)

// todoPayload is the body accepted on create and update. Priority is a
// pointer so an absent field falls back to Medium.
type todoPayload struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Completed   bool    `json:"completed"`
	Priority    *int    `json:"priority"`
	DueDate     *string `json:"due_date"`
}

func (p todoPayload) validate() (model.Priority, error) {
	if strings.TrimSpace(p.Title) == "" {
		return 0, errors.New("Title must not be empty")
	}
	prio := model.PriorityMedium
	if p.Priority != nil {
		prio = model.Priority(*p.Priority)
		if !prio.Valid() {
			return 0, fmt.Errorf("Invalid priority: %d", *p.Priority)
		}
	}
	if p.DueDate != nil && strings.TrimSpace(*p.DueDate) != "" {
		if _, err := parseDueDate(*p.DueDate); err != nil {
			return 0, fmt.Errorf("Invalid due_date: %q", *p.DueDate)
		}
	}
	return prio, nil
}

func (p todoPayload) description() string {
	if p.Description == nil {
		return ""
	}
	return *p.Description
}

// parseDueDate accepts a date or a naive datetime.
func parseDueDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(model.DateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05", s)
}

func queryInt(q url.Values, key string, def int) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("Invalid %s: %q", key, raw)
	}
	return n, nil
}

func parseFilter(q url.Values) (store.TodoFilter, error) {
	var f store.TodoFilter
	var err error

	if f.Page, err = queryInt(q, "page", 1); err != nil {
		return f, err
	}
	if f.Limit, err = queryInt(q, "limit", model.DefaultPageSize); err != nil {
		return f, err
	}
	f.Search = q.Get("search")

	switch status := q.Get("status"); status {
	case "", string(model.StatusAll):
	case string(model.StatusCompleted), string(model.StatusIncomplete):
		done := status == string(model.StatusCompleted)
		f.Completed = &done
	default:
		return f, fmt.Errorf("Invalid status: %q", status)
	}

	if raw := q.Get("priority"); raw != "" {
		n, err := strconv.Atoi(raw)
		p := model.Priority(n)
		if err != nil || !p.Valid() {
			return f, fmt.Errorf("Invalid priority: %q", raw)
		}
		f.Priority = &p
	}

	switch sortBy := q.Get("sort_by"); sortBy {
	case "":
		f.Sort = model.SortNone
	case string(model.SortAscending), string(model.SortDescending):
		f.Sort = model.SortOrder(sortBy)
	default:
		return f, fmt.Errorf("Invalid sort_by: %q", sortBy)
	}

	return f, nil
}

func pathID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	return id, err == nil && id > 0
}

func (s *Server) handleListTodos(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	page, err := s.store.ListTodos(r.Context(), userFrom(r).ID, f)
	if err != nil {
		s.log.Error("list todos", "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleCreateTodo(w http.ResponseWriter, r *http.Request) {
	var p todoPayload
	if err := readJSON(w, r, &p); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	prio, err := p.validate()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	todo, err := s.store.CreateTodo(r.Context(), userFrom(r).ID, model.NewTodo{
		Title:       p.Title,
		Description: p.description(),
		Completed:   p.Completed,
		Priority:    prio,
		DueDate:     p.DueDate,
	})
	if err != nil {
		s.log.Error("create todo", "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

func (s *Server) handleUpdateTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "Invalid todo id")
		return
	}
	var p todoPayload
	if err := readJSON(w, r, &p); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	prio, err := p.validate()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	todo, err := s.store.UpdateTodo(r.Context(), userFrom(r).ID, model.Todo{
		ID:          id,
		Title:       p.Title,
		Description: p.description(),
		Completed:   p.Completed,
		Priority:    prio,
		DueDate:     p.DueDate,
	})
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Todo not found")
		return
	}
	if err != nil {
		s.log.Error("update todo", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

func (s *Server) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "Invalid todo id")
		return
	}
	todo, err := s.store.DeleteTodo(r.Context(), userFrom(r).ID, id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Todo not found")
		return
	}
	if err != nil {
		s.log.Error("delete todo", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	var req model.ReorderRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	err := s.store.ReorderTodos(r.Context(), userFrom(r).ID, req.TodoIDs)
	if errors.Is(err, store.ErrMissingTodos) {
		writeError(w, http.StatusBadRequest, "Some todos not found")
		return
	}
	if err != nil {
		s.log.Error("reorder todos", "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, model.BulkResult{Message: "Todos reordered successfully"})
}

func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	var req model.BulkRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if len(req.TodoIDs) == 0 {
		writeError(w, http.StatusBadRequest, "No todo IDs provided")
		return
	}
	action, err := model.ParseBulkAction(string(req.Action))
	if err != nil {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Invalid action: '%s'. Must be one of: complete, incomplete, delete", req.Action))
		return
	}

	todos, err := s.store.BulkUpdate(r.Context(), userFrom(r).ID, req.TodoIDs, action)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "No todos found")
		return
	}
	if err != nil {
		s.log.Error("bulk update", "action", action, "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if action == model.BulkDelete {
		writeJSON(w, http.StatusOK, model.BulkResult{
			Message: fmt.Sprintf("Deleted %d todos successfully", len(todos)),
		})
		return
	}
	writeJSON(w, http.StatusOK, model.BulkResult{
		Message:      fmt.Sprintf("Updated %d todos successfully", len(todos)),
		UpdatedTodos: todos,
	})
}
