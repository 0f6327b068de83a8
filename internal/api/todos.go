package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nhle/todoctl/internal/model"
)

// ListTodos fetches the page selected by q.
func (c *Client) ListTodos(ctx context.Context, q model.Query) (model.TodoPage, error) {
	var page model.TodoPage
	err := c.do(ctx, http.MethodGet, "/api/todos", q.Values(), nil, &page)
	return page, err
}

// CreateTodo adds a todo and returns the stored record.
func (c *Client) CreateTodo(ctx context.Context, in model.NewTodo) (model.Todo, error) {
	var out model.Todo
	err := c.do(ctx, http.MethodPost, "/api/todos", nil, in, &out)
	return out, err
}

// UpdateTodo replaces a todo with the full record t.
func (c *Client) UpdateTodo(ctx context.Context, t model.Todo) (model.Todo, error) {
	var out model.Todo
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/todos/%d", t.ID), nil, t, &out)
	return out, err
}

// DeleteTodo removes a todo.
func (c *Client) DeleteTodo(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/todos/%d", id), nil, nil, nil)
}

// ReorderTodos sends the new order of ids.
func (c *Client) ReorderTodos(ctx context.Context, ids []int) (model.BulkResult, error) {
	var out model.BulkResult
	err := c.do(ctx, http.MethodPut, "/api/todos/reorder", nil, model.ReorderRequest{TodoIDs: ids}, &out)
	return out, err
}

// BulkUpdate applies action to every id.
func (c *Client) BulkUpdate(ctx context.Context, ids []int, action model.BulkAction) (model.BulkResult, error) {
	var out model.BulkResult
	err := c.do(ctx, http.MethodPut, "/api/todos/bulk", nil, model.BulkRequest{TodoIDs: ids, Action: action}, &out)
	return out, err
}
