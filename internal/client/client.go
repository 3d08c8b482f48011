// Package client talks to the external operation-scheduling REST API.
//
// Every call attaches the stored bearer token; responses are decoded into
// ops records and validated at the boundary before anything downstream
// sees them.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/antigravity-dev/foreman/internal/ops"
)

// ErrNoToken is returned when a call requires authentication and no token
// is available from the token source.
var ErrNoToken = errors.New("client: no access token available")

// apiPrefix is the backend's versioned base path.
const apiPrefix = "/api/v1"

// TokenSource supplies the bearer token attached to backend calls.
type TokenSource interface {
	Token() (string, error)
}

// StatusError reports a non-2xx backend response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d (%s)", e.Method, e.Path, e.Code, e.Body)
}

// Client is an authenticated HTTP client for the scheduling backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
	logger     *slog.Logger
}

// New constructs a Client. A nil httpClient gets a conservative default
// timeout; baseURL is the backend origin without the /api/v1 suffix.
func New(httpClient *http.Client, baseURL string, tokens TokenSource, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		logger:     logger,
	}
}

// Authenticated reports whether a bearer token is currently available.
func (c *Client) Authenticated() bool {
	tok, err := c.tokens.Token()
	return err == nil && tok != ""
}

// do issues one request against the backend and decodes the JSON response
// into out (when out is non-nil). withAuth=false is used only for login.
func (c *Client) do(ctx context.Context, method, path string, query neturl.Values, payload any, out any, withAuth bool) error {
	endpoint := c.baseURL + apiPrefix + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if withAuth {
		tok, err := c.tokens.Token()
		if err != nil || tok == "" {
			return ErrNoToken
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: compact(raw)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s %s response: %w", method, path, err)
		}
	}
	return nil
}

func compact(raw []byte) string {
	s := strings.Join(strings.Fields(string(raw)), " ")
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// Login exchanges credentials for an access token. It does not persist the
// token; callers decide where it goes.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", fmt.Errorf("username and password are required")
	}
	var resp struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	err := c.do(ctx, http.MethodPost, "/authentication/token/", nil,
		map[string]string{"username": username, "password": password}, &resp, false)
	if err != nil {
		return "", err
	}
	if resp.Access == "" {
		return "", fmt.Errorf("login response carried no access token")
	}
	return resp.Access, nil
}

// OpenOperations fetches operations with finalized=false. The backend
// expects the Python-style literal in the query string.
func (c *Client) OpenOperations(ctx context.Context) ([]ops.Operation, error) {
	query := neturl.Values{"finalized": []string{"False"}}
	var list []ops.Operation
	if err := c.do(ctx, http.MethodGet, "/operations/", query, nil, &list, true); err != nil {
		return nil, err
	}
	for _, op := range list {
		if err := op.Validate(); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// Operations fetches all operations regardless of finalized state.
func (c *Client) Operations(ctx context.Context) ([]ops.Operation, error) {
	var list []ops.Operation
	if err := c.do(ctx, http.MethodGet, "/operations/", nil, nil, &list, true); err != nil {
		return nil, err
	}
	for _, op := range list {
		if err := op.Validate(); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// Task fetches one task's detail.
func (c *Client) Task(ctx context.Context, id int64) (ops.Task, error) {
	var t ops.Task
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/tasks/%d/", id), nil, nil, &t, true); err != nil {
		return ops.Task{}, err
	}
	if err := t.Validate(); err != nil {
		return ops.Task{}, err
	}
	return t, nil
}

// Tasks lists tasks, optionally filtered by status and team.
func (c *Client) Tasks(ctx context.Context, status string, teamID int64) ([]ops.Task, error) {
	query := neturl.Values{}
	if status != "" {
		query.Set("status", status)
	}
	if teamID > 0 {
		query.Set("team", fmt.Sprintf("%d", teamID))
	}
	var list []ops.Task
	if err := c.do(ctx, http.MethodGet, "/tasks/", query, nil, &list, true); err != nil {
		return nil, err
	}
	for _, t := range list {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// MarkTaskMounting sets on_mount=true on one task.
func (c *Client) MarkTaskMounting(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/tasks/%d/", id), nil,
		map[string]bool{"on_mount": true}, nil, true)
}

// FinishTask sets status=finished on one task.
func (c *Client) FinishTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/tasks/%d/", id), nil,
		map[string]string{"status": ops.StatusFinished}, nil, true)
}

// Team fetches one team's detail.
func (c *Client) Team(ctx context.Context, id int64) (ops.Team, error) {
	var t ops.Team
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/teams/%d/", id), nil, nil, &t, true); err != nil {
		return ops.Team{}, err
	}
	if err := t.Validate(); err != nil {
		return ops.Team{}, err
	}
	return t, nil
}

// Teams lists teams; availableOnly restricts to is_ocupied=false.
func (c *Client) Teams(ctx context.Context, availableOnly bool) ([]ops.Team, error) {
	query := neturl.Values{}
	if availableOnly {
		query.Set("is_ocupied", "false")
	}
	var list []ops.Team
	if err := c.do(ctx, http.MethodGet, "/teams/", query, nil, &list, true); err != nil {
		return nil, err
	}
	for _, t := range list {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// MarkTeamMounting sets on_mount=true on one team.
func (c *Client) MarkTeamMounting(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/teams/%d/", id), nil,
		map[string]bool{"on_mount": true}, nil, true)
}

// ReleaseTeam sets is_ocupied=false on one team.
func (c *Client) ReleaseTeam(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/teams/%d/", id), nil,
		map[string]bool{"is_ocupied": false}, nil, true)
}

// Equipments lists equipment; availableOnly restricts to is_ocupied=false.
func (c *Client) Equipments(ctx context.Context, availableOnly bool) ([]ops.Equipment, error) {
	query := neturl.Values{}
	if availableOnly {
		query.Set("is_ocupied", "false")
	}
	var list []ops.Equipment
	if err := c.do(ctx, http.MethodGet, "/equipments/", query, nil, &list, true); err != nil {
		return nil, err
	}
	for _, e := range list {
		if err := e.Validate(); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// TeamTasksByTask fetches the join records for one task.
func (c *Client) TeamTasksByTask(ctx context.Context, taskID int64) ([]ops.TeamTask, error) {
	query := neturl.Values{"task": []string{fmt.Sprintf("%d", taskID)}}
	return c.teamTasks(ctx, query)
}

// TeamTasksByTeam fetches the join records for one team.
func (c *Client) TeamTasksByTeam(ctx context.Context, teamID int64) ([]ops.TeamTask, error) {
	query := neturl.Values{"team": []string{fmt.Sprintf("%d", teamID)}}
	return c.teamTasks(ctx, query)
}

func (c *Client) teamTasks(ctx context.Context, query neturl.Values) ([]ops.TeamTask, error) {
	var list []ops.TeamTask
	if err := c.do(ctx, http.MethodGet, "/team_task/", query, nil, &list, true); err != nil {
		return nil, err
	}
	for _, tt := range list {
		if err := tt.Validate(); err != nil {
			return nil, err
		}
	}
	return list, nil
}
