package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"sentinel/internal/apperr"
	"sentinel/internal/command"
	"sentinel/internal/logger"
	"sentinel/internal/models"
)

// SchedulerControl toggles periodic threshold checks
type SchedulerControl interface {
	Start()
	Stop()
	IsRunning() bool
}

// CommandService runs the host inspection commands
type CommandService interface {
	ListHeavyProcesses(ctx context.Context, limit int) (*command.Result, error)
	IsAvailable(ctx context.Context, name string) bool
}

// DatabaseProber checks database reachability
type DatabaseProber interface {
	Probe(ctx context.Context, target models.DatabaseTarget) (string, error)
}

// RuleStore lists and edits threshold rules
type RuleStore interface {
	EnabledRules(ctx context.Context) ([]models.ThresholdRule, error)
	PutRule(ctx context.Context, rule models.ThresholdRule) error
	DeleteRule(ctx context.Context, id string) error
}

// RuleLister is a read-only rule source
type RuleLister interface {
	EnabledRules(ctx context.Context) ([]models.ThresholdRule, error)
}

// maxBodySize bounds JSON request bodies
const maxBodySize = 1 << 20

// Admin serves the administrative API
type Admin struct {
	scheduler SchedulerControl
	commands  CommandService
	databases DatabaseProber
	rules     RuleLister
}

// AdminConfig holds the services exposed by the admin API
type AdminConfig struct {
	Scheduler SchedulerControl
	Commands  CommandService
	Databases DatabaseProber
	// Rules may also implement RuleStore, which enables PUT and DELETE
	Rules RuleLister
}

// NewAdmin creates the admin API
func NewAdmin(cfg AdminConfig) *Admin {
	return &Admin{
		scheduler: cfg.Scheduler,
		commands:  cfg.Commands,
		databases: cfg.Databases,
		rules:     cfg.Rules,
	}
}

// Register mounts the admin routes on mux
func (a *Admin) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /scheduler", a.schedulerStatus)
	mux.HandleFunc("POST /scheduler/start", a.schedulerStart)
	mux.HandleFunc("POST /scheduler/stop", a.schedulerStop)
	mux.HandleFunc("GET /processes", a.heavyProcesses)
	mux.HandleFunc("GET /commands/available", a.commandAvailable)
	mux.HandleFunc("POST /databases/test", a.testDatabase)
	if a.rules != nil {
		mux.HandleFunc("GET /rules", a.listRules)
		if _, ok := a.rules.(RuleStore); ok {
			mux.HandleFunc("PUT /rules/{id}", a.putRule)
			mux.HandleFunc("DELETE /rules/{id}", a.deleteRule)
		}
	}
}

type schedulerResponse struct {
	Running bool `json:"running"`
}

func (a *Admin) schedulerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, schedulerResponse{Running: a.scheduler.IsRunning()})
}

func (a *Admin) schedulerStart(w http.ResponseWriter, r *http.Request) {
	a.scheduler.Start()
	writeJSON(w, http.StatusOK, schedulerResponse{Running: a.scheduler.IsRunning()})
}

func (a *Admin) schedulerStop(w http.ResponseWriter, r *http.Request) {
	a.scheduler.Stop()
	writeJSON(w, http.StatusOK, schedulerResponse{Running: a.scheduler.IsRunning()})
}

func (a *Admin) heavyProcesses(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	res, err := a.commands.ListHeavyProcesses(r.Context(), limit)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(res.Output))
}

type availabilityResponse struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

func (a *Admin) commandAvailable(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	writeJSON(w, http.StatusOK, availabilityResponse{
		Name:      name,
		Available: a.commands.IsAvailable(r.Context(), name),
	})
}

type databaseResponse struct {
	Connected bool   `json:"connected"`
	URL       string `json:"url,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

func (a *Admin) testDatabase(w http.ResponseWriter, r *http.Request) {
	var target models.DatabaseTarget
	if err := decodeJSON(w, r, &target); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	url, err := a.databases.Probe(r.Context(), target)
	resp := databaseResponse{Connected: err == nil, URL: url}
	if err != nil {
		resp.Error = err.Error()
		resp.ErrorKind = errorKind(err)
	}
	// An unreachable database is a valid answer, not a failed request.
	writeJSON(w, http.StatusOK, resp)
}

func (a *Admin) listRules(w http.ResponseWriter, r *http.Request) {
	rules, err := a.rules.EnabledRules(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": rules})
}

func (a *Admin) putRule(w http.ResponseWriter, r *http.Request) {
	var rule models.ThresholdRule
	if err := decodeJSON(w, r, &rule); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rule.ID = r.PathValue("id")

	if !rule.ComponentName.IsKnown() {
		log := logger.WithComponent("admin")
		log.Warn().
			Str("rule", rule.ID).
			Str("component_name", string(rule.ComponentName)).
			Msg("storing rule for unknown component; it will never fire")
	}
	if err := a.rules.(RuleStore).PutRule(r.Context(), rule); err != nil {
		status := http.StatusBadGateway
		if errorKind(err) == "configuration" {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (a *Admin) deleteRule(w http.ResponseWriter, r *http.Request) {
	if err := a.rules.(RuleStore).DeleteRule(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// errorKind names the category of err for API clients
func errorKind(err error) string {
	switch apperr.KindOf(err) {
	case apperr.ErrConfiguration:
		return "configuration"
	case apperr.ErrTimeout:
		return "timeout"
	case apperr.ErrInterrupted:
		return "interrupted"
	default:
		return "execution"
	}
}

func statusFor(err error) int {
	switch errorKind(err) {
	case "configuration":
		return http.StatusServiceUnavailable
	case "timeout":
		return http.StatusGatewayTimeout
	case "interrupted":
		// client went away
		return 499
	default:
		return http.StatusBadGateway
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body: " + err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}
