// Package incident keeps a small rolling log of unexpected failures so a
// crashed till can be diagnosed afterwards.
package incident

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"fintab-pos/internal/metrics"
	"fintab-pos/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MaxEntries is how many incidents are kept; older ones are dropped.
const MaxEntries = 10

type Incident struct {
	ID         string    `json:"id"`
	Time       time.Time `json:"time"`
	TerminalID string    `json:"terminal_id"`
	Method     string    `json:"method"`
	Route      string    `json:"route"`
	BusinessID string    `json:"business_id,omitempty"`
	ActorID    string    `json:"actor_id,omitempty"`
	Message    string    `json:"message"`
	Stack      string    `json:"stack"`
	Checkout   any       `json:"checkout,omitempty"`
}

// Log is the capped incident list, mirrored to a JSON file after every change.
type Log struct {
	mu       sync.Mutex
	path     string
	terminal string
	entries  []Incident
	log      *zap.Logger
}

// Open loads the log at path. A missing file is an empty log.
func Open(path string, log *zap.Logger) (*Log, error) {
	l := &Log{path: path, terminal: utils.TerminalID(), log: log}
	if path == "" {
		return l, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read incident log: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &l.entries); err != nil {
			return nil, fmt.Errorf("decode incident log: %w", err)
		}
	}
	l.trim()
	return l, nil
}

// Record stamps and stores an incident, returning it with its id.
func (l *Log) Record(inc Incident) Incident {
	inc.ID = utils.NewID()
	if inc.Time.IsZero() {
		inc.Time = time.Now().UTC()
	}
	inc.TerminalID = l.terminal

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, inc)
	l.trim()
	l.persist()
	metrics.Incidents.Inc()
	return inc
}

// List returns the incidents newest first.
func (l *Log) List() []Incident {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Incident, len(l.entries))
	for i, e := range l.entries {
		out[len(l.entries)-1-i] = e
	}
	return out
}

func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.persist()
}

func (l *Log) trim() {
	if n := len(l.entries); n > MaxEntries {
		l.entries = append([]Incident(nil), l.entries[n-MaxEntries:]...)
	}
}

// persist is called with the lock held. A failed write is logged, not returned.
func (l *Log) persist() {
	if l.path == "" {
		return
	}
	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		l.log.Error("encode incident log", zap.Error(err))
		return
	}
	tmp := l.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		l.log.Error("create incident log dir", zap.Error(err))
		return
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		l.log.Error("write incident log", zap.Error(err))
		return
	}
	if err := os.Rename(tmp, l.path); err != nil {
		l.log.Error("replace incident log", zap.Error(err))
	}
}

// Scope is what the request knew about its caller when it failed.
type Scope struct {
	BusinessID string
	ActorID    string
	Checkout   any
}

// Recovery turns a panic into a recorded incident and a 500 answer.
// scope may be nil.
func Recovery(l *Log, scope func(c *gin.Context) Scope) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		inc := Incident{
			Method:  c.Request.Method,
			Route:   c.FullPath(),
			Message: fmt.Sprint(recovered),
			Stack:   string(debug.Stack()),
		}
		if inc.Route == "" {
			inc.Route = c.Request.URL.Path
		}
		if scope != nil {
			s := scope(c)
			inc.BusinessID, inc.ActorID, inc.Checkout = s.BusinessID, s.ActorID, s.Checkout
		}
		inc = l.Record(inc)
		l.log.Error("panic recovered",
			zap.String("incident_id", inc.ID),
			zap.String("route", inc.Route),
			zap.String("actor_id", inc.ActorID),
			zap.String("panic", inc.Message))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":       "unexpected error, the incident has been recorded",
			"incident_id": inc.ID,
		})
	})
}
