// Package handlers exposes the back office over HTTP. Handlers parse the
// request, call one service and answer JSON; errors always come back as
// {"error": "..."} with the status of their kind.
package handlers

import (
	"net/http"
	"time"

	"fintab-pos/internal/ai"
	"fintab-pos/internal/apperr"
	"fintab-pos/internal/approval"
	"fintab-pos/internal/catalog"
	"fintab-pos/internal/checkout"
	"fintab-pos/internal/incident"
	"fintab-pos/internal/ledger"
	"fintab-pos/internal/membership"
	"fintab-pos/internal/middleware"
	"fintab-pos/internal/models"
	"fintab-pos/internal/reports"
	"fintab-pos/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

var errBadRange = apperr.New(apperr.KindValidation, "from and to must be dates in YYYY-MM-DD format")

// Deps are the services the handlers call.
type Deps struct {
	Repo      store.Repository
	Members   *membership.Service
	Catalog   *catalog.Service
	Ledger    *ledger.Service
	Approvals *approval.Engine
	Sessions  *checkout.Registry
	Recorder  checkout.Recorder
	Reports   *reports.Service
	Agent     *ai.Agent
	Incidents *incident.Log
	Log       *zap.Logger
}

type Handler struct {
	Deps
	now func() time.Time
}

func New(d Deps) *Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &Handler{Deps: d, now: func() time.Time { return time.Now().UTC() }}
}

// fail answers err with the status of its kind.
func (h *Handler) fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.Log.Error("request failed", zap.String("route", c.FullPath()), zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": apperr.Message(err)})
}

// bind decodes the JSON body into dst, answering 400 on failure.
func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return false
	}
	return true
}

func actor(c *gin.Context) models.Actor { return middleware.Actor(c) }

// dateRange reads ?from=&to= as whole days. The default is the last 30 days.
func (h *Handler) dateRange(c *gin.Context) (time.Time, time.Time, error) {
	now := h.now()
	from, to := now.AddDate(0, 0, -30), now
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return from, to, errBadRange
		}
		from = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return from, to, errBadRange
		}
		to = t.Add(24*time.Hour - time.Nanosecond)
	}
	if to.Before(from) {
		return from, to, errBadRange
	}
	return from, to, nil
}

// Scope tells the incident log who was acting and what their register held.
func (h *Handler) Scope(c *gin.Context) incident.Scope {
	a := actor(c)
	s := incident.Scope{BusinessID: a.BusinessID, ActorID: a.UserID}
	if a.BusinessID != "" && h.Sessions != nil {
		s.Checkout = h.Sessions.Snapshot(a.BusinessID, a.UserID)
	}
	return s
}
