package delivery

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"adsdash/internal/domain"
	"adsdash/internal/usecase"
	"adsdash/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// handles HTTP requests
type HTTPHandlers struct {
	sessions *usecase.SessionService
	logger   *logger.Logger
}

func NewHTTPHandlers(sessions *usecase.SessionService, logger *logger.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		sessions: sessions,
		logger:   logger,
	}
}

// CreateSession opens a dashboard and performs its initial load
func (h *HTTPHandlers) CreateSession(c *gin.Context) {
	ctx, requestID := requestContext(c)

	session, err := h.sessions.Create(ctx)
	if session == nil {
		h.writeError(ctx, c, requestID, err)
		return
	}

	h.respondLoaded(c, http.StatusCreated, requestID, session, err)
}

// GetSession returns the full selection state of a session
func (h *HTTPHandlers) GetSession(c *gin.Context) {
	ctx, requestID := requestContext(c)

	session, err := h.sessions.Get(ctx, c.Param("id"))
	if err != nil {
		h.writeError(ctx, c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       newViewResponse(session),
		"request_id": requestID,
	})
}

func (h *HTTPHandlers) DeleteSession(c *gin.Context) {
	ctx, requestID := requestContext(c)

	if err := h.sessions.Delete(ctx, c.Param("id")); err != nil {
		h.writeError(ctx, c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Session deleted",
		"request_id": requestID,
	})
}

// ListCampaigns returns every campaign matching ?q=
func (h *HTTPHandlers) ListCampaigns(c *gin.Context) {
	ctx, requestID := requestContext(c)

	session, err := h.sessions.Get(ctx, c.Param("id"))
	if err != nil {
		h.writeError(ctx, c, requestID, err)
		return
	}

	state := session.Store.State()
	items := campaignItems(session.Store.Campaigns(c.Query("q")), state)
	c.JSON(http.StatusOK, gin.H{
		"data":         items,
		"total":        len(items),
		"all_selected": allSelected(items),
		"request_id":   requestID,
	})
}

// ListAdSets returns the ad sets of the focused campaign matching ?q=
func (h *HTTPHandlers) ListAdSets(c *gin.Context) {
	ctx, requestID := requestContext(c)

	session, err := h.sessions.Get(ctx, c.Param("id"))
	if err != nil {
		h.writeError(ctx, c, requestID, err)
		return
	}

	state := session.Store.State()
	items := adsetItems(session.Store.AdSets(c.Query("q")), state)
	response := gin.H{
		"data":         items,
		"total":        len(items),
		"all_selected": allSelected(items),
		"campaign_id":  state.Focus.CampaignID(),
		"request_id":   requestID,
	}
	if state.Focus.CampaignID() == "" {
		response["message"] = "Select a campaign to see ad sets"
	}
	c.JSON(http.StatusOK, response)
}

// ListAds returns the ads of the focused ad set matching ?q=
func (h *HTTPHandlers) ListAds(c *gin.Context) {
	ctx, requestID := requestContext(c)

	session, err := h.sessions.Get(ctx, c.Param("id"))
	if err != nil {
		h.writeError(ctx, c, requestID, err)
		return
	}

	state := session.Store.State()
	items := adItems(session.Store.Ads(c.Query("q")), state)
	response := gin.H{
		"data":         items,
		"total":        len(items),
		"all_selected": allSelected(items),
		"adset_id":     state.Focus.AdSetID(),
		"request_id":   requestID,
	}
	if state.Focus.AdSetID() == "" {
		response["message"] = "Select an ad set to see ads"
	}
	c.JSON(http.StatusOK, response)
}

// ListMetrics returns the metric catalog matching ?q=, grouped by category
func (h *HTTPHandlers) ListMetrics(c *gin.Context) {
	ctx, requestID := requestContext(c)

	session, err := h.sessions.Get(ctx, c.Param("id"))
	if err != nil {
		h.writeError(ctx, c, requestID, err)
		return
	}

	state := session.Store.State()
	metrics := session.Store.Metrics(c.Query("q"))
	c.JSON(http.StatusOK, gin.H{
		"data":       metricGroups(metrics, state),
		"total":      len(metrics),
		"selected":   state.Selected.Metrics.Len(),
		"request_id": requestID,
	})
}

// DispatchAction applies one selection action to the session
func (h *HTTPHandlers) DispatchAction(c *gin.Context) {
	ctx, requestID := requestContext(c)
	id := c.Param("id")

	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "Invalid request body",
			"message":    err.Error(),
			"request_id": requestID,
		})
		return
	}

	session, err := h.sessions.Get(ctx, id)
	if err != nil {
		h.writeError(ctx, c, requestID, err)
		return
	}

	action, err := req.toAction(session.Store)
	if err != nil {
		h.writeError(ctx, c, requestID, err)
		return
	}

	change, err := h.sessions.Dispatch(ctx, id, action)
	if err != nil {
		h.writeError(ctx, c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"changed":    change,
		"data":       newViewResponse(session),
		"request_id": requestID,
	})
}

// ReloadSession replaces the session's data with a fresh unfiltered load
func (h *HTTPHandlers) ReloadSession(c *gin.Context) {
	ctx, requestID := requestContext(c)

	session, err := h.sessions.Reload(ctx, c.Param("id"))
	if session == nil {
		h.writeError(ctx, c, requestID, err)
		return
	}

	h.respondLoaded(c, http.StatusOK, requestID, session, err)
}

// RefreshSession reloads the session's data filtered by its selection
func (h *HTTPHandlers) RefreshSession(c *gin.Context) {
	ctx, requestID := requestContext(c)

	session, err := h.sessions.Refresh(ctx, c.Param("id"))
	if session == nil {
		h.writeError(ctx, c, requestID, err)
		return
	}

	h.respondLoaded(c, http.StatusOK, requestID, session, err)
}

// AcknowledgeNotice dismisses the session's error message
func (h *HTTPHandlers) AcknowledgeNotice(c *gin.Context) {
	ctx, requestID := requestContext(c)

	session, err := h.sessions.Get(ctx, c.Param("id"))
	if err != nil {
		h.writeError(ctx, c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"acknowledged": session.Store.AcknowledgeError(),
		"request_id":   requestID,
	})
}

// StreamEvents pushes a "change" event naming the views to redraw after
// every state transition, until the client disconnects.
func (h *HTTPHandlers) StreamEvents(c *gin.Context) {
	ctx, requestID := requestContext(c)

	session, err := h.sessions.Get(ctx, c.Param("id"))
	if err != nil {
		h.writeError(ctx, c, requestID, err)
		return
	}

	changes, cancel := session.Store.Subscribe()
	defer cancel()

	log := h.logger.WithContext(ctx).WithField("session_id", session.ID)
	log.Debug("Event stream opened")

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("ready", gin.H{"session_id": session.ID})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case change, ok := <-changes:
			if !ok {
				return false
			}
			c.SSEvent("change", gin.H{"views": change.Views()})
			return true
		case <-ctx.Done():
			return false
		}
	})

	log.Debug("Event stream closed")
}

// GetAPIInfo returns API v1 information and available endpoints
func (h *HTTPHandlers) GetAPIInfo(c *gin.Context) {
	_, requestID := requestContext(c)

	c.JSON(http.StatusOK, gin.H{
		"api_version": "v1",
		"service":     "adsdash",
		"version":     "1.0.0",
		"description": "Campaign, ad set, ad and metric selection state for the ads dashboard",
		"endpoints": gin.H{
			"sessions": gin.H{
				"create":  "POST /api/v1/sessions",
				"get":     "GET /api/v1/sessions/:id",
				"delete":  "DELETE /api/v1/sessions/:id",
				"reload":  "POST /api/v1/sessions/:id/reload",
				"refresh": "POST /api/v1/sessions/:id/refresh",
				"events":  "GET /api/v1/sessions/:id/events",
				"notice":  "DELETE /api/v1/sessions/:id/notice",
			},
			"collections": gin.H{
				"campaigns": "GET /api/v1/sessions/:id/campaigns?q=",
				"adsets":    "GET /api/v1/sessions/:id/adsets?q=",
				"ads":       "GET /api/v1/sessions/:id/ads?q=",
				"metrics":   "GET /api/v1/sessions/:id/metrics?q=",
			},
			"actions": gin.H{
				"path": "POST /api/v1/sessions/:id/actions",
				"types": []domain.ActionType{
					domain.ActionSelectCampaign,
					domain.ActionSelectAdSet,
					domain.ActionToggle,
					domain.ActionSelectAllVisible,
					domain.ActionClearAll,
					domain.ActionSetDateRange,
					domain.ActionApplyPreset,
				},
				"kinds":        domain.Kinds,
				"date_format":  "YYYY-MM-DD or RFC3339",
				"date_presets": domain.DatePresets,
			},
		},
		"request_id": requestID,
	})
}

// HealthCheck returns the health status of the service
func (h *HTTPHandlers) HealthCheck(c *gin.Context) {
	_, requestID := requestContext(c)

	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"service":    "adsdash",
		"version":    "1.0.0",
		"sessions":   h.sessions.Count(),
		"request_id": requestID,
	})
}

// respondLoaded answers a create, reload or refresh. A failed load is not
// an HTTP error: the session carries the fallback dataset and a notice.
func (h *HTTPHandlers) respondLoaded(c *gin.Context, status int, requestID string, session *usecase.Session, loadErr error) {
	c.JSON(status, gin.H{
		"data":       newViewResponse(session),
		"fallback":   errors.Is(loadErr, domain.ErrDataFetch),
		"request_id": requestID,
	})
}

func (h *HTTPHandlers) writeError(ctx context.Context, c *gin.Context, requestID string, err error) {
	status, title := http.StatusInternalServerError, "Internal server error"
	switch {
	case usecase.IsNotFound(err):
		status, title = http.StatusNotFound, "Session not found"
	case errors.Is(err, domain.ErrInvalidSelection):
		status, title = http.StatusUnprocessableEntity, "Invalid selection"
	case errors.Is(err, domain.ErrInvalidAction), errors.Is(err, errBadRequest):
		status, title = http.StatusBadRequest, "Invalid action"
	default:
		h.logger.WithContext(ctx).WithError(err).Error("Request failed")
	}

	c.JSON(status, gin.H{
		"error":      title,
		"message":    err.Error(),
		"request_id": requestID,
	})
}

// requestContext returns the request context carrying the request id set
// by the RequestID middleware, generating one when it is absent.
func requestContext(c *gin.Context) (context.Context, string) {
	requestID := c.GetString("request_id")
	if requestID == "" {
		requestID = uuid.New().String()
	}
	ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, requestID)
	if id := c.Param("id"); id != "" {
		ctx = context.WithValue(ctx, logger.SessionIDKey, id)
	}
	return ctx, requestID
}
