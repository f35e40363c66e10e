package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/blumetech/alertablu-dash/internal/aggregate"
	"github.com/blumetech/alertablu-dash/internal/filter"
	"github.com/blumetech/alertablu-dash/internal/observability"
	"github.com/blumetech/alertablu-dash/internal/refresh"
	"github.com/blumetech/alertablu-dash/internal/store"
)

type Handler struct {
	fetcher refresh.Fetcher
	store   *store.Store
	manager *refresh.Manager
	metrics *observability.Metrics
}

func NewHandler(fetcher refresh.Fetcher, st *store.Store, manager *refresh.Manager, metrics *observability.Metrics) *Handler {
	return &Handler{
		fetcher: fetcher,
		store:   st,
		manager: manager,
		metrics: metrics,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	// Historical aliases kept so older dashboard builds keep working.
	r.GET("/api/proxy", h.proxy)
	r.GET("/api/situacao-atual", h.proxy)
	r.GET("/api/data/situacao_atual", h.proxy)

	r.GET("/api/neighborhoods", h.getNeighborhoods)
	r.GET("/api/alerts", h.getAlerts)

	r.POST("/api/refresh", h.triggerRefresh)
	r.GET("/api/refresh/status", h.getRefreshStatus)

	r.GET("/api/preferences/home-neighborhood", h.getHomeNeighborhood)
	r.PUT("/api/preferences/home-neighborhood", h.putHomeNeighborhood)

	r.GET("/health", h.health)
}

// proxy forwards the upstream feed verbatim. One upstream attempt per
// request, no server-side retry; the raw body is passed through so fields
// the model does not declare survive.
//
// Cache policy: 5-minute public caching ("Cache-Control: public,
// max-age=300"), matching the upstream's own publication cadence. This is
// the one policy used by every alias.
func (h *Handler) proxy(c *gin.Context) {
	snapshot, err := h.fetcher.Fetch(c.Request.Context())
	if err != nil {
		h.writeFetchError(c, err)
		return
	}

	c.Header("Cache-Control", "public, max-age=300")
	c.Data(http.StatusOK, "application/json", snapshot.Raw)
	h.countProxy(c, http.StatusOK)
}

func (h *Handler) getNeighborhoods(c *gin.Context) {
	snapshot := h.store.Latest()
	if snapshot == nil {
		writeNoSnapshot(c)
		return
	}

	list := aggregate.SortedList(aggregate.Aggregate(snapshot))

	if search := filter.Normalize(c.Query("search")); search != "" {
		matched := list[:0]
		for _, s := range list {
			if strings.Contains(filter.Normalize(s.Name), search) {
				matched = append(matched, s)
			}
		}
		list = matched
	}

	c.JSON(http.StatusOK, gin.H{
		"bairros":    list,
		"count":      len(list),
		"updated_at": snapshot.UpdatedAt,
	})
}

func (h *Handler) getAlerts(c *gin.Context) {
	snapshot := h.store.Latest()
	if snapshot == nil {
		writeNoSnapshot(c)
		return
	}

	criteria := filter.Criteria{
		AlertTypes:      splitParam(c.Query("types")),
		Regions:         splitParam(c.Query("regions")),
		Neighborhoods:   splitParam(c.Query("neighborhoods")),
		ConditionLevels: splitIntParam(c.Query("levels")),
		SearchText:      c.Query("q"),
	}

	home := c.Query("home")
	if home == "" {
		stored, err := h.store.HomeNeighborhood(c.Request.Context())
		if err == nil {
			home = stored
		}
	}

	records := filter.Sort(filter.Apply(snapshot.Records, criteria), home)

	c.JSON(http.StatusOK, gin.H{
		"dados":      records,
		"count":      len(records),
		"updated_at": snapshot.UpdatedAt,
	})
}

func (h *Handler) triggerRefresh(c *gin.Context) {
	status := h.manager.Refresh(c.Request.Context())
	if status.LastError != "" {
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) getRefreshStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.manager.Status())
}

func (h *Handler) getHomeNeighborhood(c *gin.Context) {
	name, err := h.store.HomeNeighborhood(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read preference"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"home_neighborhood": name})
}

func (h *Handler) putHomeNeighborhood(c *gin.Context) {
	var body struct {
		HomeNeighborhood string `json:"home_neighborhood"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"home_neighborhood\": \"...\"}"})
		return
	}

	if err := h.store.SetHomeNeighborhood(c.Request.Context(), strings.TrimSpace(body.HomeNeighborhood)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store preference"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"home_neighborhood": body.HomeNeighborhood})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) countProxy(c *gin.Context, status int) {
	if h.metrics == nil {
		return
	}
	h.metrics.ProxyRequests.WithLabelValues(c.FullPath(), strconv.Itoa(status)).Inc()
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			values = append(values, p)
		}
	}
	return values
}

func splitIntParam(raw string) []int {
	var values []int
	for _, p := range splitParam(raw) {
		if n, err := strconv.Atoi(p); err == nil {
			values = append(values, n)
		}
	}
	return values
}

func writeNoSnapshot(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error":     true,
		"kind":      "NO_SNAPSHOT",
		"message":   "no feed snapshot is available yet; try POST /api/refresh",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
