package webserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/stake-plus/giveaways/src/data/giveaways"
	"github.com/stake-plus/giveaways/src/shared/giveaway"
)

type Giveaways struct {
	store     Store
	sanitizer *bluemonday.Policy
	now       func() time.Time
}

func NewGiveaways(store Store) Giveaways {
	// Prize text is rendered in Discord, so no markup survives.
	return Giveaways{store: store, sanitizer: bluemonday.StrictPolicy(), now: time.Now}
}

type giveawayView struct {
	*giveaway.Giveaway
	State giveaway.State `json:"state"`
}

func view(g *giveaway.Giveaway) giveawayView {
	return giveawayView{Giveaway: g, State: g.State()}
}

func (h Giveaways) List(c *gin.Context) {
	f := giveaways.Filter{GuildID: c.Query("guild")}
	if v := c.Query("ended"); v != "" {
		ended, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"err": "ended must be true or false"})
			return
		}
		f.Ended = &ended
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"err": "limit must be a positive integer"})
			return
		}
		f.Limit = n
	}

	list, err := h.store.List(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]giveawayView, len(list))
	for i := range list {
		out[i] = view(&list[i])
	}
	c.JSON(http.StatusOK, gin.H{"giveaways": out})
}

func (h Giveaways) Get(c *gin.Context) {
	g, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view(g))
}

type createRequest struct {
	GuildID      string                `json:"externalGuildId" binding:"required,max=64"`
	ChannelID    string                `json:"externalChannelId" binding:"required,max=64"`
	HostID       string                `json:"hostId" binding:"max=64"`
	Prize        string                `json:"prizeDescription" binding:"required,max=1000"`
	WinnerCount  int                   `json:"winnerCount"`
	DurationMs   int64                 `json:"durationMs"`
	Mode         giveaway.Mode         `json:"mode"`
	Requirements giveaway.Requirements `json:"requirements"`
}

// Create stores a new giveaway with a queued START. The worker announces it
// on its next tick.
func (h Giveaways) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	mode := giveaway.Mode(strings.ToUpper(string(req.Mode)))
	if mode == "" {
		mode = giveaway.ModeStandard
	}
	spec := giveaway.Spec{
		GuildID:      req.GuildID,
		ChannelID:    req.ChannelID,
		HostID:       req.HostID,
		Prize:        h.clean(req.Prize),
		WinnerCount:  req.WinnerCount,
		Duration:     time.Duration(req.DurationMs) * time.Millisecond,
		Mode:         mode,
		Requirements: req.Requirements,
	}
	if err := spec.Validate(); err != nil {
		writeError(c, err)
		return
	}

	now := h.now().UTC()
	g := &giveaway.Giveaway{
		ID:           uuid.NewString(),
		ChannelID:    spec.ChannelID,
		GuildID:      spec.GuildID,
		HostID:       spec.HostID,
		Prize:        spec.Prize,
		WinnerCount:  spec.WinnerCount,
		Mode:         spec.Mode,
		Requirements: spec.Requirements,
		StartAt:      now,
		EndAt:        now.Add(spec.Duration),
	}
	if err := h.store.EnqueueStart(c.Request.Context(), g, now); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, view(g))
}

type actionRequest struct {
	Action string          `json:"action" binding:"required"`
	Patch  *giveaway.Patch `json:"patch"`
}

// Enqueue records an intent for the worker. Only one may be outstanding.
func (h Giveaways) Enqueue(c *gin.Context) {
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	action := giveaway.Action(strings.ToUpper(strings.TrimSpace(req.Action)))
	if req.Patch != nil && req.Patch.Prize != nil {
		prize := h.clean(*req.Patch.Prize)
		req.Patch.Prize = &prize
	}

	id := c.Param("id")
	if err := h.store.Enqueue(c.Request.Context(), id, action, req.Patch, h.now().UTC()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": id, "pendingAction": action})
}

func (h Giveaways) clean(s string) string {
	return strings.TrimSpace(h.sanitizer.Sanitize(s))
}

func writeError(c *gin.Context, err error) {
	var verr *giveaway.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"err": verr.Error(), "field": verr.Field})
	case errors.Is(err, giveaway.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"err": "giveaway not found"})
	case errors.Is(err, giveaway.ErrActionPending):
		c.JSON(http.StatusConflict, gin.H{"err": err.Error()})
	case errors.Is(err, giveaway.ErrAlreadyEnded):
		c.JSON(http.StatusConflict, gin.H{"err": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "internal error"})
	}
}
