package controllers

import (
	"errors"
	"net/http"

	"github.com/alex-pricope/art-contest-voting/api/models"
	"github.com/alex-pricope/art-contest-voting/contest"
	"github.com/alex-pricope/art-contest-voting/logging"
	"github.com/alex-pricope/art-contest-voting/storage"
	"github.com/gin-gonic/gin"
)

// ContestController serves the read-only contest state shown to voters.
type ContestController struct {
	settings    *contest.SettingsService
	leaderboard *contest.LeaderboardService
	zone        *contest.Zone
}

func NewContestController(settings *contest.SettingsService, leaderboard *contest.LeaderboardService, zone *contest.Zone) *ContestController {
	return &ContestController{
		settings:    settings,
		leaderboard: leaderboard,
		zone:        zone,
	}
}

func (c *ContestController) RegisterRoutes(engine *gin.Engine) {
	group := engine.Group("/api")

	group.GET("/settings", c.getSettings)
	group.GET("/leaderboard", c.getLeaderboard)
}

// getSettings godoc
// @Summary Contest settings and voting window status
// @Tags contest
// @Produce json
// @Success 200 {object} models.SettingsResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /api/settings [get]
func (c *ContestController) getSettings(g *gin.Context) {
	settings, err := c.settings.Load(g.Request.Context())
	if err != nil {
		logging.Log.Errorf("SETTINGS: failed to load settings: %v", err)
		respondError(g, err)
		return
	}
	g.JSON(http.StatusOK, models.TransformSettings(settings, c.zone))
}

// getLeaderboard godoc
// @Summary Latest leaderboard snapshot
// @Description The snapshot is recomputed by an administrator, not on every vote.
// @Tags contest
// @Produce json
// @Success 200 {object} models.LeaderboardResponse
// @Failure 404 {object} models.ErrorResponse "No snapshot yet"
// @Failure 503 {object} models.ErrorResponse
// @Router /api/leaderboard [get]
func (c *ContestController) getLeaderboard(g *gin.Context) {
	ctx := g.Request.Context()
	snapshot, err := c.leaderboard.Latest(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrItemNotFound) {
			g.JSON(http.StatusNotFound, &models.ErrorResponse{Code: models.CodeNotFound, Error: "leaderboard has not been published yet"})
			return
		}
		logging.Log.Errorf("LEADERBOARD: failed to load snapshot: %v", err)
		respondError(g, err)
		return
	}

	settings, err := c.settings.Load(ctx)
	if err != nil {
		respondError(g, err)
		return
	}
	g.JSON(http.StatusOK, models.TransformLeaderboard(snapshot, settings.ShowLeaderboardImages, c.zone))
}
