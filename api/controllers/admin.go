package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/alex-pricope/art-contest-voting/api/models"
	"github.com/alex-pricope/art-contest-voting/api/transport"
	"github.com/alex-pricope/art-contest-voting/contest"
	"github.com/alex-pricope/art-contest-voting/hosting"
	"github.com/alex-pricope/art-contest-voting/identity"
	"github.com/alex-pricope/art-contest-voting/logging"
	"github.com/alex-pricope/art-contest-voting/metrics"
	"github.com/alex-pricope/art-contest-voting/quota"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
)

// SweepStatus is the view of the daily sweep timer shown to administrators.
type SweepStatus interface {
	Running() bool
	NextRun() (time.Time, bool)
}

type AdminController struct {
	identity    *identity.Provider
	settings    *contest.SettingsService
	leaderboard *contest.LeaderboardService
	manager     *quota.Manager
	sweep       SweepStatus
	images      hosting.Store
	zone        *contest.Zone
	publicURL   string
}

func NewAdminController(provider *identity.Provider, settings *contest.SettingsService, leaderboard *contest.LeaderboardService,
	manager *quota.Manager, sweep SweepStatus, images hosting.Store, zone *contest.Zone, publicURL string) *AdminController {
	return &AdminController{
		identity:    provider,
		settings:    settings,
		leaderboard: leaderboard,
		manager:     manager,
		sweep:       sweep,
		images:      images,
		zone:        zone,
		publicURL:   publicURL,
	}
}

func (c *AdminController) RegisterRoutes(engine *gin.Engine) {
	engine.POST("/api/admin/login", c.login)
	engine.POST("/api/admin/logout", c.logout)

	group := engine.Group("/api/admin", transport.AdminAuthMiddleware())

	group.PUT("/settings/theme", c.updateTheme)
	group.PUT("/settings/window", c.updateWindow)
	group.DELETE("/settings/window", c.clearWindow)
	group.PUT("/settings/leaderboard-images", c.updateLeaderboardImages)
	group.POST("/leaderboard", c.refreshLeaderboard)
	group.POST("/users/reset", c.resetUsers)
	group.GET("/sweep", c.sweepStatus)
	group.POST("/hosting/verify", c.verifyHosting)
	group.GET("/qrcode", c.qrCode)
}

// login godoc
// @Summary Administrator sign-in
// @Tags admin
// @Accept json
// @Produce json
// @Param request body models.AdminLoginRequest true "Credentials"
// @Success 200 {object} models.AdminResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/admin/login [post]
func (c *AdminController) login(g *gin.Context) {
	var req models.AdminLoginRequest
	if err := g.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		badRequest(g, "invalid request, missing email or password")
		return
	}

	session := sessions.Default(g)
	if current, _ := session.Get(transport.AdminSessionKey).(string); current != "" && c.identity.SignedIn(current) {
		g.JSON(http.StatusOK, &models.AdminResponse{Email: current})
		return
	}

	principal, err := c.identity.SignIn(req.Email, req.Password)
	if err != nil {
		respondError(g, err)
		return
	}
	session.Set(transport.AdminSessionKey, principal.Email)
	if err := session.Save(); err != nil {
		logging.Log.Errorf("ADMIN: failed to save session: %v", err)
	}
	g.JSON(http.StatusOK, &models.AdminResponse{Email: principal.Email})
}

// logout godoc
// @Summary Administrator sign-out
// @Tags admin
// @Produce json
// @Success 200 {object} models.MessageResponse
// @Router /api/admin/logout [post]
func (c *AdminController) logout(g *gin.Context) {
	session := sessions.Default(g)
	email, _ := session.Get(transport.AdminSessionKey).(string)
	if email != "" {
		// The provider forgets sign-ins across restarts while cookies survive them.
		if err := c.identity.SignOut(email); err != nil && !errors.Is(err, identity.ErrNotSignedIn) {
			logging.Log.Errorf("ADMIN: sign-out of '%s' failed: %v", email, err)
		}
		session.Delete(transport.AdminSessionKey)
		if err := session.Save(); err != nil {
			logging.Log.Errorf("ADMIN: failed to save session: %v", err)
		}
	}
	g.JSON(http.StatusOK, &models.MessageResponse{Message: "logged out"})
}

// @Security AdminSession
// updateTheme godoc
// @Summary Change the contest theme
// @Tags admin
// @Accept json
// @Produce json
// @Param request body models.ThemeRequest true "Theme"
// @Success 200 {object} models.SettingsResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /api/admin/settings/theme [put]
func (c *AdminController) updateTheme(g *gin.Context) {
	var req models.ThemeRequest
	if err := g.ShouldBindJSON(&req); err != nil {
		badRequest(g, "invalid request format")
		return
	}
	settings, err := c.settings.UpdateTheme(g.Request.Context(), req.Theme)
	if err != nil {
		if !contest.IsRemote(err) {
			badRequest(g, err.Error())
			return
		}
		respondError(g, err)
		return
	}
	g.JSON(http.StatusOK, models.TransformSettings(settings, c.zone))
}

// @Security AdminSession
// updateWindow godoc
// @Summary Set the voting window
// @Description Bounds are RFC3339 or YYYY-MM-DDTHH:MM in the contest timezone; an empty bound is open.
// @Tags admin
// @Accept json
// @Produce json
// @Param request body models.WindowRequest true "Window"
// @Success 200 {object} models.SettingsResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /api/admin/settings/window [put]
func (c *AdminController) updateWindow(g *gin.Context) {
	var req models.WindowRequest
	if err := g.ShouldBindJSON(&req); err != nil {
		badRequest(g, "invalid request format")
		return
	}
	settings, err := c.settings.UpdateWindow(g.Request.Context(), req.Start, req.End)
	if err != nil {
		logging.Log.Warnf("ADMIN: rejected voting window %q - %q: %v", req.Start, req.End, err)
		if errors.Is(err, contest.ErrInvalidWindow) || contest.IsRemote(err) {
			respondError(g, err)
			return
		}
		badRequest(g, err.Error())
		return
	}
	g.JSON(http.StatusOK, models.TransformSettings(settings, c.zone))
}

// @Security AdminSession
// clearWindow godoc
// @Summary Remove the voting window
// @Tags admin
// @Produce json
// @Success 200 {object} models.SettingsResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /api/admin/settings/window [delete]
func (c *AdminController) clearWindow(g *gin.Context) {
	settings, err := c.settings.ClearWindow(g.Request.Context())
	if err != nil {
		respondError(g, err)
		return
	}
	g.JSON(http.StatusOK, models.TransformSettings(settings, c.zone))
}

// @Security AdminSession
// updateLeaderboardImages godoc
// @Summary Show, hide or toggle leaderboard images
// @Tags admin
// @Accept json
// @Produce json
// @Param request body models.LeaderboardImagesRequest false "Visibility, omitted to toggle"
// @Success 200 {object} models.SettingsResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /api/admin/settings/leaderboard-images [put]
func (c *AdminController) updateLeaderboardImages(g *gin.Context) {
	var req models.LeaderboardImagesRequest
	if g.Request.ContentLength > 0 {
		if err := g.ShouldBindJSON(&req); err != nil {
			badRequest(g, "invalid request format")
			return
		}
	}
	settings, err := c.settings.SetLeaderboardImages(g.Request.Context(), req.Show)
	if err != nil {
		respondError(g, err)
		return
	}
	g.JSON(http.StatusOK, models.TransformSettings(settings, c.zone))
}

// @Security AdminSession
// refreshLeaderboard godoc
// @Summary Recompute the leaderboard snapshot
// @Tags admin
// @Produce json
// @Success 200 {object} models.LeaderboardResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /api/admin/leaderboard [post]
func (c *AdminController) refreshLeaderboard(g *gin.Context) {
	snapshot, err := c.leaderboard.Refresh(g.Request.Context())
	if err != nil {
		logging.Log.Errorf("ADMIN: failed to refresh leaderboard: %v", err)
		respondError(g, err)
		return
	}
	g.JSON(http.StatusOK, models.TransformLeaderboard(snapshot, true, c.zone))
}

// @Security AdminSession
// resetUsers godoc
// @Summary Restore every voter's quota now
// @Tags admin
// @Produce json
// @Success 200 {object} models.ResetResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /api/admin/users/reset [post]
func (c *AdminController) resetUsers(g *gin.Context) {
	count, err := c.manager.ResetAll(g.Request.Context(), metrics.TriggerManual)
	if err != nil {
		logging.Log.Errorf("ADMIN: manual reset stopped after %d users: %v", count, err)
		respondError(g, err)
		return
	}
	g.JSON(http.StatusOK, &models.ResetResponse{Message: "All users reset", Reset: count})
}

// @Security AdminSession
// sweepStatus godoc
// @Summary Daily sweep timer status
// @Tags admin
// @Produce json
// @Success 200 {object} models.SweepStatusResponse
// @Router /api/admin/sweep [get]
func (c *AdminController) sweepStatus(g *gin.Context) {
	resp := models.SweepStatusResponse{
		Armed:    c.sweep.Running(),
		Timezone: c.zone.Location().String(),
	}
	if next, ok := c.sweep.NextRun(); ok {
		resp.NextRun = c.zone.Display(next)
	}
	g.JSON(http.StatusOK, resp)
}

// @Security AdminSession
// verifyHosting godoc
// @Summary Check that a hosting token can reach the image repository
// @Tags admin
// @Produce json
// @Param x-hosting-token header string true "Hosting personal access token"
// @Success 200 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /api/admin/hosting/verify [post]
func (c *AdminController) verifyHosting(g *gin.Context) {
	if err := c.images.Verify(g.Request.Context(), g.GetHeader(hostingTokenHeader)); err != nil {
		logging.Log.Warnf("HOSTING: token verification failed: %v", err)
		respondError(g, err)
		return
	}
	g.JSON(http.StatusOK, &models.MessageResponse{Message: "hosting token is valid"})
}

// @Security AdminSession
// qrCode godoc
// @Summary QR code of the public voting page
// @Tags admin
// @Produce png
// @Param size query int false "Edge length in pixels (128-1024)"
// @Success 200 {file} binary
// @Failure 500 {object} models.ErrorResponse
// @Router /api/admin/qrcode [get]
func (c *AdminController) qrCode(g *gin.Context) {
	size, err := strconv.Atoi(g.DefaultQuery("size", "256"))
	if err != nil || size < 128 || size > 1024 {
		size = 256
	}
	png, err := qrcode.Encode(c.publicURL, qrcode.Medium, size)
	if err != nil {
		logging.Log.Errorf("ADMIN: failed to encode qr code: %v", err)
		g.JSON(http.StatusInternalServerError, &models.ErrorResponse{Code: models.CodeInternal, Error: err.Error()})
		return
	}
	g.Data(http.StatusOK, "image/png", png)
}
