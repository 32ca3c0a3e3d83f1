package controllers

import (
	"net/http"
	"strings"

	"github.com/alex-pricope/art-contest-voting/api/models"
	"github.com/alex-pricope/art-contest-voting/contest"
	"github.com/alex-pricope/art-contest-voting/logging"
	"github.com/alex-pricope/art-contest-voting/quota"
	"github.com/gin-gonic/gin"
)

type VotingController struct {
	manager  *quota.Manager
	watchers *quota.Watchers
	zone     *contest.Zone
}

func NewVotingController(manager *quota.Manager, watchers *quota.Watchers, zone *contest.Zone) *VotingController {
	return &VotingController{
		manager:  manager,
		watchers: watchers,
		zone:     zone,
	}
}

func (c *VotingController) RegisterRoutes(engine *gin.Engine) {
	group := engine.Group("/api")

	group.POST("/session/login", c.login)
	group.POST("/session/logout", c.logout)
	group.GET("/session", c.getSession)
	group.POST("/session/check", c.checkWatermark)
	group.GET("/pair", c.getPair)
	group.POST("/pair/refresh", c.refreshPair)
	group.POST("/vote", c.castVote)
}

// login godoc
// @Summary Log in by display name
// @Description Creates the voter on first visit; a voter whose quota is from an earlier day is reset.
// @Tags voting
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Display name"
// @Success 200 {object} models.SessionResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse "Voting window closed"
// @Failure 503 {object} models.ErrorResponse
// @Router /api/session/login [post]
func (c *VotingController) login(g *gin.Context) {
	var req models.LoginRequest
	if err := g.ShouldBindJSON(&req); err != nil {
		badRequest(g, "invalid request format")
		return
	}

	previous := loadSession(g)
	sess, user, reset, err := c.manager.Login(g.Request.Context(), req.Name)
	if err != nil {
		logging.Log.Warnf("USER: login of '%s' failed: %v", strings.TrimSpace(req.Name), err)
		respondError(g, err)
		return
	}

	if previous.UserName != sess.UserName {
		if previous.LoggedIn() {
			c.watchers.Unwatch(previous.UserName)
		}
		c.watchers.Watch(sess.UserName)
	}
	saveSession(g, sess)

	var notices []quota.Notice
	if reset {
		notices = append(notices, quota.Notice{Message: quota.NewDayNotice, At: c.zone.Now().UTC()})
	}
	g.JSON(http.StatusOK, models.TransformUserToSession(user, quota.Evaluate(user, c.zone.Today(), nil), notices))
}

// logout godoc
// @Summary Log out the current voter
// @Tags voting
// @Produce json
// @Success 200 {object} models.MessageResponse
// @Router /api/session/logout [post]
func (c *VotingController) logout(g *gin.Context) {
	sess := loadSession(g)
	if sess.LoggedIn() {
		c.watchers.Unwatch(sess.UserName)
	}
	saveSession(g, c.manager.Logout(sess))
	g.JSON(http.StatusOK, &models.MessageResponse{Message: "logged out"})
}

// getSession godoc
// @Summary Current voter state and pending notices
// @Tags voting
// @Produce json
// @Success 200 {object} models.SessionResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /api/session [get]
func (c *VotingController) getSession(g *gin.Context) {
	sess := loadSession(g)
	user, err := c.manager.User(g.Request.Context(), sess)
	if err != nil {
		respondError(g, err)
		return
	}
	c.watchers.Touch(user.Name)
	notices := c.watchers.Drain(user.Name)
	g.JSON(http.StatusOK, models.TransformUserToSession(user, quota.Evaluate(user, c.zone.Today(), nil), notices))
}

// checkWatermark godoc
// @Summary Restore the voter's quota if the contest day changed
// @Tags voting
// @Produce json
// @Success 200 {object} models.SessionResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /api/session/check [post]
func (c *VotingController) checkWatermark(g *gin.Context) {
	sess := loadSession(g)
	if !sess.LoggedIn() {
		respondError(g, quota.ErrNotLoggedIn)
		return
	}
	user, reset, err := c.manager.CheckWatermark(g.Request.Context(), sess.UserName)
	if err != nil {
		logging.Log.Errorf("USER: watermark check for '%s' failed: %v", sess.UserName, err)
		respondError(g, err)
		return
	}

	c.watchers.Touch(user.Name)
	notices := c.watchers.Drain(user.Name)
	if reset {
		sess.CurrentPair = nil
		saveSession(g, sess)
		notices = append(notices, quota.Notice{Message: quota.NewDayNotice, At: c.zone.Now().UTC()})
	}
	g.JSON(http.StatusOK, models.TransformUserToSession(user, quota.Evaluate(user, c.zone.Today(), nil), notices))
}

// getPair godoc
// @Summary Show a pair to vote on
// @Description Terminal states (no votes or no pairs left) answer 200 with a state and no pair.
// @Tags voting
// @Produce json
// @Success 200 {object} models.PairResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /api/pair [get]
func (c *VotingController) getPair(g *gin.Context) {
	result, err := c.manager.NextPair(g.Request.Context(), loadSession(g))
	if err != nil {
		logging.Log.Warnf("PAIRING: failed to pick a pair: %v", err)
		respondError(g, err)
		return
	}
	c.seen(result.Session.UserName, result.Reset)
	saveSession(g, result.Session)
	g.JSON(http.StatusOK, models.TransformPairResult(result))
}

// refreshPair godoc
// @Summary Spend a refresh to see a different pair
// @Tags voting
// @Produce json
// @Success 200 {object} models.PairResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse "No refreshes left"
// @Failure 503 {object} models.ErrorResponse
// @Router /api/pair/refresh [post]
func (c *VotingController) refreshPair(g *gin.Context) {
	result, err := c.manager.Refresh(g.Request.Context(), loadSession(g))
	if err != nil {
		logging.Log.Warnf("USER: refresh failed: %v", err)
		respondError(g, err)
		return
	}
	c.seen(result.Session.UserName, result.Reset)
	saveSession(g, result.Session)
	g.JSON(http.StatusOK, models.TransformPairResult(result))
}

// castVote godoc
// @Summary Vote for one side of the displayed pair
// @Tags voting
// @Accept json
// @Produce json
// @Param vote body models.VoteRequest true "Winner of the displayed pair"
// @Success 200 {object} models.VoteResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse "Voting window closed"
// @Failure 409 {object} models.ErrorResponse "No votes left, stale pair or already voted"
// @Failure 503 {object} models.ErrorResponse
// @Router /api/vote [post]
func (c *VotingController) castVote(g *gin.Context) {
	var req models.VoteRequest
	if err := g.ShouldBindJSON(&req); err != nil || req.WinnerID == "" {
		badRequest(g, "invalid request, missing winnerId")
		return
	}

	result, err := c.manager.CastVote(g.Request.Context(), loadSession(g), req.WinnerID)
	if err != nil {
		logging.Log.Warnf("VOTE: vote for %s rejected: %v", req.WinnerID, err)
		respondError(g, err)
		return
	}
	c.seen(result.Session.UserName, result.Reset)
	saveSession(g, result.Session)
	g.JSON(http.StatusOK, &models.VoteResponse{
		Message:        "vote recorded",
		VoteID:         result.Vote.ID,
		VotesRemaining: result.User.VotesRemaining,
	})
}

// seen keeps the voter's watermark poll alive and queues the new-day notice
// when the operation itself restored the quota.
func (c *VotingController) seen(name string, reset bool) {
	if name == "" {
		return
	}
	c.watchers.Touch(name)
	if reset {
		c.watchers.Notify(name, quota.NewDayNotice)
	}
}
