package controllers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/alex-pricope/art-contest-voting/api/models"
	"github.com/alex-pricope/art-contest-voting/api/transport"
	"github.com/alex-pricope/art-contest-voting/contest"
	"github.com/alex-pricope/art-contest-voting/hosting"
	"github.com/alex-pricope/art-contest-voting/logging"
	"github.com/alex-pricope/art-contest-voting/storage"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const hostingTokenHeader = "x-hosting-token"

type SubmissionsController struct {
	submissions storage.SubmissionStorage
	images      hosting.Store
	clock       clockwork.Clock
}

func NewSubmissionsController(s storage.SubmissionStorage, images hosting.Store, clock clockwork.Clock) *SubmissionsController {
	return &SubmissionsController{
		submissions: s,
		images:      images,
		clock:       clock,
	}
}

func (c *SubmissionsController) RegisterRoutes(engine *gin.Engine) {
	group := engine.Group("/api/admin", transport.AdminAuthMiddleware())

	group.GET("/submissions", c.listSubmissions)
	group.POST("/submissions", c.createSubmission)
	group.DELETE("/submissions/:id", c.deleteSubmission)
	group.DELETE("/submissions/:id/votes/:voteId", c.deleteVote)
}

// @Security AdminSession
// listSubmissions godoc
// @Summary List all submissions with their votes
// @Tags admin
// @Produce json
// @Success 200 {array} models.SubmissionResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /api/admin/submissions [get]
func (c *SubmissionsController) listSubmissions(g *gin.Context) {
	all, err := c.submissions.GetAll(g.Request.Context())
	if err != nil {
		logging.Log.Errorf("ADMIN: failed to list submissions: %v", err)
		respondError(g, contest.Remote("list submissions", err))
		return
	}

	response := make([]models.SubmissionResponse, 0, len(all))
	for _, s := range all {
		response = append(response, models.TransformSubmissionFromStorage(s))
	}
	logging.Log.Infof("ADMIN: listed %d submissions", len(response))
	g.JSON(http.StatusOK, response)
}

// @Security AdminSession
// createSubmission godoc
// @Summary Upload a submission
// @Description The image is committed to the hosting repository with the token from the x-hosting-token header. The token is never stored.
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Param x-hosting-token header string true "Hosting personal access token"
// @Param title formData string true "Title"
// @Param image formData file true "JPEG, PNG or WebP image"
// @Success 201 {object} models.SubmissionResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /api/admin/submissions [post]
func (c *SubmissionsController) createSubmission(g *gin.Context) {
	token := g.GetHeader(hostingTokenHeader)
	if err := hosting.ValidateToken(token); err != nil {
		respondError(g, err)
		return
	}

	title := strings.TrimSpace(g.PostForm("title"))
	if title == "" {
		badRequest(g, "invalid request, missing title")
		return
	}
	header, err := g.FormFile("image")
	if err != nil {
		badRequest(g, "invalid request, missing image")
		return
	}
	if header.Size > models.MaxImageBytes {
		badRequest(g, "image is too large")
		return
	}
	file, err := header.Open()
	if err != nil {
		badRequest(g, "could not read image")
		return
	}
	defer file.Close()
	content, err := io.ReadAll(io.LimitReader(file, models.MaxImageBytes+1))
	if err != nil || len(content) > models.MaxImageBytes {
		badRequest(g, "could not read image")
		return
	}
	if _, ok := models.AllowedImageTypes[http.DetectContentType(content)]; !ok {
		badRequest(g, "image must be JPEG, PNG or WebP")
		return
	}

	ctx := g.Request.Context()
	image, err := c.images.Upload(ctx, token, header.Filename, content)
	if err != nil {
		logging.Log.Errorf("ADMIN: failed to upload image for '%s': %v", title, err)
		respondError(g, err)
		return
	}

	submission := &storage.Submission{
		ID:        c.generateID(),
		Title:     title,
		ImageURL:  image.URL,
		ImagePath: image.Path,
		Votes:     []storage.VoteRecord{},
		CreatedAt: c.clock.Now().UTC(),
	}
	if err := c.submissions.Create(ctx, submission); err != nil {
		logging.Log.Errorf("ADMIN: failed to store submission '%s', image %s is orphaned: %v", title, image.Path, err)
		respondError(g, contest.Remote("create submission", err))
		return
	}

	logging.Log.Infof("ADMIN: created submission %s '%s'", submission.ID, title)
	g.JSON(http.StatusCreated, models.TransformSubmissionFromStorage(submission))
}

// @Security AdminSession
// deleteSubmission godoc
// @Summary Delete a submission and its hosted image
// @Description Without an x-hosting-token header the image is left in the repository. Image failures do not block the deletion.
// @Tags admin
// @Produce json
// @Param id path string true "Submission id"
// @Param x-hosting-token header string false "Hosting personal access token"
// @Success 200 {object} map[string]string
// @Failure 404 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /api/admin/submissions/{id} [delete]
func (c *SubmissionsController) deleteSubmission(g *gin.Context) {
	id := g.Param("id")
	ctx := g.Request.Context()

	submission, err := c.submissions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrItemNotFound) {
			respondError(g, err)
			return
		}
		logging.Log.Errorf("ADMIN: failed to load submission %s: %v", id, err)
		respondError(g, contest.Remote("load submission", err))
		return
	}

	if submission.ImagePath != "" {
		token := g.GetHeader(hostingTokenHeader)
		if token == "" {
			logging.Log.Warnf("ADMIN: no hosting token, leaving image %s in place", submission.ImagePath)
		} else if err := c.images.Delete(ctx, token, submission.ImagePath); err != nil {
			logging.Log.Errorf("ADMIN: failed to delete image %s: %v", submission.ImagePath, err)
		}
	}

	if err := c.submissions.Delete(ctx, id); err != nil {
		logging.Log.Errorf("ADMIN: failed to delete submission %s: %v", id, err)
		respondError(g, contest.Remote("delete submission", err))
		return
	}
	logging.Log.Infof("ADMIN: deleted submission: %s", id)
	g.JSON(http.StatusOK, gin.H{"deleted": id})
}

// @Security AdminSession
// deleteVote godoc
// @Summary Delete one vote record of a submission
// @Tags admin
// @Produce json
// @Param id path string true "Submission id"
// @Param voteId path string true "Vote record id"
// @Success 200 {object} models.SubmissionResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /api/admin/submissions/{id}/votes/{voteId} [delete]
func (c *SubmissionsController) deleteVote(g *gin.Context) {
	id, voteID := g.Param("id"), g.Param("voteId")
	ctx := g.Request.Context()

	if err := c.submissions.RemoveVote(ctx, id, voteID); err != nil {
		if errors.Is(err, storage.ErrItemNotFound) {
			respondError(g, err)
			return
		}
		logging.Log.Errorf("ADMIN: failed to delete vote %s of %s: %v", voteID, id, err)
		respondError(g, contest.Remote("delete vote", err))
		return
	}

	submission, err := c.submissions.Get(ctx, id)
	if err != nil {
		respondError(g, contest.Remote("load submission", err))
		return
	}
	logging.Log.Infof("ADMIN: deleted vote %s of %s, score now %d", voteID, id, submission.Score)
	g.JSON(http.StatusOK, models.TransformSubmissionFromStorage(submission))
}

func (c *SubmissionsController) generateID() string {
	suffix, err := gonanoid.Generate(models.Alphabet, models.SubmissionIDLength)
	if err != nil {
		logging.Log.Errorf("ADMIN: failed to generate submission id: %v", err)
		suffix = c.clock.Now().Format("20060102150405.000000")
	}
	return models.SubmissionIDPrefix + suffix
}
