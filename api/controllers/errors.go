package controllers

import (
	"errors"
	"net/http"

	"github.com/alex-pricope/art-contest-voting/api/models"
	"github.com/alex-pricope/art-contest-voting/contest"
	"github.com/alex-pricope/art-contest-voting/identity"
	"github.com/alex-pricope/art-contest-voting/quota"
	"github.com/alex-pricope/art-contest-voting/storage"
	"github.com/gin-gonic/gin"
)

// respondError maps a domain error onto its status and code. Callers log first.
func respondError(g *gin.Context, err error) {
	var closed *contest.VotingClosedError
	switch {
	case contest.IsRemote(err):
		g.JSON(http.StatusServiceUnavailable, &models.ErrorResponse{Code: models.CodeRemoteFailed, Error: err.Error(), Retryable: true})
	case errors.As(err, &closed):
		g.JSON(http.StatusForbidden, &models.ErrorResponse{Code: models.CodeVotingClosed, Error: closed.Status.Message()})
	case errors.Is(err, contest.ErrQuotaExhausted):
		g.JSON(http.StatusConflict, &models.ErrorResponse{Code: models.CodeQuotaExhausted, Error: err.Error()})
	case errors.Is(err, quota.ErrAlreadyVoted):
		g.JSON(http.StatusConflict, &models.ErrorResponse{Code: models.CodeAlreadyVoted, Error: err.Error()})
	case errors.Is(err, quota.ErrNotInPair):
		g.JSON(http.StatusConflict, &models.ErrorResponse{Code: models.CodeNotInPair, Error: err.Error()})
	case errors.Is(err, quota.ErrNotLoggedIn):
		g.JSON(http.StatusUnauthorized, &models.ErrorResponse{Code: models.CodeNotLoggedIn, Error: err.Error()})
	case errors.Is(err, quota.ErrEmptyName):
		g.JSON(http.StatusBadRequest, &models.ErrorResponse{Code: models.CodeInvalidRequest, Error: err.Error()})
	case errors.Is(err, quota.ErrSubmissionNotFound), errors.Is(err, storage.ErrItemNotFound):
		g.JSON(http.StatusNotFound, &models.ErrorResponse{Code: models.CodeNotFound, Error: err.Error()})
	case errors.Is(err, contest.ErrCredentialMissing):
		g.JSON(http.StatusBadRequest, &models.ErrorResponse{Code: models.CodeCredentialMissing, Error: err.Error()})
	case errors.Is(err, contest.ErrInvalidCredential), errors.Is(err, identity.ErrInvalidCredentials):
		g.JSON(http.StatusUnauthorized, &models.ErrorResponse{Code: models.CodeInvalidCredential, Error: err.Error()})
	case errors.Is(err, contest.ErrInvalidWindow):
		g.JSON(http.StatusBadRequest, &models.ErrorResponse{Code: models.CodeInvalidWindow, Error: err.Error()})
	default:
		g.JSON(http.StatusInternalServerError, &models.ErrorResponse{Code: models.CodeInternal, Error: err.Error()})
	}
}

func badRequest(g *gin.Context, message string) {
	g.JSON(http.StatusBadRequest, &models.ErrorResponse{Code: models.CodeInvalidRequest, Error: message})
}
