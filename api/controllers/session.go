package controllers

import (
	"github.com/alex-pricope/art-contest-voting/logging"
	"github.com/alex-pricope/art-contest-voting/pairing"
	"github.com/alex-pricope/art-contest-voting/quota"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	userSessionKey      = "user"
	pairLeftSessionKey  = "pairLeft"
	pairRightSessionKey = "pairRight"
)

// loadSession reads the voter state kept in the session cookie.
func loadSession(g *gin.Context) quota.Session {
	s := sessions.Default(g)
	sess := quota.Session{}
	sess.UserName, _ = s.Get(userSessionKey).(string)
	left, _ := s.Get(pairLeftSessionKey).(string)
	right, _ := s.Get(pairRightSessionKey).(string)
	if left != "" && right != "" {
		sess.CurrentPair = &pairing.Pair{Left: left, Right: right}
	}
	return sess
}

func saveSession(g *gin.Context, sess quota.Session) {
	s := sessions.Default(g)
	if sess.UserName == "" {
		s.Delete(userSessionKey)
	} else {
		s.Set(userSessionKey, sess.UserName)
	}
	if sess.CurrentPair == nil {
		s.Delete(pairLeftSessionKey)
		s.Delete(pairRightSessionKey)
	} else {
		s.Set(pairLeftSessionKey, sess.CurrentPair.Left)
		s.Set(pairRightSessionKey, sess.CurrentPair.Right)
	}
	if err := s.Save(); err != nil {
		logging.Log.Errorf("USER: failed to save session: %v", err)
	}
}
