package transport

import (
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/alex-pricope/art-contest-voting/logging"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const (
	SessionName = "art_contest"
	// AdminSessionKey holds the signed-in administrator email.
	AdminSessionKey = "admin"
	// PrincipalKey is the gin context key set by AdminAuthMiddleware.
	PrincipalKey = "principal"
)

func NewRouter(ginMode string, sessionSecret string, allowedOrigins []string, registry *prometheus.Registry) *gin.Engine {
	gin.SetMode(ginMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(CORSMiddleware(allowedOrigins))
	engine.Use(SessionMiddleware(sessionSecret))

	//Bypass swagger for non-local
	if os.Getenv("APP_ENV") == "local" {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if registry != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	engine.NoRoute(NoRouteHandler())

	return engine
}

// CORSMiddleware lets the configured origins send the session cookie cross-origin.
// Any other origin gets no CORS headers and the browser blocks the response.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o = OriginOf(o); o != "" {
			allowed[o] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		c.Writer.Header().Add("Vary", "Origin")
		origin := c.GetHeader("Origin")
		if _, ok := allowed[strings.ToLower(origin)]; ok {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, x-hosting-token")
		} else if origin != "" {
			logging.Log.Warnf("CORS: origin '%s' is not allowed", origin)
		}

		if c.Request.Method == "OPTIONS" {
			logging.Log.Infof("OPTIONS request received:%s", c.Request.URL.Path)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// OriginOf reduces a URL to its scheme://host[:port] origin, "" when it has none.
func OriginOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}

func SessionMiddleware(secret string) gin.HandlerFunc {
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sessions.Sessions(SessionName, store)
}

func NoRouteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logging.Log.Infof("No routed request received for:%s", c.Request.URL.Path)
		c.JSON(http.StatusNotFound, gin.H{"code": "PAGE_NOT_FOUND", "error": "Page not found"})
	}
}

// AdminAuthMiddleware admits requests whose session carries a signed-in administrator.
func AdminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		email, _ := sessions.Default(c).Get(AdminSessionKey).(string)
		if email == "" {
			logging.Log.Warnf("ADMIN: Unauthorized access attempt to %s", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "error": "unauthorized"})
			return
		}
		c.Set(PrincipalKey, email)
		c.Next()
	}
}
