package api

import (
	"context"
	"fmt"
	"os"

	"github.com/alex-pricope/art-contest-voting/api/controllers"
	"github.com/alex-pricope/art-contest-voting/api/transport"
	"github.com/alex-pricope/art-contest-voting/logging"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
)

type Server struct {
	config *Config
}

func NewServer(config *Config) *Server {
	return &Server{
		config: config,
	}
}

// Router registers every controller on a fresh engine.
func Router(services *Services) *gin.Engine {
	conf := services.Config
	r := transport.NewRouter(conf.Mode, conf.SessionSecret, conf.AllowedOrigins, services.Registry)

	//Register controllers
	votingController := controllers.NewVotingController(services.Quota, services.Watchers, services.Zone)
	votingController.RegisterRoutes(r)
	contestController := controllers.NewContestController(services.Settings, services.Leaderboard, services.Zone)
	contestController.RegisterRoutes(r)
	adminController := controllers.NewAdminController(services.Identity, services.Settings, services.Leaderboard,
		services.Quota, services.Sweep, services.Hosting, services.Zone, conf.PublicURL)
	adminController.RegisterRoutes(r)
	submissionsController := controllers.NewSubmissionsController(services.Stores.Submissions, services.Hosting, services.Clock)
	submissionsController.RegisterRoutes(r)

	return r
}

func (s *Server) Start() {
	if len(s.config.SessionSecret) < 32 {
		logging.Log.Fatalf("'admin.sessionSecret' must be at least 32 characters")
	}

	services, err := NewServices(context.Background(), s.config, clockwork.NewRealClock())
	if err != nil {
		logging.Log.Errorf("failed to build services: %v", err)
		panic("failed to build services")
	}
	defer services.Close()

	if _, err := services.Settings.Load(context.Background()); err != nil {
		logging.Log.Warnf("SETTINGS: could not load settings at startup: %v", err)
	}
	if s.config.SweepOnStartup {
		services.Sweep.Start()
	}

	r := Router(services)

	//Do not run lambda helper locally
	if os.Getenv("APP_ENV") == "local" {
		startLocal(r, s.config.Port)
	} else {
		startLambda(r)
	}
}

// StartLambda sets up for AWS Lambda
func startLambda(engine *gin.Engine) {
	ginLambda := ginadapter.NewV2(engine)

	handler := func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		logging.Log.Infof("Lambda handler triggered on path: %s", req.RawPath)
		return ginLambda.ProxyWithContext(ctx, req)
	}

	logging.Log.Info("Starting lambda")
	lambda.Start(handler)
}

// StartLocal starts a normal HTTP server on the configured port
func startLocal(engine *gin.Engine, port int) {
	logging.Log.Info(fmt.Sprintf("Starting server on http://localhost:%d", port))

	if err := engine.Run(fmt.Sprintf(":%d", port)); err != nil {
		logging.Log.Fatalf("Failed to run server: %v", err)
	}
}
