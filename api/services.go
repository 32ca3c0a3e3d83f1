package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/alex-pricope/art-contest-voting/contest"
	"github.com/alex-pricope/art-contest-voting/hosting"
	"github.com/alex-pricope/art-contest-voting/identity"
	"github.com/alex-pricope/art-contest-voting/logging"
	"github.com/alex-pricope/art-contest-voting/metrics"
	"github.com/alex-pricope/art-contest-voting/pairing"
	"github.com/alex-pricope/art-contest-voting/quota"
	"github.com/alex-pricope/art-contest-voting/scheduler"
	"github.com/alex-pricope/art-contest-voting/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Stores groups the four document collections.
type Stores struct {
	Submissions storage.SubmissionStorage
	Users       storage.UserStorage
	Settings    storage.SettingsStorage
	Leaderboard storage.LeaderboardStorage
}

// Services is everything the HTTP surface and the CLI commands share.
type Services struct {
	Config      *Config
	Clock       clockwork.Clock
	Stores      Stores
	Zone        *contest.Zone
	Settings    *contest.SettingsService
	Leaderboard *contest.LeaderboardService
	Quota       *quota.Manager
	Watchers    *quota.Watchers
	Identity    *identity.Provider
	Hosting     hosting.Store
	Registry    *prometheus.Registry
	Metrics     *metrics.Metrics
	Sweep       *scheduler.DailyTask
}

func NewStores(ctx context.Context, conf StorageConfig) (Stores, error) {
	switch conf.Driver {
	case DriverMemory:
		logging.Log.Warn("STORAGE: using in-memory storage, data is lost on restart")
		mem := storage.NewMemory()
		return Stores{
			Submissions: mem.Submissions(),
			Users:       mem.Users(),
			Settings:    mem.Settings(),
			Leaderboard: mem.Leaderboard(),
		}, nil
	case DriverDynamo, "":
		var opts []func(*awsconfig.LoadOptions) error
		if conf.Region != "" {
			opts = append(opts, awsconfig.WithRegion(conf.Region))
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			logging.Log.Errorf("failed to load AWS config: %v", err)
			return Stores{}, err
		}
		client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
			if conf.Endpoint != "" {
				o.BaseEndpoint = aws.String(conf.Endpoint)
			}
		})
		return Stores{
			Submissions: &storage.DynamoSubmissionStorage{Client: client, TableName: conf.TableNameSubmissions},
			Users:       &storage.DynamoUserStorage{Client: client, TableName: conf.TableNameUsers},
			Settings:    &storage.DynamoSettingsStorage{Client: client, TableName: conf.TableNameSettings},
			Leaderboard: storage.NewDynamoLeaderboardStorage(client, conf.TableNameSettings),
		}, nil
	default:
		return Stores{}, fmt.Errorf("unknown storage driver '%s'", conf.Driver)
	}
}

func NewServices(ctx context.Context, conf *Config, clock clockwork.Clock) (*Services, error) {
	stores, err := NewStores(ctx, conf.StorageConfig)
	if err != nil {
		return nil, err
	}
	return NewServicesWithStores(conf, clock, stores), nil
}

// NewServicesWithStores wires the domain services on top of already built stores.
func NewServicesWithStores(conf *Config, clock clockwork.Clock, stores Stores) *Services {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	zone := contest.NewZone(clock, conf.Timezone)
	settings := contest.NewSettingsService(stores.Settings, conf.Defaults(), zone)
	manager := quota.NewManager(stores.Users, stores.Submissions, settings, pairing.NewSelector(nil), zone, m)

	interval := conf.PollInterval
	if interval <= 0 {
		interval = time.Minute
	}

	s := &Services{
		Config:      conf,
		Clock:       clock,
		Stores:      stores,
		Zone:        zone,
		Settings:    settings,
		Leaderboard: contest.NewLeaderboardService(stores.Submissions, stores.Leaderboard, zone),
		Quota:       manager,
		Watchers:    quota.NewWatchers(manager, clock, interval, conf.WatchIdleTimeout),
		Identity:    identity.NewProvider(conf.Accounts, clock),
		Hosting:     hosting.NewGitHubStore(conf.HostingConfig, clock, &http.Client{Timeout: 30 * time.Second}),
		Registry:    registry,
		Metrics:     m,
		Sweep:       scheduler.NewDailyTask("daily sweep", clock, zone.Location(), conf.ResetHour, conf.ResetMinute, manager.Sweep),
	}
	s.Identity.Subscribe(s.onPrincipalChange)
	return s
}

// The sweep stays armed while at least one administrator is signed in.
func (s *Services) onPrincipalChange(event identity.Event) {
	if event.Active > 0 {
		if s.Sweep.Start() {
			logging.Log.Infof("SWEEP: armed after sign-in of '%s'", event.Principal.Email)
		}
		return
	}
	if s.Config.SweepOnStartup {
		return
	}
	s.Sweep.Stop()
	logging.Log.Info("SWEEP: disarmed, no administrator signed in")
}

func (s *Services) Close() {
	s.Sweep.Stop()
	s.Watchers.StopAll()
}
