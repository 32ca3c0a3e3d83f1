package api

import (
	"sync"
	"time"

	"github.com/alex-pricope/art-contest-voting/api/transport"
	"github.com/alex-pricope/art-contest-voting/contest"
	"github.com/alex-pricope/art-contest-voting/hosting"
	"github.com/alex-pricope/art-contest-voting/identity"
	"github.com/alex-pricope/art-contest-voting/logging"
	"github.com/spf13/viper"
)

const (
	DriverDynamo = "dynamo"
	DriverMemory = "memory"
)

type Config struct {
	StorageConfig
	ServerConfig
	ContestConfig
	AdminConfig
	HostingConfig hosting.Config
}

type StorageConfig struct {
	Driver               string
	Endpoint             string
	Region               string
	TableNameSubmissions string
	TableNameUsers       string
	TableNameSettings    string
}

type ServerConfig struct {
	Port      int
	Mode      string
	PublicURL string
	// AllowedOrigins may send credentialed cross-origin requests. Defaults to the origin of PublicURL.
	AllowedOrigins []string
	LogLevel       string
}

type ContestConfig struct {
	Timezone              string
	ResetHour             int
	ResetMinute           int
	PollInterval          time.Duration
	WatchIdleTimeout      time.Duration
	SweepOnStartup        bool
	Theme                 string
	MaxVotes              int
	MaxRefreshes          int
	ShowLeaderboardImages bool
}

type AdminConfig struct {
	SessionSecret string
	Accounts      []identity.Account
}

func (c ContestConfig) Defaults() contest.Defaults {
	return contest.Defaults{
		Theme:                 c.Theme,
		MaxVotes:              c.MaxVotes,
		MaxRefreshes:          c.MaxRefreshes,
		ShowLeaderboardImages: c.ShowLeaderboardImages,
	}
}

var settingsOnce sync.Once

func ReadConfig() *Config {
	var conf = &Config{
		StorageConfig: StorageConfig{
			Driver:   getStringOrDefault("storage.driver", DriverDynamo),
			Endpoint: getStringOrDefault("storage.endpoint", ""),
			Region:   getStringOrDefault("storage.region", ""),
		},
		ServerConfig: ServerConfig{
			Port:      getIntOrDefault("server.port", 8080),
			Mode:      getStringOrDefault("server.mode", "debug"),
			PublicURL: getStringOrDefault("server.publicURL", "http://localhost:8080"),
			LogLevel:  getStringOrDefault("log.level", "debug"),
		},
		ContestConfig: ContestConfig{
			Timezone:              getStringOrDefault("contest.timezone", contest.DefaultTimezone),
			ResetHour:             getIntOrDefault("contest.resetHour", 23),
			ResetMinute:           getIntOrDefault("contest.resetMinute", 59),
			PollInterval:          getDurationOrDefault("contest.pollInterval", time.Minute),
			WatchIdleTimeout:      getDurationOrDefault("contest.watchIdleTimeout", 30*time.Minute),
			SweepOnStartup:        getBoolOrDefault("contest.sweepOnStartup", false),
			Theme:                 getStringOrDefault("contest.theme", "Art Contest"),
			MaxVotes:              getIntOrDefault("contest.maxVotes", 5),
			MaxRefreshes:          getIntOrDefault("contest.maxRefreshes", 15),
			ShowLeaderboardImages: getBoolOrDefault("contest.showLeaderboardImages", true),
		},
		AdminConfig: AdminConfig{
			SessionSecret: getStringOrDefault("admin.sessionSecret", ""),
		},
		HostingConfig: hosting.Config{
			Owner:  getStringOrDefault("hosting.owner", ""),
			Repo:   getStringOrDefault("hosting.repo", ""),
			Branch: getStringOrDefault("hosting.branch", hosting.DefaultBranch),
			Path:   getStringOrDefault("hosting.path", hosting.DefaultPath),
			APIURL: getStringOrDefault("hosting.apiURL", ""),
			RawURL: getStringOrDefault("hosting.rawURL", hosting.DefaultRawURL),
		},
	}

	conf.AllowedOrigins = getStringSliceOrDefault("server.allowedOrigins", []string{transport.OriginOf(conf.PublicURL)})

	// Table names are only needed when talking to DynamoDB.
	if conf.Driver == DriverDynamo {
		conf.TableNameSubmissions = getString("storage.TableNameSubmissions")
		conf.TableNameUsers = getString("storage.TableNameUsers")
		conf.TableNameSettings = getString("storage.TableNameSettings")
	}

	if err := viper.UnmarshalKey("admin.accounts", &conf.Accounts); err != nil {
		logging.Log.Fatalf("invalid 'admin.accounts': %v", err)
	}

	settingsOnce.Do(func() {
		logging.Log.Print("Reading settings!")
	})

	return conf
}

func getString(name string) string {
	if viper.IsSet(name) {
		v := viper.GetString(name)
		logging.Log.Printf("found '%s' in viper", name)
		return v
	}
	logging.Log.Fatalf("required environment variable '%s' is missing", name)
	return ""
}

func getIntOrDefault(name string, def int) int {
	if viper.IsSet(name) {
		v := viper.GetInt(name)
		logging.Log.Printf("found '%s' in viper", name)
		return v
	}
	logging.Log.Printf("could not find '%s' in viper! Returning default", name)
	return def
}

func getBoolOrDefault(name string, def bool) bool {
	if viper.IsSet(name) {
		v := viper.GetBool(name)
		logging.Log.Printf("found '%s' in viper", name)
		return v
	}
	logging.Log.Printf("could not find '%s' in viper! Returning default", name)
	return def
}

func getStringOrDefault(name string, def string) string {
	if viper.IsSet(name) {
		v := viper.GetString(name)
		logging.Log.Printf("found '%s' in viper", name)
		return v
	}
	logging.Log.Printf("could not find '%s' in viper! Returning default", name)
	return def
}

func getStringSliceOrDefault(name string, def []string) []string {
	if viper.IsSet(name) {
		v := viper.GetStringSlice(name)
		logging.Log.Printf("found '%s' in viper", name)
		return v
	}
	logging.Log.Printf("could not find '%s' in viper! Returning default", name)
	return def
}

func getDurationOrDefault(name string, def time.Duration) time.Duration {
	if viper.IsSet(name) {
		v := viper.GetDuration(name)
		logging.Log.Printf("found '%s' in viper", name)
		return v
	}
	logging.Log.Printf("could not find '%s' in viper! Returning default", name)
	return def
}
