// Command authkit-demo runs the passwordless auth service against a real
// Redis, configured from the environment. It serves the same endpoints as
// examples/http-minimal and is meant for manual poking at a deployment-like
// setup, not production.
//
// Configuration (environment variables, or config.yaml in ./config):
//
//	AUTHKIT_REDIS_ADDR       Redis address (default localhost:6379)
//	AUTHKIT_ACCESS_SECRET    access token HMAC secret (required)
//	AUTHKIT_REFRESH_SECRET   refresh token HMAC secret (required)
//	AUTHKIT_BASE_URL         base URL for magic links (default http://localhost:8080)
//	AUTHKIT_LISTEN_ADDR      HTTP listen address (default :8080)
//	AUTHKIT_LOG_LEVEL        logrus level (default info)
package main

import (
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	authkit "github.com/fieldday/authkit"
)

func init() {
	viper.SetEnvPrefix("authkit")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	_ = viper.ReadInConfig() // optional, env vars win

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("base.url", "http://localhost:8080")
	viper.SetDefault("listen.addr", ":8080")
	viper.SetDefault("log.level", "info")
}

func main() {
	logger := logrus.New()
	if level, err := logrus.ParseLevel(viper.GetString("log.level")); err == nil {
		logger.SetLevel(level)
	}

	accessSecret := viper.GetString("access.secret")
	refreshSecret := viper.GetString("refresh.secret")
	if accessSecret == "" || refreshSecret == "" {
		logger.Fatal("AUTHKIT_ACCESS_SECRET and AUTHKIT_REFRESH_SECRET are required")
	}

	rdb := redis.NewClient(&redis.Options{Addr: viper.GetString("redis.addr")})
	defer rdb.Close()

	cfg := authkit.DefaultConfig()
	cfg.Token.AccessSecret = []byte(accessSecret)
	cfg.Token.RefreshSecret = []byte(refreshSecret)
	cfg.MagicLink.BaseURL = viper.GetString("base.url")

	svc, err := authkit.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithLogger(logger).
		WithUserDirectory(newMemoryDirectory()).
		WithAuditSink(authkit.NewJSONWriterSink(logger.Writer())).
		Build()
	if err != nil {
		logger.Fatal(err)
	}
	defer svc.Close()

	addr := viper.GetString("listen.addr")
	logger.WithField("addr", addr).Info("authkit demo listening")
	logger.Fatal(listenAndServe(addr, svc, logger))
}
