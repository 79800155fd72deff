package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	KeyLogLevel             = "logLevel"
	KeyWorkers              = "workers"
	KeyServiceAddr          = "serviceAddr"
	KeyMCPAddr              = "mcpAddr"
	KeyCorsAllowedOrigins   = "corsAllowedOrigins"
	KeyCorsAllowedHeaders   = "corsAllowedHeaders"
	KeyCorsAllowCredentials = "corsAllowCredentials"
	EnvPrefix               = "gdgraph"
)

var HomeDir string
var DefaultConfigDir string

func InitConfig() {
	var err error
	HomeDir, err = os.UserHomeDir()
	if err != nil {
		panic(err)
	}
	DefaultConfigDir = filepath.Join(HomeDir, ".gdgraph")
}

func InitViper() {
	viper.SetDefault(KeyLogLevel, "")
	viper.SetDefault(KeyWorkers, 0)
	viper.SetDefault(KeyServiceAddr, ":8080")
	viper.SetDefault(KeyMCPAddr, ":7777")

	viper.SetConfigType("json")
	viper.SetConfigName("config")
	viper.AddConfigPath(DefaultConfigDir)
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; rely on defaults and environment.
		} else {
			panic("cannot read config: " + err.Error())
		}
	}
	// set prefix "gdgraph" for environment variables
	// the environment variables then have to match pattern "gdgraph_<viper variable>", lower or uppercase
	viper.SetEnvPrefix(EnvPrefix)

	// bind viper variables to environment variables
	_ = viper.BindEnv(KeyLogLevel)             // env variable name = GDGRAPH_LOGLEVEL
	_ = viper.BindEnv(KeyWorkers)              // env variable name = GDGRAPH_WORKERS
	_ = viper.BindEnv(KeyServiceAddr)          // env variable name = GDGRAPH_SERVICEADDR
	_ = viper.BindEnv(KeyMCPAddr)              // env variable name = GDGRAPH_MCPADDR
	_ = viper.BindEnv(KeyCorsAllowedOrigins)   // env variable name = GDGRAPH_CORSALLOWEDORIGINS
	_ = viper.BindEnv(KeyCorsAllowedHeaders)   // env variable name = GDGRAPH_CORSALLOWEDHEADERS
	_ = viper.BindEnv(KeyCorsAllowCredentials) // env variable name = GDGRAPH_CORSALLOWCREDENTIALS
}
