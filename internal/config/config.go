package config

import "time"

type Config interface {
	EnvConfig
	ClientConfig
}

type EnvConfig interface {
	GetAppName() string
	GetDataFolder() string
	GetEnv() string
}

type ClientConfig interface {
	GetBaseURL() string
	GetRequestTimeout() time.Duration
	GetStorageNamespace() string
}

type mainConfig struct {
	EnvVars
	ClientVars
}

func New() Config {
	return mainConfig{}
}
