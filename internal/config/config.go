package config

// Config holds server configuration values.
type Config struct {
	Port       int    `mapstructure:"port" yaml:"port"`
	MaxClients int    `mapstructure:"max_clients" yaml:"max_clients"`
	MaxPayload int    `mapstructure:"max_payload" yaml:"max_payload"`
	LogLevel   string `mapstructure:"log_level" yaml:"log_level"`
}

// Default returns configuration with reasonable starter defaults.
// The port has no default: the -p flag is required on the command line.
func Default() Config {
	return Config{
		MaxClients: 64,
		MaxPayload: 4096,
		LogLevel:   "info",
	}
}
