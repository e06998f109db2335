package config

import (
	"flag"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	keyServerURL = "server_url"
	keyName      = "name"
	keyLogFile   = "log_file"
)

// ClientConfig holds the terminal client settings.
type ClientConfig struct {
	ServerURL string
	Name      string
	LogLevel  string
	LogFile   string
}

// DefaultClient returns the client defaults.
func DefaultClient() ClientConfig {
	return ClientConfig{
		ServerURL: "http://localhost:8080",
		LogLevel:  "info",
	}
}

// LoadClient reads an optional .env file and CHAT_* environment variables,
// then applies command-line flags from args on top.
func LoadClient(args []string) (*ClientConfig, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("chat")
	v.AutomaticEnv()

	return ClientFromViper(v, args)
}

// ClientFromViper resolves the client config from v and args. Flags win over
// v, which wins over the defaults.
func ClientFromViper(v *viper.Viper, args []string) (*ClientConfig, error) {
	defaults := DefaultClient()
	v.SetDefault(keyServerURL, defaults.ServerURL)
	v.SetDefault(keyLogLevel, defaults.LogLevel)

	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	serverURL := fs.String("server", v.GetString(keyServerURL), "chat server base URL (CHAT_SERVER_URL)")
	name := fs.String("name", v.GetString(keyName), "nickname shown to the room (CHAT_NAME)")
	logLevel := fs.String("log-level", v.GetString(keyLogLevel), "log level (CHAT_LOG_LEVEL)")
	logFile := fs.String("log-file", v.GetString(keyLogFile), "write logs to this file (CHAT_LOG_FILE)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := ClientConfig{
		ServerURL: strings.TrimSpace(*serverURL),
		Name:      strings.TrimSpace(*name),
		LogLevel:  strings.TrimSpace(*logLevel),
		LogFile:   strings.TrimSpace(*logFile),
	}
	if cfg.ServerURL == "" {
		cfg.ServerURL = defaults.ServerURL
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaults.LogLevel
	}
	return &cfg, nil
}
