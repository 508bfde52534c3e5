package configs

import (
	"flag"
	"os"

	"github.com/hilthontt/forum/internal/infrastructure/env"
)

// DetermineConfigPath resolves the config file from -config, FORUM_CONFIG or
// a list of well-known locations. An empty result means "defaults only".
func DetermineConfigPath(fs *flag.FlagSet, args []string) string {
	var configPath string

	fs.StringVar(&configPath, "config", "", "path to config file")
	_ = fs.Parse(args)

	if configPath == "" {
		configPath = env.GetString("FORUM_CONFIG", "")
	}

	if configPath == "" {
		candidates := []string{
			"./config.yaml",
			"./config.yml",
			"../../config.yaml", // keep for local dev
			"/etc/forum/config.yaml",
		}

		for _, p := range candidates {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}

	return configPath
}
