package instance

import (
	"os"

	"github.com/angelmondragon/storefront-backend/pkg/env"
)

// GetID names the running process in logs. The explicit override wins, then
// the platform dyno name, then the host name.
func GetID() string {
	if id := env.Get("STOREFRONT_INSTANCE_ID", env.Get("DYNO", "")); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
