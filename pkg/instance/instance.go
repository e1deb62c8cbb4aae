package instance

import (
	"os"

	"github.com/angelmondragon/eshoplite-backend/pkg/env"
)

// ID identifies this process in logs when several replicas run side by side.
// ESHOPLITE_INSTANCE_ID wins, then the hostname.
func ID() string {
	if id := env.Get("ESHOPLITE_INSTANCE_ID", ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "eshoplite-0"
}
