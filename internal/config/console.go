package config

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/charmbracelet/log"

	"essops/internal/auth"
	"essops/internal/support"
)

const (
	DefaultAdminDBPath      = "/opt/element-ess/data/admin/admin.db"
	DefaultComposeFilePath  = "/opt/element-ess/docker-compose.yml"
	DefaultSynapseAdminAPI  = "http://synapse:8008/_synapse/admin/v1"
	DefaultAdminUsername    = "admin"
	DefaultAdminPassword    = "admin123"
	DefaultConsoleHost      = "0.0.0.0"
	DefaultConsolePort      = 8888
	sessionSecretByteLength = 32
)

// Console holds the admin console settings, sourced from the environment.
type Console struct {
	DBDriver string
	DBPath   string
	DBDSN    string

	AdminUsername string
	AdminPassword string
	SessionSecret []byte

	ComposeFilePath string
	ComposeBinary   string

	SynapseAdminAPI   string
	SynapseAdminToken string
	MatrixServerName  string

	GeoIPDBPath string
	LogLevel    string
	Debug       bool
}

// LoadConsole reads the console environment. A missing or too short
// ADMIN_JWT_SECRET is replaced by a random secret, so sessions do not survive
// a restart.
func LoadConsole() Console {
	cfg := Console{
		DBDriver:          support.GetEnv("ADMIN_DB_DRIVER", "sqlite"),
		DBPath:            support.GetEnv("ADMIN_DB_PATH", DefaultAdminDBPath),
		DBDSN:             support.GetEnv("ADMIN_DB_DSN", ""),
		AdminUsername:     support.GetEnv("ADMIN_USERNAME", DefaultAdminUsername),
		AdminPassword:     support.GetEnv("ADMIN_PASSWORD", DefaultAdminPassword),
		ComposeFilePath:   support.GetEnv("DOCKER_COMPOSE_PATH", DefaultComposeFilePath),
		ComposeBinary:     support.GetEnv("COMPOSE_BINARY", DefaultComposeBinary),
		SynapseAdminAPI:   support.GetEnv("SYNAPSE_ADMIN_API", DefaultSynapseAdminAPI),
		SynapseAdminToken: support.GetEnv("SYNAPSE_ADMIN_TOKEN", ""),
		MatrixServerName:  support.GetEnv("MATRIX_SERVER_NAME", ""),
		GeoIPDBPath:       support.GetEnv("GEOIP_DB_PATH", ""),
		LogLevel:          support.GetEnv("LOG_LEVEL", "info"),
		Debug:             support.GetEnvBool("ADMIN_DEBUG", false),
	}

	switch secret := support.GetEnv("ADMIN_JWT_SECRET", ""); {
	case secret == "":
		cfg.SessionSecret = randomSecret()
		log.Warn("ADMIN_JWT_SECRET not set, generated an ephemeral session secret")
	case len(secret) < auth.MinSecretBytes:
		cfg.SessionSecret = randomSecret()
		log.Warn("ADMIN_JWT_SECRET is too short, generated an ephemeral session secret", "min_bytes", auth.MinSecretBytes)
	default:
		cfg.SessionSecret = []byte(secret)
	}

	return cfg
}

func randomSecret() []byte {
	buf := make([]byte, sessionSecretByteLength)
	if _, err := rand.Read(buf); err != nil {
		log.Fatal("failed to generate session secret", "error", err)
	}
	return []byte(hex.EncodeToString(buf))
}
