package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	LogConfig struct {
		Level  string // debug | info | warn | error
		Format string // json | console
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	ServerConfig struct {
		Host               string
		Port               string
		DebugHost          string
		JWTExpirationDelta time.Duration
		ShutdownTimeout    time.Duration
	}

	TicketConfig struct {
		// SigningKey signs QR tokens. Tickets stay valid across SecretKey rotations once it is set.
		SigningKey          string
		DefaultEmailSubject string
		APIKeyTTL           time.Duration
		QRSize              int
	}

	Config struct {
		Debug            bool
		TestMode         bool
		AppName          string
		Env              string
		Build            string
		SecretKey        string
		DefaultFromEmail string
		SendgridApiKey   string
		RollbarToken     string
		FrontendBaseURL  string

		Log      LogConfig
		Database DatabaseConfig
		Server   ServerConfig
		Ticket   TicketConfig
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

func (sc ServerConfig) Address() string {
	return net.JoinHostPort(sc.Host, sc.Port)
}

// DefaultFromAddress parses DefaultFromEmail ("Name <addr>" or "addr").
func (c *Config) DefaultFromAddress() mail.Address {
	if addr, err := mail.ParseAddress(c.DefaultFromEmail); err == nil {
		return *addr
	}
	return mail.Address{Name: c.AppName, Address: c.DefaultFromEmail}
}

// NewConfig reads the configuration from the environment.
// Variables are prefixed with the value of ENV (DEV by default), e.g. DEV_DATABASE_HOST.
// config/.env.<env> is loaded first when present.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Bed")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "n8c7-q2@x)v1k$+r0=tz&hb3e(w!m)#*p4(#ua9j^$lsd5fo")
	v.SetDefault("defaultFromEmail", "Bedayia Tickets <noreply@localhost>")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "bed")
	v.SetDefault("database.user", "bed")
	v.SetDefault("database.password", "bed")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("server.host", "")
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.debugHost", "localhost:4000")
	v.SetDefault("server.jwtExpirationDelta", 24*time.Hour)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)

	v.SetDefault("ticket.defaultEmailSubject", "BIS Tickets")
	v.SetDefault("ticket.apiKeyTTL", 90*24*time.Hour)
	v.SetDefault("ticket.qrSize", 256)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	case "PROD":
		v.SetDefault("debug", false)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		Env:              env,
		Build:            v.GetString("build"),
		SecretKey:        v.GetString("secretKey"),
		DefaultFromEmail: v.GetString("defaultFromEmail"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Server: ServerConfig{
			Host:               v.GetString("server.host"),
			Port:               v.GetString("server.port"),
			DebugHost:          v.GetString("server.debugHost"),
			JWTExpirationDelta: v.GetDuration("server.jwtExpirationDelta"),
			ShutdownTimeout:    v.GetDuration("server.shutdownTimeout"),
		},
		Ticket: TicketConfig{
			SigningKey:          v.GetString("ticket.signingKey"),
			DefaultEmailSubject: v.GetString("ticket.defaultEmailSubject"),
			APIKeyTTL:           v.GetDuration("ticket.apiKeyTTL"),
			QRSize:              v.GetInt("ticket.qrSize"),
		},
	}
}

// TicketSigningKey returns the key QR tokens are signed with, falling back to SecretKey when no
// dedicated key is configured.
func (c *Config) TicketSigningKey() string {
	if c.Ticket.SigningKey != "" {
		return c.Ticket.SigningKey
	}
	return c.SecretKey
}

// NewTestConfig returns a Config suitable for tests. It does not read the environment.
func NewTestConfig() *Config {
	return &Config{
		TestMode:         true,
		AppName:          "Bed",
		Env:              "TEST",
		Build:            "test",
		SecretKey:        "test-secret",
		DefaultFromEmail: "Bedayia Tickets <noreply@test.test>",
		Log:              LogConfig{Level: "error", Format: "console"},
		Server:           ServerConfig{JWTExpirationDelta: 24 * time.Hour, ShutdownTimeout: time.Second},
		Ticket: TicketConfig{
			SigningKey:          "test-ticket-key",
			DefaultEmailSubject: "BIS Tickets",
			APIKeyTTL:           90 * 24 * time.Hour,
			QRSize:              256,
		},
	}
}
