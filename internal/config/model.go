// internal/config/model.go
//
// Typed configuration model for the OAI-PMH provider.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                       – dotenv values,
//   • `conf/global.yaml`                    – primary static file,
//   • `OAI_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with `vault:` is resolved through the
// Vault client before validation, so the model never keeps Vault URIs once
// Load returns.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Defaults() seeds every optional field so a sparse YAML file works.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr   string        `koanf:"listen_addr"   validate:"required,hostname_port"`
	ForceHTTPS   bool          `koanf:"force_https"`
	ReadTimeout  time.Duration `koanf:"read_timeout"  validate:"gt=0"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"  validate:"gt=0"`
}

//
// Database section
//

// Database holds the DSN template and its secret.
//
// The DSN stays in YAML so operators can tweak host, port, or flags.  The
// password is usually a `vault:` reference and is injected at runtime.
type Database struct {
	DSN          string `koanf:"dsn"            validate:"required"`
	Password     string `koanf:"password"`
	MaxOpenConns int    `koanf:"max_open_conns" validate:"gte=1"`
	MaxIdleConns int    `koanf:"max_idle_conns" validate:"gte=0"`
	Migrate      bool   `koanf:"migrate"`
}

//
// Log section
//

// Log controls the file logger.
type Log struct {
	Dir   string `koanf:"dir"`
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

//
// OAI section
//

// OAI holds protocol tunables.
type OAI struct {
	Path           string        `koanf:"path"             validate:"required,startswith=/"`
	BaseURL        string        `koanf:"base_url"         validate:"required,url"`
	SchemaBaseURI  string        `koanf:"schema_base_uri"  validate:"required,url"`
	ResultsPerPage int           `koanf:"results_per_page" validate:"gte=1,lte=10000"`
	TokenTTL       time.Duration `koanf:"token_ttl"        validate:"gt=0"`
	Workers        int           `koanf:"workers"          validate:"gte=1,lte=64"`
}

//
// Repository section (first-boot seed values)
//

// Repository seeds the settings row when it does not exist yet.  After
// first boot the row is owned by the admin API.
type Repository struct {
	Name              string `koanf:"name"               validate:"required"`
	Identifier        string `koanf:"identifier"         validate:"required,hostname_rfc1123"`
	AdminEmail        string `koanf:"admin_email"        validate:"required,email"`
	HarvestingEnabled bool   `koanf:"harvesting_enabled"`
}

// Format describes one default metadata format seeded at boot.
type Format struct {
	Prefix    string `koanf:"prefix"     validate:"required"`
	Namespace string `koanf:"namespace"  validate:"required,uri"`
	SchemaURL string `koanf:"schema_url" validate:"required,url"`
}

//
// XSLT section
//

// XSLT configures the external transformer.
type XSLT struct {
	Binary    string        `koanf:"binary"     validate:"required"`
	WorkDir   string        `koanf:"work_dir"`
	CacheSize int           `koanf:"cache_size" validate:"gte=1"`
	CacheTTL  time.Duration `koanf:"cache_ttl"  validate:"gt=0"`
	Timeout   time.Duration `koanf:"timeout"    validate:"gt=0"`
}

//
// Admin + GeoIP sections
//

// Admin protects the administrative REST surface.  An empty token leaves the
// surface unmounted.
type Admin struct {
	Token string `koanf:"token"`
}

// GeoIP points at an optional GeoLite2 database used for access logs.
type GeoIP struct {
	Path string `koanf:"path"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads.
type Config struct {
	HTTP       HTTP       `koanf:"http"`
	Database   Database   `koanf:"database"`
	Log        Log        `koanf:"log"`
	OAI        OAI        `koanf:"oai"`
	Repository Repository `koanf:"repository"`
	Formats    []Format   `koanf:"formats"    validate:"dive"`
	XSLT       XSLT       `koanf:"xslt"`
	Admin      Admin      `koanf:"admin"`
	GeoIP      GeoIP      `koanf:"geoip"`
	Paths      Paths      `koanf:"-"`
}

// Defaults returns a Config with every optional field populated.  Load
// unmarshals YAML and env on top of it.
func Defaults() Config {
	return Config{
		HTTP: HTTP{
			ListenAddr:   ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: Database{
			MaxOpenConns: 15,
			MaxIdleConns: 5,
			Migrate:      true,
		},
		Log: Log{Level: "info"},
		OAI: OAI{
			Path:           "/oai",
			ResultsPerPage: 10,
			TokenTTL:       7 * 24 * time.Hour,
			Workers:        4,
		},
		Repository: Repository{HarvestingEnabled: true},
		Formats: []Format{{
			Prefix:    "oai_dc",
			Namespace: "http://www.openarchives.org/OAI/2.0/oai_dc/",
			SchemaURL: "http://www.openarchives.org/OAI/2.0/oai_dc.xsd",
		}},
		XSLT: XSLT{
			Binary:    "xsltproc",
			CacheSize: 128,
			CacheTTL:  time.Hour,
			Timeout:   30 * time.Second,
		},
	}
}
