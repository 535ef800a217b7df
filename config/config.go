package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/slighter12/go-lib/database/postgres"
)

const (
	defaultPath               = "."
	defaultMaxRequestBodySize = "100KB"
	defaultWorkerPort         = 8081
	defaultSessionTTL         = 7 * 24 * time.Hour
	defaultCompanyCacheTTL    = time.Hour
	defaultMaxDocumentBytes   = 5 << 20
	defaultRemoteTimeout      = 15 * time.Second
)

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP struct {
		Port int `json:"port" yaml:"port"`
		// WorkerPort is where cmd/worker listens for pushed events.
		WorkerPort         int    `json:"workerPort" yaml:"workerPort"`
		MaxRequestBodySize string `json:"maxRequestBodySize" yaml:"maxRequestBodySize"`
		// AllowOrigins lists the front-end origins accepted by CORS.
		AllowOrigins []string `json:"allowOrigins" yaml:"allowOrigins"`
		Timeouts     struct {
			ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
	} `json:"http" yaml:"http"`

	Storage *StorageConfig `json:"storage" yaml:"storage"`

	Postgres *postgres.DBConn `json:"postgres" yaml:"postgres" mapstructure:"postgres"`

	Session *SessionConfig `json:"session" yaml:"session"`

	Company *CompanyConfig `json:"company" yaml:"company"`

	Wizard *WizardConfig `json:"wizard" yaml:"wizard"`

	// RemoteAPI configuration for the institution's registration API
	RemoteAPI *RemoteAPIConfig `json:"remoteApi" yaml:"remoteApi"`

	// Documents configuration for staged identity documents
	Documents *DocumentsConfig `json:"documents" yaml:"documents"`

	// Admin configuration for the review endpoints
	Admin *AdminConfig `json:"admin" yaml:"admin"`

	// Scheduling configuration for appointment rules
	Scheduling *SchedulingConfig `json:"scheduling" yaml:"scheduling"`

	// Firebase configuration for reviewer push notifications
	Firebase *FirebaseConfig `json:"firebase" yaml:"firebase"`

	// QRCode configuration for access-code QR codes
	QRCode *QRCodeConfig `json:"qrcode" yaml:"qrcode"`

	// PubSub configuration for event publishing
	PubSub *PubSubConfig `json:"pubsub" yaml:"pubsub"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// StorageConfig selects the slot store backend
type StorageConfig struct {
	// Driver is "memory" or "postgres"
	Driver      string `json:"driver" yaml:"driver"`
	AutoMigrate bool   `json:"autoMigrate" yaml:"autoMigrate"`
	// SlowQueryThreshold marks slot queries logged as slow; 0 disables
	SlowQueryThreshold time.Duration `json:"slowQueryThreshold" yaml:"slowQueryThreshold"`
}

// SessionConfig defines access session configuration
type SessionConfig struct {
	TTL time.Duration `json:"ttl" yaml:"ttl"`
}

// CompanyConfig defines verified company cache configuration
type CompanyConfig struct {
	CacheTTL time.Duration `json:"cacheTtl" yaml:"cacheTtl"`
	// ActiveMarkers are the estado values that allow exam registration
	ActiveMarkers []string `json:"activeMarkers" yaml:"activeMarkers"`
}

// WizardConfig defines exam wizard limits
type WizardConfig struct {
	MaxInsured          int      `json:"maxInsured" yaml:"maxInsured"`
	MaxDocumentBytes    int64    `json:"maxDocumentBytes" yaml:"maxDocumentBytes"`
	AllowedContentTypes []string `json:"allowedContentTypes" yaml:"allowedContentTypes"`
}

// RemoteAPIConfig defines the upstream API client configuration
type RemoteAPIConfig struct {
	BaseURL string        `json:"baseUrl" yaml:"baseUrl"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// OAuth2 client credentials; when ClientID is empty StaticToken is sent instead
	TokenURL     string   `json:"tokenUrl" yaml:"tokenUrl"`
	ClientID     string   `json:"clientId" yaml:"clientId"`
	ClientSecret string   `json:"clientSecret" yaml:"clientSecret"`
	Scopes       []string `json:"scopes" yaml:"scopes"`
	StaticToken  string   `json:"staticToken" yaml:"staticToken"`
}

// DocumentsConfig defines where uploaded documents are staged
type DocumentsConfig struct {
	// BucketURL is a gocloud blob URL, e.g. mem://, file:///var/citas, gs://bucket
	BucketURL string `json:"bucketUrl" yaml:"bucketUrl"`
	Prefix    string `json:"prefix" yaml:"prefix"`
}

// AdminConfig defines administrator JWT verification
type AdminConfig struct {
	JWTSecret string `json:"jwtSecret" yaml:"jwtSecret"`
	Issuer    string `json:"issuer" yaml:"issuer"`
	Role      string `json:"role" yaml:"role"`
	// ReviewerTokens are FCM device tokens notified when a new request arrives
	ReviewerTokens []string `json:"reviewerTokens" yaml:"reviewerTokens"`
}

// SchedulingConfig defines appointment scheduling rules
type SchedulingConfig struct {
	OpeningHour  int    `json:"openingHour" yaml:"openingHour"`
	ClosingHour  int    `json:"closingHour" yaml:"closingHour"`
	MaxDaysAhead int    `json:"maxDaysAhead" yaml:"maxDaysAhead"`
	TimeZone     string `json:"timeZone" yaml:"timeZone"`
}

// FirebaseConfig defines Firebase configuration for push notifications
type FirebaseConfig struct {
	ProjectID       string `json:"projectId" yaml:"projectId"`
	CredentialsPath string `json:"credentialsPath" yaml:"credentialsPath"`
}

// QRCodeConfig defines QR code generation configuration
type QRCodeConfig struct {
	Size                 int    `json:"size" yaml:"size"`
	ErrorCorrectionLevel string `json:"errorCorrectionLevel" yaml:"errorCorrectionLevel"`
	// ResumeURL is the front-end page that resumes a session from ?code=
	ResumeURL string `json:"resumeUrl" yaml:"resumeUrl"`
}

// PubSubConfig defines Pub/Sub configuration for event publishing
type PubSubConfig struct {
	// Provider type: "local" for local HTTP or "google" for Google Pub/Sub
	Provider string `json:"provider" yaml:"provider"`

	// Google Cloud project ID (for google provider)
	ProjectID string `json:"projectId" yaml:"projectId"`

	// Pub/Sub topic ID (for google provider)
	TopicID string `json:"topicId" yaml:"topicId"`

	// Local HTTP endpoint for development (for local provider)
	LocalEndpoint string `json:"localEndpoint" yaml:"localEndpoint"`

	// PushAudience is the audience of the push subscription's OIDC token.
	// Empty means the URL the worker was reached at.
	PushAudience string `json:"pushAudience" yaml:"pushAudience"`

	// PushServiceAccount, when set, must match the token's email claim.
	PushServiceAccount string `json:"pushServiceAccount" yaml:"pushServiceAccount"`
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			abs := filepath.Join(pwd, path)
			searchPaths = append(searchPaths, abs)
		}
	}

	// Try to find and load the config file
	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	// Load YAML config file
	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// Load environment variables
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Convert ENV_VAR_NAME to path and align each segment with existing YAML keys.
			// Example: POSTGRES_SSLMODE -> postgres.sslMode (not postgres.sslmode)
			key := canonicalizeEnvKey(k, existingConfigMap)

			return key, v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	// Unmarshal into the config struct (case-insensitive to match env vars)
	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				// Case-insensitive matching for env var overrides
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	if cfg.Postgres != nil {
		// Build replicas from environment variables (POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, etc.)
		cfg.Postgres.Replicas = buildReplicasFromEnv()
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.HTTP.MaxRequestBodySize) == "" {
		cfg.HTTP.MaxRequestBodySize = defaultMaxRequestBodySize
	}
	if cfg.HTTP.WorkerPort == 0 {
		cfg.HTTP.WorkerPort = defaultWorkerPort
	}

	if cfg.Storage == nil {
		cfg.Storage = &StorageConfig{}
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "memory"
	}
	if cfg.Storage.SlowQueryThreshold < 0 {
		cfg.Storage.SlowQueryThreshold = 0
	}

	if cfg.Session == nil {
		cfg.Session = &SessionConfig{}
	}
	if cfg.Session.TTL <= 0 {
		cfg.Session.TTL = defaultSessionTTL
	}

	if cfg.Company == nil {
		cfg.Company = &CompanyConfig{}
	}
	if cfg.Company.CacheTTL <= 0 {
		cfg.Company.CacheTTL = defaultCompanyCacheTTL
	}
	if len(cfg.Company.ActiveMarkers) == 0 {
		cfg.Company.ActiveMarkers = []string{"activo", "active", "vigente", "habilitado"}
	}

	if cfg.Wizard == nil {
		cfg.Wizard = &WizardConfig{}
	}
	if cfg.Wizard.MaxInsured <= 0 {
		cfg.Wizard.MaxInsured = 50
	}
	if cfg.Wizard.MaxDocumentBytes <= 0 {
		cfg.Wizard.MaxDocumentBytes = defaultMaxDocumentBytes
	}
	if len(cfg.Wizard.AllowedContentTypes) == 0 {
		cfg.Wizard.AllowedContentTypes = []string{"image/jpeg", "image/png", "application/pdf"}
	}

	if cfg.RemoteAPI == nil {
		cfg.RemoteAPI = &RemoteAPIConfig{}
	}
	if cfg.RemoteAPI.Timeout <= 0 {
		cfg.RemoteAPI.Timeout = defaultRemoteTimeout
	}

	if cfg.Documents == nil {
		cfg.Documents = &DocumentsConfig{}
	}
	if cfg.Documents.BucketURL == "" {
		cfg.Documents.BucketURL = "mem://"
	}

	if cfg.Admin == nil {
		cfg.Admin = &AdminConfig{}
	}
	if cfg.Admin.Role == "" {
		cfg.Admin.Role = "admin"
	}

	if cfg.Scheduling == nil {
		cfg.Scheduling = &SchedulingConfig{}
	}
	if cfg.Scheduling.ClosingHour <= cfg.Scheduling.OpeningHour {
		cfg.Scheduling.OpeningHour = 7
		cfg.Scheduling.ClosingHour = 16
	}
	if cfg.Scheduling.MaxDaysAhead <= 0 {
		cfg.Scheduling.MaxDaysAhead = 30
	}

	if cfg.QRCode == nil {
		cfg.QRCode = &QRCodeConfig{}
	}
	if cfg.QRCode.Size <= 0 {
		cfg.QRCode.Size = 256
	}

	if cfg.PubSub == nil {
		cfg.PubSub = &PubSubConfig{}
	}
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}

// buildReplicasFromEnv builds the replicas slice from environment variables.
// Environment variable format: POSTGRES_REPLICAS_{index}_{field}
// Example: POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, POSTGRES_REPLICAS_0_USERNAME, POSTGRES_REPLICAS_0_PASSWORD
func buildReplicasFromEnv() []postgres.ConnectionConfig {
	var replicas []postgres.ConnectionConfig

	for i := 0; ; i++ {
		prefix := "POSTGRES_REPLICAS_" + strconv.Itoa(i) + "_"

		host := os.Getenv(prefix + "HOST")
		port := os.Getenv(prefix + "PORT")
		if host == "" || port == "" {
			// No more replicas or incomplete configuration.
			break
		}

		replica := postgres.ConnectionConfig{
			Host:     host,
			Port:     port,
			UserName: os.Getenv(prefix + "USERNAME"),
			Password: os.Getenv(prefix + "PASSWORD"),
		}

		replicas = append(replicas, replica)
	}

	return replicas
}
