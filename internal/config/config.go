package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/salary-disbursement/internal/common"
)

// Config is the explicit configuration value handed to pipeline construction.
type Config struct {
	Workdir    string
	Storage    StorageConfig
	Encryption EncryptionConfig
	Transfer   TransferConfig
	Gateway    GatewayConfig
	Validation ValidationConfig
	Approval   ApprovalConfig
	Notify     NotifyConfig
	Server     ServerConfig
	Inbox      InboxConfig
}

// StorageConfig locates the acknowledgement database.
type StorageConfig struct {
	Path string
}

// EncryptionConfig controls the optional gpg step.
type EncryptionConfig struct {
	PublicKeyPath string
	Binary        string
	Timeout       time.Duration
	Enabled       bool
}

// TransferConfig controls the rclone step.
type TransferConfig struct {
	Binary  string
	Remote  string
	Dest    string
	Timeout time.Duration
	Enabled bool
}

// GatewayConfig holds settlement gateway endpoints and credentials.
type GatewayConfig struct {
	BaseURL          string
	TokenURL         string
	ClientID         string
	ClientSecret     string
	Token            string
	Currency         string
	Timeout          time.Duration
	BreakerTimeout   time.Duration
	BreakerThreshold uint32
}

// ValidationConfig tunes the item-level rules.
type ValidationConfig struct {
	MaxAmount     int64
	EmployeeIDMin int
	EmployeeIDMax int
}

// ApprovalConfig lists the maker-checker checks in evaluation order.
type ApprovalConfig struct {
	Checks []string
}

// NotifyConfig controls acknowledgement files returned to the client.
type NotifyConfig struct {
	Dir     string
	Enabled bool
}

// ServerConfig controls the HTTP trigger surface.
type ServerConfig struct {
	Addr string
	// TLSCertDir enables HTTPS with a self-signed certificate kept there.
	TLSCertDir    string
	TLSHosts      []string
	CORSOrigins   []string
	MaxUploadSize int64
}

// InboxConfig controls drop-folder processing.
type InboxConfig struct {
	ProcessedDir string
}

// Approval check names.
const (
	CheckFunds  = "funds"
	CheckRoster = "roster"
)

// DefaultConfig returns a Config with the documented fallbacks.
func DefaultConfig() Config {
	return Config{
		Workdir: "~/.local/share/payrun/work",
		Storage: StorageConfig{Path: "~/.local/share/payrun/payrun.db"},
		Encryption: EncryptionConfig{
			Binary:  "gpg",
			Timeout: time.Minute,
		},
		Transfer: TransferConfig{
			Enabled: true,
			Binary:  "rclone",
			Timeout: 5 * time.Minute,
		},
		Gateway: GatewayConfig{
			Currency:         "NGN",
			Timeout:          30 * time.Second,
			BreakerThreshold: 5,
			BreakerTimeout:   30 * time.Second,
		},
		Validation: ValidationConfig{
			MaxAmount:     100000000,
			EmployeeIDMin: 4,
			EmployeeIDMax: 10,
		},
		Approval: ApprovalConfig{Checks: []string{CheckFunds, CheckRoster}},
		Notify:   NotifyConfig{Enabled: true},
		Server:   ServerConfig{Addr: ":8080", MaxUploadSize: 10 << 20},
	}
}

// SetDefaults registers the fallbacks on v so config files and env only override what they name.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("workdir", d.Workdir)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("encryption.enabled", d.Encryption.Enabled)
	v.SetDefault("encryption.binary", d.Encryption.Binary)
	v.SetDefault("encryption.timeout", d.Encryption.Timeout)
	v.SetDefault("transfer.enabled", d.Transfer.Enabled)
	v.SetDefault("transfer.binary", d.Transfer.Binary)
	v.SetDefault("transfer.timeout", d.Transfer.Timeout)
	v.SetDefault("gateway.currency", d.Gateway.Currency)
	v.SetDefault("gateway.timeout", d.Gateway.Timeout)
	v.SetDefault("gateway.breaker.max_failures", d.Gateway.BreakerThreshold)
	v.SetDefault("gateway.breaker.open_timeout", d.Gateway.BreakerTimeout)
	v.SetDefault("validation.max_amount", d.Validation.MaxAmount)
	v.SetDefault("validation.employee_id_min", d.Validation.EmployeeIDMin)
	v.SetDefault("validation.employee_id_max", d.Validation.EmployeeIDMax)
	v.SetDefault("approval.checks", d.Approval.Checks)
	v.SetDefault("notify.enabled", d.Notify.Enabled)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.max_upload_size", d.Server.MaxUploadSize)
}

// Load builds a Config from viper. Paths are expanded; derived directories are filled in.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Workdir: ExpandPath(v.GetString("workdir")),
		Storage: StorageConfig{Path: ExpandPath(v.GetString("storage.path"))},
		Encryption: EncryptionConfig{
			Enabled:       v.GetBool("encryption.enabled"),
			PublicKeyPath: ExpandPath(v.GetString("encryption.public_key_path")),
			Binary:        v.GetString("encryption.binary"),
			Timeout:       v.GetDuration("encryption.timeout"),
		},
		Transfer: TransferConfig{
			Enabled: v.GetBool("transfer.enabled"),
			Binary:  v.GetString("transfer.binary"),
			Remote:  v.GetString("transfer.remote"),
			Dest:    v.GetString("transfer.dest"),
			Timeout: v.GetDuration("transfer.timeout"),
		},
		Gateway: GatewayConfig{
			BaseURL:          strings.TrimRight(v.GetString("gateway.base_url"), "/"),
			TokenURL:         v.GetString("gateway.token_url"),
			ClientID:         v.GetString("gateway.client_id"),
			ClientSecret:     v.GetString("gateway.client_secret"),
			Token:            v.GetString("gateway.token"),
			Currency:         v.GetString("gateway.currency"),
			Timeout:          v.GetDuration("gateway.timeout"),
			BreakerThreshold: v.GetUint32("gateway.breaker.max_failures"),
			BreakerTimeout:   v.GetDuration("gateway.breaker.open_timeout"),
		},
		Validation: ValidationConfig{
			MaxAmount:     v.GetInt64("validation.max_amount"),
			EmployeeIDMin: v.GetInt("validation.employee_id_min"),
			EmployeeIDMax: v.GetInt("validation.employee_id_max"),
		},
		Approval: ApprovalConfig{Checks: v.GetStringSlice("approval.checks")},
		Notify: LoadNotify(v),
		Server: ServerConfig{
			Addr:          v.GetString("server.addr"),
			TLSCertDir:    ExpandPath(v.GetString("server.tls.cert_dir")),
			TLSHosts:      v.GetStringSlice("server.tls.hosts"),
			CORSOrigins:   v.GetStringSlice("server.cors_origins"),
			MaxUploadSize: v.GetInt64("server.max_upload_size"),
		},
		Inbox: InboxConfig{ProcessedDir: ExpandPath(v.GetString("inbox.processed_dir"))},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadNotify reads only the acknowledgement file settings, for commands that
// run without the full pipeline configuration. The directory defaults to
// <workdir>/acknowledgements.
func LoadNotify(v *viper.Viper) NotifyConfig {
	cfg := NotifyConfig{
		Enabled: v.GetBool("notify.enabled"),
		Dir:     ExpandPath(v.GetString("notify.dir")),
	}
	if workdir := ExpandPath(v.GetString("workdir")); cfg.Dir == "" && workdir != "" {
		cfg.Dir = filepath.Join(workdir, "acknowledgements")
	}
	return cfg
}

// Validate checks the configuration for values the pipeline cannot run without.
func (c *Config) Validate() error {
	if c.Workdir == "" {
		return fmt.Errorf("%w: workdir", common.ErrMissingConfig)
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("%w: storage.path", common.ErrMissingConfig)
	}
	if c.Encryption.Enabled && c.Encryption.PublicKeyPath == "" {
		return fmt.Errorf("%w: encryption.public_key_path is required when encryption is enabled", common.ErrMissingConfig)
	}
	if c.Encryption.Enabled && c.Encryption.Timeout <= 0 {
		return fmt.Errorf("%w: encryption.timeout must be positive, got %s", common.ErrInvalidConfig, c.Encryption.Timeout)
	}
	if c.Transfer.Enabled && c.Transfer.Remote == "" {
		return fmt.Errorf("%w: transfer.remote is required when transfer is enabled", common.ErrMissingConfig)
	}
	if c.Transfer.Enabled && c.Transfer.Timeout <= 0 {
		return fmt.Errorf("%w: transfer.timeout must be positive, got %s", common.ErrInvalidConfig, c.Transfer.Timeout)
	}
	if c.Validation.MaxAmount <= 0 {
		return fmt.Errorf("%w: validation.max_amount must be positive", common.ErrInvalidConfig)
	}
	if c.Validation.EmployeeIDMin <= 0 || c.Validation.EmployeeIDMax < c.Validation.EmployeeIDMin {
		return fmt.Errorf("%w: employee id bounds %d..%d", common.ErrInvalidConfig,
			c.Validation.EmployeeIDMin, c.Validation.EmployeeIDMax)
	}
	for _, check := range c.Approval.Checks {
		switch check {
		case CheckFunds, CheckRoster:
		default:
			return fmt.Errorf("%w: unknown approval check %q", common.ErrInvalidConfig, check)
		}
	}
	if c.Gateway.TokenURL != "" && (c.Gateway.ClientID == "" || c.Gateway.ClientSecret == "") {
		return fmt.Errorf("%w: gateway.client_id and gateway.client_secret are required with gateway.token_url", common.ErrMissingConfig)
	}
	return nil
}

// HasCheck reports whether the named approval check is enabled.
func (c *Config) HasCheck(name string) bool {
	for _, check := range c.Approval.Checks {
		if check == name {
			return true
		}
	}
	return false
}
