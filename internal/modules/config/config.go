package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	configDirENV      = "CONFIG_DIR"

	ReverseCloseAny      = "close_any"
	ReverseCloseOpposite = "close_opposite"

	PosModeNet       = "net"
	PosModeLongShort = "long_short"
)

// Config ...
type Config struct {
	Service struct {
		Host              string        `mapstructure:"host" yaml:"host"`
		Port              int           `mapstructure:"port" yaml:"port"`
		ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	} `mapstructure:"service" yaml:"service"`

	Log struct {
		Level string `mapstructure:"level" yaml:"level"`
	} `mapstructure:"log" yaml:"log"`

	OKX OKX `mapstructure:"okx" yaml:"okx"`

	Trading Trading `mapstructure:"trading" yaml:"trading"`

	Webhook struct {
		Path       string `mapstructure:"path" yaml:"path"`
		Passphrase string `mapstructure:"passphrase" yaml:"passphrase"`
	} `mapstructure:"webhook" yaml:"webhook"`

	Telegram struct {
		Token  string `mapstructure:"token" yaml:"token"`
		ChatID int64  `mapstructure:"chat_id" yaml:"chat_id"`
	} `mapstructure:"telegram" yaml:"telegram"`

	Tracing struct {
		Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
		Host    string `mapstructure:"host" yaml:"host"`
		Port    int    `mapstructure:"port" yaml:"port"`
	} `mapstructure:"tracing" yaml:"tracing"`

	warnings []string
}

type OKX struct {
	BaseURL    string `mapstructure:"base_url" yaml:"base_url"`
	APIKey     string `mapstructure:"api_key" yaml:"api_key"`
	APISecret  string `mapstructure:"api_secret" yaml:"api_secret"`
	Passphrase string `mapstructure:"passphrase" yaml:"passphrase"`
	// UID аккаунта, под который выданы ключи; при несовпадении — warning на старте
	AccountUID string        `mapstructure:"account_uid" yaml:"account_uid"`
	Demo       bool          `mapstructure:"demo" yaml:"demo"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	TdMode     string        `mapstructure:"td_mode" yaml:"td_mode"`   // cross | isolated
	PosMode    string        `mapstructure:"pos_mode" yaml:"pos_mode"` // net | long_short
	InstSuffix string        `mapstructure:"inst_suffix" yaml:"inst_suffix"`
	EquityCcy  string        `mapstructure:"equity_ccy" yaml:"equity_ccy"`
}

type Trading struct {
	DefaultLeverage float64 `mapstructure:"default_leverage" yaml:"default_leverage"`
	// доля equity, 0.01 => 1%. Старый MAX_RISK_PCT был в процентах (2 => 2%):
	// значения в (1, 100] переводятся в долю с warning на старте.
	DefaultRiskPct float64  `mapstructure:"default_risk_pct" yaml:"default_risk_pct"`
	MaxLeverage    float64  `mapstructure:"max_leverage" yaml:"max_leverage"`
	ReversePolicy  string   `mapstructure:"reverse_policy" yaml:"reverse_policy"`
	AllowedCoins   []string `mapstructure:"allowed_coins" yaml:"allowed_coins"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.host", "0.0.0.0")
	v.SetDefault("service.port", 8000)
	v.SetDefault("service.read_header_timeout", "5s")

	v.SetDefault("log.level", "info")

	v.SetDefault("okx.base_url", "https://www.okx.com")
	v.SetDefault("okx.timeout", "10s")
	v.SetDefault("okx.td_mode", "cross")
	v.SetDefault("okx.pos_mode", PosModeNet)
	v.SetDefault("okx.inst_suffix", "-USDT-SWAP")
	v.SetDefault("okx.equity_ccy", "USDT")

	v.SetDefault("trading.default_leverage", 1)
	v.SetDefault("trading.default_risk_pct", 0.01)
	v.SetDefault("trading.max_leverage", 100)
	v.SetDefault("trading.reverse_policy", ReverseCloseAny)

	v.SetDefault("webhook.path", "/webhook")

	v.SetDefault("tracing.host", "localhost")
	v.SetDefault("tracing.port", 6831)
}

// env-переменные старого деплоя, которые должны продолжать работать
var legacyEnv = map[string][]string{
	"trading.default_leverage": {"DEFAULT_LEVERAGE"},
	"trading.default_risk_pct": {"MAX_RISK_PCT"},
	"service.port":             {"PORT"},
	"telegram.token":           {"TELEGRAM_TOKEN"},
}

// NewConfig читает configs/$CONFIG_FILE (если есть) и накладывает env.
// OKX_API_KEY, TRADING_DEFAULT_LEVERAGE и т.д. перекрывают yaml.
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	dir := os.Getenv(configDirENV)
	if dir == "" {
		dir = "configs"
	}
	name := os.Getenv(configFilePathENV)
	if name == "" {
		name = "values_local.yaml"
	}
	return Load(filepath.Join(dir, name))
}

// Load — то же, что NewConfig, но с явным путём. Отсутствующий файл не ошибка:
// всё можно задать через env.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, envs := range legacyEnv {
		if err := v.BindEnv(append([]string{key, strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, envs...)...); err != nil {
			return nil, errors.Wrapf(err, "bind env %s", key)
		}
	}
	// AutomaticEnv не видит ключи, которых нет ни в дефолтах, ни в файле
	for _, key := range []string{
		"okx.api_key", "okx.api_secret", "okx.passphrase", "okx.account_uid", "okx.demo",
		"webhook.passphrase", "telegram.chat_id", "tracing.enabled", "trading.allowed_coins",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, errors.Wrapf(err, "bind env %s", key)
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, errors.Wrapf(err, "read config %s", path)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.OKX.BaseURL = strings.TrimRight(strings.TrimSpace(c.OKX.BaseURL), "/")
	c.OKX.TdMode = strings.ToLower(strings.TrimSpace(c.OKX.TdMode))
	c.OKX.PosMode = strings.ToLower(strings.TrimSpace(c.OKX.PosMode))
	c.OKX.EquityCcy = strings.ToUpper(strings.TrimSpace(c.OKX.EquityCcy))
	c.Trading.ReversePolicy = strings.ToLower(strings.TrimSpace(c.Trading.ReversePolicy))

	if r := c.Trading.DefaultRiskPct; r > 1 && r <= 100 {
		c.Trading.DefaultRiskPct = r / 100
		c.warnings = append(c.warnings, fmt.Sprintf(
			"trading.default_risk_pct=%v read as percent, using fraction %v; set a fraction in (0, 1]",
			r, c.Trading.DefaultRiskPct))
	}

	// из env список приходит одной строкой "BTC,ETH"
	coins := make([]string, 0, len(c.Trading.AllowedCoins))
	for _, raw := range c.Trading.AllowedCoins {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
				coins = append(coins, s)
			}
		}
	}
	c.Trading.AllowedCoins = coins

	if !strings.HasPrefix(c.Webhook.Path, "/") {
		c.Webhook.Path = "/" + c.Webhook.Path
	}
}

// Warnings — что было исправлено при загрузке; пишется в лог на старте.
func (c *Config) Warnings() []string { return c.warnings }

// Validate проверяет всё, кроме ключей биржи: их требует только okx_client.
func (c *Config) Validate() error {
	t := c.Trading
	if t.DefaultLeverage <= 0 {
		return errors.Errorf("trading.default_leverage must be > 0, got %v", t.DefaultLeverage)
	}
	if t.MaxLeverage < t.DefaultLeverage {
		return errors.Errorf("trading.max_leverage (%v) < trading.default_leverage (%v)", t.MaxLeverage, t.DefaultLeverage)
	}
	if t.DefaultRiskPct <= 0 || t.DefaultRiskPct > 1 {
		return errors.Errorf("trading.default_risk_pct must be in (0, 1], got %v", t.DefaultRiskPct)
	}
	switch t.ReversePolicy {
	case ReverseCloseAny, ReverseCloseOpposite:
	default:
		return errors.Errorf("trading.reverse_policy: unknown value %q", t.ReversePolicy)
	}
	switch c.OKX.TdMode {
	case "cross", "isolated":
	default:
		return errors.Errorf("okx.td_mode: unknown value %q", c.OKX.TdMode)
	}
	switch c.OKX.PosMode {
	case PosModeNet, PosModeLongShort:
	default:
		return errors.Errorf("okx.pos_mode: unknown value %q", c.OKX.PosMode)
	}
	if c.Service.Port <= 0 {
		return errors.Errorf("service.port must be > 0, got %d", c.Service.Port)
	}
	return nil
}

// RequireCredentials — без ключей сервис не стартует.
func (c *Config) RequireCredentials() error {
	var missing []string
	if c.OKX.APIKey == "" {
		missing = append(missing, "OKX_API_KEY")
	}
	if c.OKX.APISecret == "" {
		missing = append(missing, "OKX_API_SECRET")
	}
	if c.OKX.Passphrase == "" {
		missing = append(missing, "OKX_PASSPHRASE")
	}
	if len(missing) > 0 {
		return errors.Errorf("okx credentials not configured: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Redacted — yaml эффективного конфига без секретов, для лога на старте.
func (c *Config) Redacted() string {
	cp := *c
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "***"
	}
	cp.OKX.APIKey = mask(cp.OKX.APIKey)
	cp.OKX.APISecret = mask(cp.OKX.APISecret)
	cp.OKX.Passphrase = mask(cp.OKX.Passphrase)
	cp.Webhook.Passphrase = mask(cp.Webhook.Passphrase)
	cp.Telegram.Token = mask(cp.Telegram.Token)

	bs, err := yaml.Marshal(&cp)
	if err != nil {
		return ""
	}
	return string(bs)
}
