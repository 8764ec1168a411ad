package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/critterbot/internal/domain"
)

// Config es la configuración completa del bot.
type Config struct {
	Bot     BotConfig     `yaml:"bot"`
	Closer  CloserConfig  `yaml:"closer"`
	Rewards RewardsConfig `yaml:"rewards"`
	RPC     RPCConfig     `yaml:"rpc"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// BotConfig controla el ciclo de reciclado de juegos.
type BotConfig struct {
	CycleSeconds      int    `yaml:"cycle_seconds"`
	GameDurationSlots uint64 `yaml:"game_duration_slots"`
	MinBalance        uint64 `yaml:"min_balance_lamports"`
	TopUpAmount       uint64 `yaml:"top_up_lamports"`
	ClaimPrizes       bool   `yaml:"claim_prizes"`
}

// CloserConfig controla el controller de cierre.
type CloserConfig struct {
	PollIntervalMillis int    `yaml:"poll_interval_millis"`
	MaxSubmitRetries   int    `yaml:"max_submit_retries"`
	MaxCycles          int    `yaml:"max_cycles"` // 0 = sin límite, corre hasta que el juego cierre
	MaxTransientErrors int    `yaml:"max_transient_errors"`
	BetValue           uint64 `yaml:"bet_value_lamports"`
}

// RewardsConfig define la recompensa del closer aplicada por el programa.
type RewardsConfig struct {
	Mode       string  `yaml:"mode"` // flat | proportional
	FlatAmount uint64  `yaml:"flat_amount_lamports"`
	Rate       float64 `yaml:"rate"`
}

// RPCConfig contiene el endpoint del gateway y la dirección del programa.
type RPCConfig struct {
	Endpoint  string `yaml:"endpoint"`
	ProgramID string `yaml:"program_id"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return &cfg, nil
}

// CycleInterval devuelve el intervalo entre ciclos como time.Duration.
func (c *Config) CycleInterval() time.Duration {
	return time.Duration(c.Bot.CycleSeconds) * time.Second
}

// PollInterval devuelve el intervalo de muestreo de entropía como time.Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Closer.PollIntervalMillis) * time.Millisecond
}

// RewardPolicy arma la política de recompensas del dominio.
func (c *Config) RewardPolicy() domain.RewardPolicy {
	return domain.RewardPolicy{
		Mode:       domain.RewardMode(c.Rewards.Mode),
		FlatAmount: c.Rewards.FlatAmount,
		Rate:       c.Rewards.Rate,
	}
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RPC_ENDPOINT"); v != "" {
		cfg.RPC.Endpoint = v
	}
	if v := os.Getenv("PROGRAM_ID"); v != "" {
		cfg.RPC.ProgramID = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Bot.CycleSeconds <= 0 {
		cfg.Bot.CycleSeconds = 15
	}
	if cfg.Bot.GameDurationSlots == 0 {
		cfg.Bot.GameDurationSlots = 750
	}
	if cfg.Bot.MinBalance == 0 {
		cfg.Bot.MinBalance = 1_000_000_000 // 1 SOL
	}
	if cfg.Bot.TopUpAmount == 0 {
		cfg.Bot.TopUpAmount = 2_000_000_000
	}
	if cfg.Closer.PollIntervalMillis <= 0 {
		cfg.Closer.PollIntervalMillis = 200
	}
	if cfg.Closer.MaxSubmitRetries <= 0 {
		cfg.Closer.MaxSubmitRetries = 1
	}
	if cfg.Closer.MaxTransientErrors <= 0 {
		cfg.Closer.MaxTransientErrors = 5
	}
	if cfg.Closer.BetValue == 0 {
		cfg.Closer.BetValue = 1_000_000
	}
	if cfg.Rewards.Mode == "" {
		cfg.Rewards.Mode = "flat"
	}
	if cfg.Rewards.Mode == "flat" && cfg.Rewards.FlatAmount == 0 {
		cfg.Rewards.FlatAmount = 1_000_000
	}
	if cfg.RPC.Endpoint == "" {
		cfg.RPC.Endpoint = "http://localhost:8899"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "critterbot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// validate verifica los campos que no tienen default razonable.
func (c *Config) validate() error {
	if c.RPC.ProgramID == "" {
		return fmt.Errorf("rpc.program_id is required")
	}
	switch c.Rewards.Mode {
	case "flat", "proportional":
	default:
		return fmt.Errorf("rewards.mode must be flat or proportional, got %q", c.Rewards.Mode)
	}
	if c.Rewards.Mode == "proportional" && (c.Rewards.Rate <= 0 || c.Rewards.Rate >= 1) {
		return fmt.Errorf("rewards.rate must be in (0, 1), got %v", c.Rewards.Rate)
	}
	if c.Bot.TopUpAmount < c.Bot.MinBalance {
		return fmt.Errorf("bot.top_up_lamports (%d) must be >= bot.min_balance_lamports (%d)",
			c.Bot.TopUpAmount, c.Bot.MinBalance)
	}
	return nil
}
