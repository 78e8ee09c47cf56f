package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Risk holds the thresholds of the risk rule set.
// All values are in account currency against the open position.
type Risk struct {
	HardStop        float64 `yaml:"hard_stop"`         // unconditional close below -HardStop
	StrategicTake   float64 `yaml:"strategic_take"`    // close above +StrategicTake on opposite decision
	ReversalLoss    float64 `yaml:"reversal_loss"`     // close below -ReversalLoss on opposite decision
	BreakEvenFloor  float64 `yaml:"break_even_floor"`  // profit needed to move the stop to entry
	BreakEvenBuffer float64 `yaml:"break_even_buffer"` // distance past entry for the break-even stop
	TrailingFloor   float64 `yaml:"trailing_floor"`    // profit needed to start trailing
	TrailingGap     float64 `yaml:"trailing_gap"`      // distance the stop trails behind the price
	TrailingStep    float64 `yaml:"trailing_step"`     // minimum improvement before re-modifying
}

// Council configures the persona panel and the vote synthesis.
type Council struct {
	Quorum   int               `yaml:"quorum"`   // concurring votes needed for an action
	Timeout  time.Duration     `yaml:"timeout"`  // per persona evaluation timeout
	Cooldown bool              `yaml:"cooldown"` // hold after a loss in the same direction
	Aliases  map[string]string `yaml:"aliases"`  // legacy persona name normalization
}

// Loop configures the cadence of the per account control loop.
type Loop struct {
	Cadence        time.Duration `yaml:"cadence"`
	PublishEvery   time.Duration `yaml:"publish_every"`
	VerboseEvery   time.Duration `yaml:"verbose_every"`
	ReconcileEvery time.Duration `yaml:"reconcile_every"`
	TrendRefresh   time.Duration `yaml:"trend_refresh"`
	TrendRetry     time.Duration `yaml:"trend_retry"`
	Warmup         time.Duration `yaml:"warmup"`
	SessionRetries int           `yaml:"session_retries"`
	SessionBackoff time.Duration `yaml:"session_backoff"`
}

// Execution configures order placement.
type Execution struct {
	Symbol         string  `yaml:"symbol"`
	Volume         float64 `yaml:"volume"`
	MaxStopGap     float64 `yaml:"max_stop_gap"`     // clamp ceiling for the stop distance
	DefaultStopGap float64 `yaml:"default_stop_gap"` // fallback when the decision carries none
	MaxTakeGap     float64 `yaml:"max_take_gap"`
	DefaultTakeGap float64 `yaml:"default_take_gap"`
}

// Gemini configures the analysis collaborator client.
type Gemini struct {
	Key       string        `yaml:"key"`
	Model     string        `yaml:"model"`
	URL       string        `yaml:"url"`
	RPM       float64       `yaml:"rpm"` // request budget per minute across personas
	Timeout   time.Duration `yaml:"timeout"`
	MaxTokens int           `yaml:"max_tokens"`
}

// Telegram configures the optional trade notifier.
type Telegram struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

// Settings is the root configuration of the controller.
type Settings struct {
	Account    string    `yaml:"account"`
	ScoreDepth int       `yaml:"score_depth"` // closed trades considered by the persona scorer
	StorageDir string    `yaml:"storage_dir"`
	Port       int       `yaml:"port"`
	Risk       Risk      `yaml:"risk"`
	Council    Council   `yaml:"council"`
	Loop       Loop      `yaml:"loop"`
	Execution  Execution `yaml:"execution"`
	Gemini     Gemini    `yaml:"gemini"`
	Telegram   Telegram  `yaml:"telegram"`
}

// Default returns the reference configuration.
func Default() Settings {
	return Settings{
		Account:    "demo",
		ScoreDepth: 50,
		StorageDir: "file-storage",
		Port:       6090,
		Risk: Risk{
			HardStop:        9.00,
			StrategicTake:   5.00,
			ReversalLoss:    2.00,
			BreakEvenFloor:  1.00,
			BreakEvenBuffer: 0.20,
			TrailingFloor:   3.00,
			TrailingGap:     1.50,
			TrailingStep:    0.10,
		},
		Council: Council{
			Quorum:   2,
			Timeout:  8 * time.Second,
			Cooldown: true,
			Aliases: map[string]string{
				"RACER":  "RECKLESS",
				"NORMAL": "ANALYST",
			},
		},
		Loop: Loop{
			Cadence:        time.Second,
			PublishEvery:   2 * time.Second,
			VerboseEvery:   10 * time.Second,
			ReconcileEvery: 30 * time.Second,
			TrendRefresh:   900 * time.Second,
			TrendRetry:     60 * time.Second,
			Warmup:         60 * time.Second,
			SessionRetries: 3,
			SessionBackoff: 2 * time.Second,
		},
		Execution: Execution{
			Symbol:         "GOLD",
			Volume:         0.01,
			MaxStopGap:     30.0,
			DefaultStopGap: 15.0,
			MaxTakeGap:     50.0,
			DefaultTakeGap: 20.0,
		},
		Gemini: Gemini{
			Model:   "gemini-2.0-flash",
			URL:     "https://generativelanguage.googleapis.com",
			RPM:     30,
			Timeout: 8 * time.Second,
		},
	}
}

// Load reads the yaml file on top of the defaults and applies env overrides.
// A missing file is not an error, the defaults stand.
func Load(path string) (Settings, error) {
	_ = godotenv.Load()

	s := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return s, fmt.Errorf("could not read config '%s': %w", path, err)
			}
		} else if err := yaml.Unmarshal(b, &s); err != nil {
			return s, fmt.Errorf("could not parse config '%s': %w", path, err)
		}
	}

	// secrets come from the environment, never from the yaml
	if k := os.Getenv("GEMINI_API_KEY"); k != "" {
		s.Gemini.Key = k
	}
	if t := os.Getenv("TELEGRAM_BOT_TOKEN"); t != "" {
		s.Telegram.Token = t
	}
	if a := os.Getenv("GOLDMIND_ACCOUNT"); a != "" {
		s.Account = a
	}
	if d := os.Getenv("GOLDMIND_STORAGE"); d != "" {
		s.StorageDir = d
	}
	return s, nil
}
