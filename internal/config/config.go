package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const DefaultPath = "config/config.toml"

type LLMConfig struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`

	// System overrides the default assistant instruction. A nil
	// Temperature keeps the client default; zero is a valid setting.
	System      string   `toml:"system"`
	Temperature *float32 `toml:"temperature"`
	MaxTokens   int      `toml:"max_tokens"`
}

// InferenceConfig points at a Hugging Face compatible inference API. Empty
// model names mean the corresponding model is not loaded and the service
// runs on its heuristic path only.
type InferenceConfig struct {
	BaseURL         string            `toml:"base_url"`
	Token           string            `toml:"token"`
	Timeout         Duration          `toml:"timeout"`
	ChestModel      string            `toml:"chest_model"`
	SkinModel       string            `toml:"skin_model"`
	MRIModel        string            `toml:"mri_model"`
	PrescriptionOCR string            `toml:"prescription_ocr_model"`
	ZeroShotModel   string            `toml:"zero_shot_model"`
	RiskModel       string            `toml:"risk_model"`
	RiskLabels      map[string]string `toml:"risk_labels"`
}

type ScansConfig struct {
	MRIThreshold   float64 `toml:"mri_threshold"`
	ChestThreshold float64 `toml:"chest_threshold"`
	SkinThreshold  float64 `toml:"skin_threshold"`
}

type OCRConfig struct {
	Tesseract bool     `toml:"tesseract"`
	Languages []string `toml:"languages"`
}

type SearchConfig struct {
	Provider string `toml:"provider"`
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
	Results  int    `toml:"results"`
}

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type ServiceConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

type ServicesConfig struct {
	Scans        ServiceConfig `toml:"scans"`
	Prescription ServiceConfig `toml:"prescription"`
	Risk         ServiceConfig `toml:"risk"`
	Report       ServiceConfig `toml:"report"`
	Advisor      ServiceConfig `toml:"advisor"`
}

type ReportPrompts struct {
	Extract string `toml:"extract"`
}

type AdvisorPrompts struct {
	Summary         string `toml:"summary"`
	Recommendations string `toml:"recommendations"`
}

type PromptsConfig struct {
	Report  ReportPrompts  `toml:"report"`
	Advisor AdvisorPrompts `toml:"advisor"`
}

// LimitsConfig bounds what one request can make a service allocate.
type LimitsConfig struct {
	MaxUploadBytes int64 `toml:"max_upload_bytes"`
	MaxImagePixels int   `toml:"max_image_pixels"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Config struct {
	LLM       LLMConfig       `toml:"llm"`
	Inference InferenceConfig `toml:"inference"`
	Scans     ScansConfig     `toml:"scans"`
	OCR       OCRConfig       `toml:"ocr"`
	Search    SearchConfig    `toml:"search"`
	Memgraph  MemgraphConfig  `toml:"memgraph"`
	Services  ServicesConfig  `toml:"services"`
	Prompts   PromptsConfig   `toml:"prompts"`
	Limits    LimitsConfig    `toml:"limits"`
	Log       LogConfig       `toml:"log"`
}

// Duration lets TOML carry values like "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file is present. All five
// services are enabled on the ports the original deployment used.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:  "gemini",
			Model:     "gemini-1.5-flash",
			MaxTokens: 2048,
		},
		Inference: InferenceConfig{
			BaseURL:       "https://api-inference.huggingface.co",
			Timeout:       Duration{60 * time.Second},
			ZeroShotModel: "facebook/bart-large-mnli",
			RiskLabels: map[string]string{
				"LABEL_0": "Normal",
				"LABEL_1": "Depressed",
				"LABEL_2": "Suicidal",
			},
		},
		Scans: ScansConfig{
			MRIThreshold:   0.4,
			ChestThreshold: 0.5,
			SkinThreshold:  0.3,
		},
		OCR: OCRConfig{
			Tesseract: true,
			Languages: []string{"eng"},
		},
		Search: SearchConfig{
			Provider: "serper",
			BaseURL:  "https://google.serper.dev",
			Results:  5,
		},
		Services: ServicesConfig{
			Scans:        ServiceConfig{Enabled: true, Port: 5003},
			Prescription: ServiceConfig{Enabled: true, Port: 5009},
			Risk:         ServiceConfig{Enabled: true, Port: 5001},
			Report:       ServiceConfig{Enabled: true, Port: 8002},
			Advisor:      ServiceConfig{Enabled: true, Port: 8003},
		},
		Limits: LimitsConfig{
			MaxUploadBytes: 32 << 20,
			MaxImagePixels: 50_000_000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a TOML file on top of Default. A missing file is reported as
// ErrConfigNotFound so callers can decide whether defaults are acceptable.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return cfg, nil
}

// LoadWithEnv loads the file named by CONFIG_PATH (or DefaultPath) with
// LoadFrom.
func LoadWithEnv() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = DefaultPath
	}
	return LoadFrom(path)
}

// LoadFrom loads path, falls back to defaults when it does not exist,
// applies environment overrides and validates the result.
func LoadFrom(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil && !errors.Is(err, ErrConfigNotFound) {
		return nil, err
	}

	cfg.ApplyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides file values with environment variables when present.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}

	set(&c.LLM.Provider, "LLM_PROVIDER")
	set(&c.LLM.Model, "LLM_MODEL")
	set(&c.LLM.APIKey, "LLM_API_KEY", "GEMINI_API_KEY")
	set(&c.LLM.BaseURL, "LLM_BASE_URL")

	set(&c.Inference.BaseURL, "INFERENCE_URL")
	set(&c.Inference.Token, "HF_API_TOKEN")

	set(&c.Search.APIKey, "SERPER_API_KEY")

	set(&c.Memgraph.URI, "MEMGRAPH_URI")
	set(&c.Memgraph.User, "MEMGRAPH_USER")
	set(&c.Memgraph.Password, "MEMGRAPH_PASSWORD")

	set(&c.Log.Level, "LOG_LEVEL")
	set(&c.Log.Format, "LOG_FORMAT")

	// PORT moves every enabled service onto consecutive ports, which keeps
	// single-port platforms working when only one service is enabled.
	if p := getenv("PORT"); p != "" {
		if port, err := strconv.Atoi(p); err == nil {
			for _, svc := range c.Services.all() {
				if svc.Enabled {
					svc.Port = port
					port++
				}
			}
		}
	}
}

// Named returns the services keyed by their section name.
func (s ServicesConfig) Named() map[string]ServiceConfig {
	return map[string]ServiceConfig{
		"scans":        s.Scans,
		"prescription": s.Prescription,
		"risk":         s.Risk,
		"report":       s.Report,
		"advisor":      s.Advisor,
	}
}

func (s *ServicesConfig) all() []*ServiceConfig {
	return []*ServiceConfig{&s.Scans, &s.Prescription, &s.Risk, &s.Report, &s.Advisor}
}

// Validate checks the values that would otherwise fail at request time.
func (c *Config) Validate() error {
	ports := make(map[int]bool)
	enabled := 0
	for _, svc := range c.Services.all() {
		if !svc.Enabled {
			continue
		}
		enabled++
		if svc.Port <= 0 || svc.Port > 65535 {
			return fmt.Errorf("%w: %d", ErrInvalidPort, svc.Port)
		}
		if ports[svc.Port] {
			return fmt.Errorf("%w: %d", ErrDuplicatePort, svc.Port)
		}
		ports[svc.Port] = true
	}
	if enabled == 0 {
		return ErrNoServices
	}

	for _, th := range []float64{c.Scans.MRIThreshold, c.Scans.ChestThreshold, c.Scans.SkinThreshold} {
		if th < 0 || th > 1 {
			return fmt.Errorf("%w: %v", ErrInvalidThreshold, th)
		}
	}

	if t := c.LLM.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("%w: %v", ErrInvalidTemperature, *t)
	}

	if c.Limits.MaxUploadBytes <= 0 || c.Limits.MaxImagePixels <= 0 {
		return ErrInvalidLimit
	}

	if c.Inference.Timeout.Duration < 0 {
		return ErrInvalidTimeout
	}
	return nil
}
