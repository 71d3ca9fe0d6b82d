package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the grading pipeline.
type Config struct {
	AppName             string
	AppEnv              string
	DatabaseURL         string `validate:"required"`
	RedisURL            string
	AssignmentsRoot     string `validate:"required"`
	AIProvider          string `validate:"oneof=openai anthropic"`
	OpenAIAPIKey        string
	AnthropicAPIKey     string
	Model               string
	MaxTokens           int           `validate:"gt=0"`
	Temperature         float32       `validate:"gte=0"`
	BatchSize           int           `validate:"gt=0"`
	StartOffset         int           `validate:"gte=0"`
	DelayBetweenBatches time.Duration `validate:"gte=0"`
	MaxRetries          int           `validate:"gte=0"`
	ConfidenceThreshold float64       `validate:"gte=0,lte=1"`
	MaxScore            float64       `validate:"gt=0"`
	GradeScale          map[string]float64
}

// Load reads configuration values from environment variables and an optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GRADEFLOW")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "GradeFlow")
	v.SetDefault("app.env", "development")
	v.SetDefault("database.url", "gradeflow.db")
	v.SetDefault("assignments.root", "assignments")
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("model", "gpt-4o-mini")
	v.SetDefault("max_tokens", 2000)
	v.SetDefault("temperature", 0.0)
	v.SetDefault("batch_size", 5)
	v.SetDefault("start_offset", 0)
	v.SetDefault("delay_between_batches", "10s")
	v.SetDefault("max_retries", 2)
	v.SetDefault("confidence_threshold", 0.7)
	v.SetDefault("max_score", 100)
	v.SetDefault("grade_scale", "A:90,B:80,C:70,D:60,F:0")

	delay, err := time.ParseDuration(v.GetString("delay_between_batches"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid delay_between_batches: %w", err)
	}

	scale, err := ParseGradeScale(v.GetString("grade_scale"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              v.GetString("app.env"),
		DatabaseURL:         v.GetString("database.url"),
		RedisURL:            v.GetString("redis.url"),
		AssignmentsRoot:     v.GetString("assignments.root"),
		AIProvider:          strings.ToLower(v.GetString("ai.provider")),
		OpenAIAPIKey:        v.GetString("openai_api_key"),
		AnthropicAPIKey:     v.GetString("anthropic_api_key"),
		Model:               v.GetString("model"),
		MaxTokens:           v.GetInt("max_tokens"),
		Temperature:         float32(v.GetFloat64("temperature")),
		BatchSize:           v.GetInt("batch_size"),
		StartOffset:         v.GetInt("start_offset"),
		DelayBetweenBatches: delay,
		MaxRetries:          v.GetInt("max_retries"),
		ConfidenceThreshold: v.GetFloat64("confidence_threshold"),
		MaxScore:            v.GetFloat64("max_score"),
		GradeScale:          scale,
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ParseGradeScale parses an "A:90,B:80,..." mapping of letters to minimum percentages.
func ParseGradeScale(raw string) (map[string]float64, error) {
	scale := make(map[string]float64)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		letter, minStr, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("invalid grade scale entry %q", pair)
		}
		min, err := strconv.ParseFloat(strings.TrimSpace(minStr), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid grade scale minimum in %q: %w", pair, err)
		}
		scale[strings.ToUpper(strings.TrimSpace(letter))] = min
	}

	if len(scale) == 0 {
		return nil, fmt.Errorf("grade scale must not be empty")
	}

	return scale, nil
}
