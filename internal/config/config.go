package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. ENGINE_PG_DSN.
const EnvPrefix = "ENGINE"

// Config holds replay configuration loaded from flags, env, or config file.
type Config struct {
	In              string
	Out             string
	ChainID         uint64
	Pool            string
	Token0          string
	Token1          string
	Owner           string
	Fee             uint32
	TickSpacing     int32
	SqrtPrice       string
	Tick            int32
	HasTick         bool
	CardinalityNext uint16
	SwapMode        string
	Topic0Map       map[string]string
	Until           uint64
	PGDSN           string
	StateFile       string
	StateName       string
	BatchSize       int
	Decimals0       uint8
	Decimals1       uint8
	MaxRetries      int
	RetryBackoff    time.Duration
	LogLevel        string
}

// DecodeConfig holds configuration for the decode command.
type DecodeConfig struct {
	In        string
	Out       string
	Errors    string
	Pool      string
	Token0    string
	Token1    string
	Fee       uint32
	Topic0Map map[string]string
	Workers   int
	LogLevel  string
}

// PriceConfig holds configuration for the price command.
type PriceConfig struct {
	SqrtPrice string
	Tick      int32
	HasTick   bool
	Decimals0 uint8
	Decimals1 uint8
	Invert    bool
	LogLevel  string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetDefault("out", "./data/engine_logs.jsonl")
	v.SetDefault("chain-id", uint64(1))
	v.SetDefault("swap-mode", "exact-input")
	v.SetDefault("state-name", "replay")
	v.SetDefault("batch-size", 500)
	v.SetDefault("decimals0", 18)
	v.SetDefault("decimals1", 18)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	if err := read(v, cfgFile, flags); err != nil {
		return Config{}, err
	}

	until, err := ParseTimestamp(v.GetString("until"))
	if err != nil {
		return Config{}, fmt.Errorf("parse until: %w", err)
	}
	fee := v.GetUint32("fee")
	if fee >= 1_000_000 {
		return Config{}, fmt.Errorf("fee %d must be below 1000000 pips", fee)
	}
	topic0Map, err := topic0Map(v)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		In:              v.GetString("in"),
		Out:             v.GetString("out"),
		ChainID:         v.GetUint64("chain-id"),
		Pool:            v.GetString("pool"),
		Token0:          v.GetString("token0"),
		Token1:          v.GetString("token1"),
		Owner:           v.GetString("owner"),
		Fee:             fee,
		TickSpacing:     v.GetInt32("tick-spacing"),
		SqrtPrice:       v.GetString("sqrt-price"),
		Tick:            v.GetInt32("tick"),
		HasTick:         isSet(v, flags, "tick"),
		CardinalityNext: v.GetUint16("cardinality-next"),
		SwapMode:        v.GetString("swap-mode"),
		Topic0Map:       topic0Map,
		Until:           until,
		PGDSN:           v.GetString("pg-dsn"),
		StateFile:       v.GetString("state-file"),
		StateName:       v.GetString("state-name"),
		BatchSize:       v.GetInt("batch-size"),
		Decimals0:       v.GetUint8("decimals0"),
		Decimals1:       v.GetUint8("decimals1"),
		MaxRetries:      v.GetInt("max-retries"),
		RetryBackoff:    v.GetDuration("retry-backoff"),
		LogLevel:        v.GetString("log-level"),
	}
	return cfg, nil
}

// LoadDecode merges config file, environment variables, and flags into DecodeConfig.
func LoadDecode(cfgFile string, flags *pflag.FlagSet) (DecodeConfig, error) {
	v := viper.New()
	v.SetDefault("out", "./data/typed_events.jsonl")
	v.SetDefault("errors", "./data/decode_errors.jsonl")
	v.SetDefault("workers", 4)
	v.SetDefault("log-level", "info")

	if err := read(v, cfgFile, flags); err != nil {
		return DecodeConfig{}, err
	}

	topic0Map, err := topic0Map(v)
	if err != nil {
		return DecodeConfig{}, err
	}
	workers := v.GetInt("workers")
	if workers < 1 {
		return DecodeConfig{}, fmt.Errorf("workers must be at least 1, got %d", workers)
	}

	return DecodeConfig{
		In:        v.GetString("in"),
		Out:       v.GetString("out"),
		Errors:    v.GetString("errors"),
		Pool:      v.GetString("pool"),
		Token0:    v.GetString("token0"),
		Token1:    v.GetString("token1"),
		Fee:       v.GetUint32("fee"),
		Topic0Map: topic0Map,
		Workers:   workers,
		LogLevel:  v.GetString("log-level"),
	}, nil
}

// LoadPrice merges config file, environment variables, and flags into PriceConfig.
func LoadPrice(cfgFile string, flags *pflag.FlagSet) (PriceConfig, error) {
	v := viper.New()
	v.SetDefault("decimals0", 18)
	v.SetDefault("decimals1", 18)
	v.SetDefault("log-level", "info")

	if err := read(v, cfgFile, flags); err != nil {
		return PriceConfig{}, err
	}

	return PriceConfig{
		SqrtPrice: v.GetString("sqrt-price"),
		Tick:      v.GetInt32("tick"),
		HasTick:   isSet(v, flags, "tick"),
		Decimals0: v.GetUint8("decimals0"),
		Decimals1: v.GetUint8("decimals1"),
		Invert:    v.GetBool("invert"),
		LogLevel:  v.GetString("log-level"),
	}, nil
}

func read(v *viper.Viper, cfgFile string, flags *pflag.FlagSet) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		return nil
	}
	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// isSet distinguishes an explicit zero from an absent value. Bound flags count
// as set in viper even when left at their default, so they are checked directly.
func isSet(v *viper.Viper, flags *pflag.FlagSet, key string) bool {
	if flags != nil {
		if f := flags.Lookup(key); f != nil && f.Changed {
			return true
		}
	}
	return v.InConfig(key) || viperEnvSet(key)
}

func viperEnvSet(key string) bool {
	_, ok := os.LookupEnv(EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_")))
	return ok
}

// topic0Map reads the topic0-map setting and checks every key is a 32-byte hash.
func topic0Map(v *viper.Viper) (map[string]string, error) {
	out := getStringMap(v, "topic0-map")
	for topic0 := range out {
		data, err := hexutil.Decode(topic0)
		if err != nil {
			return nil, fmt.Errorf("invalid topic0 %s: %w", topic0, err)
		}
		if len(data) != 32 {
			return nil, fmt.Errorf("invalid topic0 length: %s", topic0)
		}
	}
	return out, nil
}

func getStringMap(v *viper.Viper, key string) map[string]string {
	if !v.IsSet(key) {
		return map[string]string{}
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case map[string]string:
		return typed
	case map[string]interface{}:
		out := make(map[string]string, len(typed))
		for k, v := range typed {
			out[k] = fmt.Sprintf("%v", v)
		}
		return out
	case string:
		return parseStringMap(typed)
	default:
		return map[string]string{}
	}
}

func parseStringMap(input string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return out
	}
	pairs := strings.Split(input, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}

// ParseTimestamp parses a timestamp value (unix seconds or RFC3339).
func ParseTimestamp(input string) (uint64, error) {
	if strings.TrimSpace(input) == "" {
		return 0, nil
	}

	if isNumeric(input) {
		val, err := strconv.ParseUint(input, 10, 64)
		if err != nil {
			return 0, err
		}
		return val, nil
	}

	tm, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return 0, err
	}
	return uint64(tm.Unix()), nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}
