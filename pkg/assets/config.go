package assets

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the client tunables. Values come from the process
// environment first and .env style files second.
type Config struct {
	HandshakeTimeout    time.Duration
	DisconnectTimeout   time.Duration
	AllowAssetsMismatch bool

	TeleportOutDuration  time.Duration
	TeleportInDuration   time.Duration
	MinimumWarpCinema    time.Duration
	DefaultWarpAnimation string
	RespawnDelay         time.Duration
	FastRespawn          bool

	StorageInterval      time.Duration
	PredictedTileTimeout time.Duration
	ClientWindowPadding  int32

	ChatMessagesPerSecond      float64
	ChatBurst                  int
	CelestialRequestsPerSecond float64
	CelestialRequestBurst      int
}

func DefaultConfig() Config {
	return Config{
		HandshakeTimeout:           60 * time.Second,
		DisconnectTimeout:          5 * time.Second,
		AllowAssetsMismatch:        false,
		TeleportOutDuration:        1500 * time.Millisecond,
		TeleportInDuration:         1500 * time.Millisecond,
		MinimumWarpCinema:          time.Second,
		DefaultWarpAnimation:       "default",
		RespawnDelay:               3 * time.Second,
		FastRespawn:                false,
		StorageInterval:            10 * time.Second,
		PredictedTileTimeout:       time.Second,
		ClientWindowPadding:        8,
		ChatMessagesPerSecond:      2,
		ChatBurst:                  5,
		CelestialRequestsPerSecond: 20,
		CelestialRequestBurst:      40,
	}
}

//
// Environment keys
const (
	envHandshakeTimeout     = "UNIVERSE_HANDSHAKE_TIMEOUT_MS"
	envDisconnectTimeout    = "UNIVERSE_DISCONNECT_TIMEOUT_MS"
	envAllowAssetsMismatch  = "UNIVERSE_ALLOW_ASSETS_MISMATCH"
	envTeleportOut          = "UNIVERSE_TELEPORT_OUT_MS"
	envTeleportIn           = "UNIVERSE_TELEPORT_IN_MS"
	envMinimumWarpCinema    = "UNIVERSE_WARP_CINEMA_MS"
	envDefaultWarpAnimation = "UNIVERSE_WARP_ANIMATION"
	envRespawnDelay         = "UNIVERSE_RESPAWN_DELAY_MS"
	envFastRespawn          = "UNIVERSE_FAST_RESPAWN"
	envStorageInterval      = "UNIVERSE_STORAGE_INTERVAL_MS"
	envPredictedTileTimeout = "UNIVERSE_PREDICTED_TILE_TIMEOUT_MS"
	envWindowPadding        = "UNIVERSE_WINDOW_PADDING"
	envChatPerSecond        = "UNIVERSE_CHAT_PER_SECOND"
	envChatBurst            = "UNIVERSE_CHAT_BURST"
	envCelestialPerSecond   = "UNIVERSE_CELESTIAL_PER_SECOND"
	envCelestialBurst       = "UNIVERSE_CELESTIAL_BURST"
)

type InvalidConfigValue struct {
	Key   string
	Value string
	Err   error
}

func (e *InvalidConfigValue) Error() string {
	return fmt.Sprintf("Invalid value %q for %s: %s", e.Value, e.Key, e.Err.Error())
}

func (e *InvalidConfigValue) Unwrap() error {
	return e.Err
}

// LoadConfig starts from DefaultConfig and overrides every key found in the
// environment or in the given files. Missing files are skipped. With no
// files, ".env" in the working directory is tried.
func LoadConfig(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}

	fileValues := map[string]string{}
	for i := len(files) - 1; i >= 0; i-- {
		values, err := godotenv.Read(files[i])
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Config{}, err
		}
		for k, v := range values {
			fileValues[k] = v
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileValues[key]
		return v, ok
	}

	cfg := DefaultConfig()
	p := configParser{lookup: lookup}
	p.millis(envHandshakeTimeout, &cfg.HandshakeTimeout)
	p.millis(envDisconnectTimeout, &cfg.DisconnectTimeout)
	p.boolean(envAllowAssetsMismatch, &cfg.AllowAssetsMismatch)
	p.millis(envTeleportOut, &cfg.TeleportOutDuration)
	p.millis(envTeleportIn, &cfg.TeleportInDuration)
	p.millis(envMinimumWarpCinema, &cfg.MinimumWarpCinema)
	if v, ok := lookup(envDefaultWarpAnimation); ok && v != "" {
		cfg.DefaultWarpAnimation = v
	}
	p.millis(envRespawnDelay, &cfg.RespawnDelay)
	p.boolean(envFastRespawn, &cfg.FastRespawn)
	p.millis(envStorageInterval, &cfg.StorageInterval)
	p.millis(envPredictedTileTimeout, &cfg.PredictedTileTimeout)
	p.integer32(envWindowPadding, &cfg.ClientWindowPadding)
	p.float(envChatPerSecond, &cfg.ChatMessagesPerSecond)
	p.integer(envChatBurst, &cfg.ChatBurst)
	p.float(envCelestialPerSecond, &cfg.CelestialRequestsPerSecond)
	p.integer(envCelestialBurst, &cfg.CelestialRequestBurst)

	if p.err != nil {
		return Config{}, p.err
	}
	return cfg, nil
}

// configParser keeps the first error and skips every later key.
type configParser struct {
	lookup func(string) (string, bool)
	err    error
}

func (p *configParser) raw(key string) (string, bool) {
	if p.err != nil {
		return "", false
	}
	v, ok := p.lookup(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (p *configParser) fail(key, value string, err error) {
	p.err = &InvalidConfigValue{Key: key, Value: value, Err: err}
}

func (p *configParser) millis(key string, out *time.Duration) {
	v, ok := p.raw(key)
	if !ok {
		return
	}
	ms, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*out = time.Duration(ms) * time.Millisecond
}

func (p *configParser) boolean(key string, out *bool) {
	v, ok := p.raw(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*out = b
}

func (p *configParser) integer32(key string, out *int32) {
	v, ok := p.raw(key)
	if !ok {
		return
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*out = int32(n)
}

func (p *configParser) integer(key string, out *int) {
	v, ok := p.raw(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*out = n
}

func (p *configParser) float(key string, out *float64) {
	v, ok := p.raw(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*out = f
}
