package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/cognicore/proofline/pkg/proofline/internalerr"
)

// EnvPrefix prefixes environment overrides. Nested keys use a double
// underscore: PROOFLINE_SERVER__ADDR sets server.addr.
const EnvPrefix = "PROOFLINE_"

// Settings configures the checker, the CLI and the server.
type Settings struct {
	Language string `koanf:"language"`
	// SingleLineBreaksMarkParagraph overrides the language default when set.
	SingleLineBreaksMarkParagraph *bool    `koanf:"single_line_breaks_mark_paragraph"`
	Workers                       int      `koanf:"workers"`
	Verbosity                     int      `koanf:"verbosity"`
	LogFile                       string   `koanf:"log_file"`
	EnabledRules                  []string `koanf:"enabled_rules"`
	DisabledRules                 []string `koanf:"disabled_rules"`
	CacheSize                     int      `koanf:"cache_size"`

	Resources ResourcePaths `koanf:"resources"`
	Server    Server        `koanf:"server"`
}

// ResourcePaths lists the resource files of the configured language.
// Relative paths resolve against the settings file directory.
type ResourcePaths struct {
	Catalogs       []string `koanf:"catalogs"`
	Disambiguation []string `koanf:"disambiguation"`
	Abbreviations  string   `koanf:"abbreviations"`
	Dict           string   `koanf:"dict"`
	Lexicon        string   `koanf:"lexicon"`
	LexiconDB      string   `koanf:"lexicon_db"`
}

// Server configures cmd/proofline-server.
type Server struct {
	Addr           string        `koanf:"addr"`
	AllowedOrigins []string      `koanf:"allowed_origins"`
	ReadTimeout    time.Duration `koanf:"read_timeout"`
	// CheckTimeout bounds one check; slower checks return partial results.
	CheckTimeout   time.Duration `koanf:"check_timeout"`
	MaxTextLength  int           `koanf:"max_text_length"`
}

var defaults = map[string]interface{}{
	"language":               "en",
	"workers":                0,
	"verbosity":              0,
	"cache_size":             0,
	"server.addr":            ":8081",
	"server.allowed_origins": []string{"*"},
	"server.read_timeout":    "30s",
	"server.check_timeout":   "10s",
	"server.max_text_length": 50000,
}

// DefaultSettings returns the built-in settings without file or
// environment overrides.
func DefaultSettings() *Settings {
	return &Settings{
		Language: "en",
		Server: Server{
			Addr:           ":8081",
			AllowedOrigins: []string{"*"},
			ReadTimeout:    30 * time.Second,
			CheckTimeout:   10 * time.Second,
			MaxTextLength:  50000,
		},
	}
}

// SearchSettingsFile returns the first proofline config file in the XDG
// config directories, or "" when there is none.
func SearchSettingsFile() string {
	for _, name := range []string{"config.yaml", "config.yml", "config.toml"} {
		if path, err := xdg.SearchConfigFile(filepath.Join("proofline", name)); err == nil {
			return path
		}
	}
	return ""
}

// LoadSettings layers the built-in defaults, the YAML or TOML file at path
// (when path is set) and PROOFLINE_* environment variables.
func LoadSettings(path string) (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, internalerr.Wrap(err, internalerr.CodeConfigLoad, "load defaults")
	}

	if path != "" {
		parser, err := parserFor(path)
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(path); err != nil {
			return nil, internalerr.Wrapf(err, internalerr.CodeConfigLoad, "settings %s", path)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, internalerr.Wrapf(err, internalerr.CodeConfigParse, "settings %s", path)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, internalerr.Wrap(err, internalerr.CodeConfigLoad, "load environment")
	}

	var s Settings
	conf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           &s,
			TagName:          "koanf",
			WeaklyTypedInput: true,
		},
	}
	if err := k.UnmarshalWithConf("", &s, conf); err != nil {
		return nil, internalerr.Wrap(err, internalerr.CodeConfigParse, "decode settings")
	}

	if path != "" {
		s.Resources.resolve(filepath.Dir(path))
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks value ranges.
func (s *Settings) Validate() error {
	switch {
	case s.Language == "":
		return internalerr.New(internalerr.CodeConfigParse, "language is required")
	case s.Workers < 0:
		return internalerr.Newf(internalerr.CodeConfigParse, "workers must not be negative, got %d", s.Workers)
	case s.CacheSize < 0:
		return internalerr.Newf(internalerr.CodeConfigParse, "cache_size must not be negative, got %d", s.CacheSize)
	}
	return nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return kyaml.Parser(), nil
	case ".toml":
		return toml.Parser(), nil
	}
	return nil, internalerr.Newf(internalerr.CodeConfigLoad, "settings %s: unsupported format", path)
}

// envKey maps PROOFLINE_SERVER__ADDR to server.addr.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func (r *ResourcePaths) resolve(dir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	for i := range r.Catalogs {
		r.Catalogs[i] = abs(r.Catalogs[i])
	}
	for i := range r.Disambiguation {
		r.Disambiguation[i] = abs(r.Disambiguation[i])
	}
	r.Abbreviations = abs(r.Abbreviations)
	r.Dict = abs(r.Dict)
	r.Lexicon = abs(r.Lexicon)
	r.LexiconDB = abs(r.LexiconDB)
}
