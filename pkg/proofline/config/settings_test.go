package config

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/cognicore/proofline/pkg/proofline/internalerr"
)

func TestLoadSettingsDefaults(t *testing.T) {
	s, err := LoadSettings("")
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if !reflect.DeepEqual(s, DefaultSettings()) {
		t.Errorf("Expected defaults, got %+v", s)
	}
	if s.SingleLineBreaksMarkParagraph != nil {
		t.Errorf("SingleLineBreaksMarkParagraph should be unset")
	}
}

func TestLoadSettingsYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
language: ca
single_line_breaks_mark_paragraph: true
workers: 4
enabled_rules: [EN_A_VS_AN]
resources:
  catalogs: [grammar.xml, /etc/proofline/extra.yaml]
  lexicon: lexicon.yaml
server:
  addr: ":9090"
  read_timeout: 5s
`)

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}

	dir := filepath.Dir(path)
	if s.Language != "ca" {
		t.Errorf("Language = %q", s.Language)
	}
	if s.SingleLineBreaksMarkParagraph == nil || !*s.SingleLineBreaksMarkParagraph {
		t.Errorf("SingleLineBreaksMarkParagraph should be true")
	}
	if s.Workers != 4 {
		t.Errorf("Workers = %d", s.Workers)
	}
	if !reflect.DeepEqual(s.EnabledRules, []string{"EN_A_VS_AN"}) {
		t.Errorf("EnabledRules = %v", s.EnabledRules)
	}
	wantCatalogs := []string{filepath.Join(dir, "grammar.xml"), "/etc/proofline/extra.yaml"}
	if !reflect.DeepEqual(s.Resources.Catalogs, wantCatalogs) {
		t.Errorf("Catalogs = %v, want %v", s.Resources.Catalogs, wantCatalogs)
	}
	if want := filepath.Join(dir, "lexicon.yaml"); s.Resources.Lexicon != want {
		t.Errorf("Lexicon = %q, want %q", s.Resources.Lexicon, want)
	}
	if s.Resources.Dict != "" {
		t.Errorf("Dict = %q, want empty", s.Resources.Dict)
	}
	if s.Server.Addr != ":9090" {
		t.Errorf("Addr = %q", s.Server.Addr)
	}
	if s.Server.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v", s.Server.ReadTimeout)
	}
	// Unset keys keep their defaults.
	if s.Server.MaxTextLength != 50000 {
		t.Errorf("MaxTextLength = %d", s.Server.MaxTextLength)
	}
}

func TestLoadSettingsTOML(t *testing.T) {
	path := writeFile(t, "config.toml", `
language = "en"
cache_size = 2048

[server]
allowed_origins = ["https://example.com"]
max_text_length = 100
`)

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.CacheSize != 2048 {
		t.Errorf("CacheSize = %d", s.CacheSize)
	}
	if !reflect.DeepEqual(s.Server.AllowedOrigins, []string{"https://example.com"}) {
		t.Errorf("AllowedOrigins = %v", s.Server.AllowedOrigins)
	}
	if s.Server.MaxTextLength != 100 {
		t.Errorf("MaxTextLength = %d", s.Server.MaxTextLength)
	}
}

func TestLoadSettingsEnvironment(t *testing.T) {
	path := writeFile(t, "config.yaml", "workers: 2\n")
	t.Setenv("PROOFLINE_WORKERS", "8")
	t.Setenv("PROOFLINE_SERVER__ADDR", "127.0.0.1:7000")
	t.Setenv("PROOFLINE_DISABLED_RULES", "WORD_REPEAT_RULE,UPPERCASE_SENTENCE_START")

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.Workers != 8 {
		t.Errorf("Environment should override the file: Workers = %d", s.Workers)
	}
	if s.Server.Addr != "127.0.0.1:7000" {
		t.Errorf("Addr = %q", s.Server.Addr)
	}
	want := []string{"WORD_REPEAT_RULE", "UPPERCASE_SENTENCE_START"}
	if !reflect.DeepEqual(s.DisabledRules, want) {
		t.Errorf("DisabledRules = %v, want %v", s.DisabledRules, want)
	}
}

func TestLoadSettingsErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
		code internalerr.Code
	}{
		{"missing file", filepath.Join(t.TempDir(), "missing.yaml"), internalerr.CodeConfigLoad},
		{"unsupported format", writeFile(t, "config.json", "{}"), internalerr.CodeConfigLoad},
		{"malformed", writeFile(t, "config.yaml", "workers: [1"), internalerr.CodeConfigParse},
		{"negative workers", writeFile(t, "config.yaml", "workers: -1"), internalerr.CodeConfigParse},
		{"negative cache", writeFile(t, "config.yaml", "cache_size: -5"), internalerr.CodeConfigParse},
		{"empty language", writeFile(t, "config.yaml", "language: \"\""), internalerr.CodeConfigParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSettings(tt.path)
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !internalerr.IsCode(err, tt.code) {
				t.Errorf("Expected code %v, got %v", tt.code, err)
			}
			if !errors.Is(err, internalerr.ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"PROOFLINE_SERVER__ADDR": "server.addr",
		"PROOFLINE_CACHE_SIZE":   "cache_size",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoaderFromSettings(t *testing.T) {
	s := DefaultSettings()
	s.Resources.Catalogs = []string{"a.xml"}
	s.CacheSize = 10

	l := LoaderFromSettings(s)
	if l.Language != "en" {
		t.Errorf("Language = %q", l.Language)
	}
	if !reflect.DeepEqual(l.CatalogPaths, []string{"a.xml"}) {
		t.Errorf("CatalogPaths = %v", l.CatalogPaths)
	}
	if l.CacheSize != 10 {
		t.Errorf("CacheSize = %d", l.CacheSize)
	}
	if !l.BuiltinRules {
		t.Error("BuiltinRules should be set")
	}
}
