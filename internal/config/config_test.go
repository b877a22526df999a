package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

type testConfig struct {
	Config string

	StringField  string            `toml:"test.string_field" env:"STRING_FIELD"`
	BoolField    bool              `toml:"test.bool_field" env:"BOOL_FIELD"`
	IntField     int               `flag:"int" toml:"test.int_field" env:"INT_FIELD"`
	MapField     map[string]string `toml:"test.map_field" env:"MAP_FIELD"`
	NestedString string            `toml:"nested.value" env:"NESTED_VALUE"`
}

func writeTOML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfigFromTOML(t *testing.T) {
	path := writeTOML(t, `
[test]
string_field = "hello world"
bool_field = true
int_field = 42

[test.map_field]
rtbufsize = "2000"
framerate = 30

[nested]
value = "nested value"
`)

	cfg := &testConfig{Config: path}
	if err := LoadConfig(cfg, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.StringField != "hello world" {
		t.Errorf("Expected StringField to be 'hello world', got '%s'", cfg.StringField)
	}
	if !cfg.BoolField {
		t.Errorf("Expected BoolField to be true, got %v", cfg.BoolField)
	}
	if cfg.IntField != 42 {
		t.Errorf("Expected IntField to be 42, got %d", cfg.IntField)
	}
	expectedMap := map[string]string{"rtbufsize": "2000", "framerate": "30"}
	if !reflect.DeepEqual(cfg.MapField, expectedMap) {
		t.Errorf("Expected MapField to be %v, got %v", expectedMap, cfg.MapField)
	}
	if cfg.NestedString != "nested value" {
		t.Errorf("Expected NestedString to be 'nested value', got '%s'", cfg.NestedString)
	}
}

func TestLoadConfigEnvOverridesTOML(t *testing.T) {
	path := writeTOML(t, `
[test]
string_field = "toml value"
int_field = 100
`)
	t.Setenv(EnvPrefix+"STRING_FIELD", "env override")
	t.Setenv(EnvPrefix+"MAP_FIELD", "a=1, b=2")

	cfg := &testConfig{Config: path}
	if err := LoadConfig(cfg, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.StringField != "env override" {
		t.Errorf("Expected StringField to be 'env override', got '%s'", cfg.StringField)
	}
	if cfg.IntField != 100 {
		t.Errorf("Expected IntField to be 100 (from TOML), got %d", cfg.IntField)
	}
	expectedMap := map[string]string{"a": "1", "b": "2"}
	if !reflect.DeepEqual(cfg.MapField, expectedMap) {
		t.Errorf("Expected MapField to be %v, got %v", expectedMap, cfg.MapField)
	}
}

func TestLoadConfigCLIWins(t *testing.T) {
	path := writeTOML(t, `
[test]
int_field = 100
`)
	t.Setenv(EnvPrefix+"INT_FIELD", "200")

	cfg := &testConfig{Config: path}
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().IntVar(&cfg.IntField, "int", 0, "")
	if err := cmd.Flags().Parse([]string{"--int=7"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if err := LoadConfig(cfg, cmd); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.IntField != 7 {
		t.Errorf("Expected CLI value 7 to win, got %d", cfg.IntField)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg := &testConfig{Config: filepath.Join(t.TempDir(), "nonexistent.toml")}
	if err := LoadConfig(cfg, nil); err != nil {
		t.Fatalf("LoadConfig should not fail for missing file: %v", err)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	cfg := &testConfig{Config: writeTOML(t, "[test\ninvalid toml syntax\n")}
	if err := LoadConfig(cfg, nil); err == nil {
		t.Error("Expected LoadConfig to fail with invalid TOML")
	}
}

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"level1": map[string]any{
			"level2": map[string]any{"value": "nested_value"},
			"simple": "simple_value",
		},
		"root": "root_value",
	}

	tests := []struct {
		path     string
		expected any
	}{
		{"root", "root_value"},
		{"level1.simple", "simple_value"},
		{"level1.level2.value", "nested_value"},
		{"nonexistent", nil},
		{"level1.nonexistent", nil},
		{"root.child", nil},
	}

	for _, tt := range tests {
		if got := getNestedValue(data, tt.path); got != tt.expected {
			t.Errorf("getNestedValue(%q) = %v, expected %v", tt.path, got, tt.expected)
		}
	}
}

func TestFieldNameToFlag(t *testing.T) {
	if got := fieldNameToFlag("LoggingLevel"); got != "logging-level" {
		t.Errorf("Expected 'logging-level', got %q", got)
	}
}

func TestLoadLoggingConfig(t *testing.T) {
	path := writeTOML(t, `
[logging]
level = "warn"
format = "json"
capture = "debug"
libav = "error"
`)

	cfg := LoadLoggingConfig(path)
	if cfg.Level != "warn" || cfg.Format != "json" {
		t.Errorf("Expected warn/json, got %s/%s", cfg.Level, cfg.Format)
	}
	if cfg.Modules["capture"] != "debug" || cfg.Modules["libav"] != "error" {
		t.Errorf("Unexpected module levels: %v", cfg.Modules)
	}

	def := LoadLoggingConfig("")
	if def.Level != "info" || def.Format != "text" {
		t.Errorf("Expected defaults info/text, got %s/%s", def.Level, def.Format)
	}
}

func TestDescriptors(t *testing.T) {
	tests := []struct {
		id          ParamID
		displayName string
		key         string
	}{
		{ParamFile, "file destination", "-f"},
		{ParamDuration, "capture duration in seconds", "-d"},
		{ParamVideoID, "video device ID", "-v"},
		{ParamVideoName, "video device name", "-video_name"},
		{ParamAudioID, "audio device ID", "-a"},
		{ParamAudioName, "audio device name", "-audio_name"},
	}

	for _, tt := range tests {
		d, ok := Lookup(tt.id)
		if !ok {
			t.Fatalf("Expected descriptor for %d", tt.id)
		}
		if d.DisplayName != tt.displayName || d.Key != tt.key {
			t.Errorf("Descriptor %d = (%q, %q), want (%q, %q)", tt.id, d.DisplayName, d.Key, tt.displayName, tt.key)
		}
	}

	if len(Params()) != len(tests) {
		t.Errorf("Expected %d params, got %d", len(tests), len(Params()))
	}

	// callers get a copy of the ordering
	p := Params()
	p[0] = ParamAudioName
	if Params()[0] != ParamFile {
		t.Error("Expected Params to return a copy")
	}

	if d, _ := Lookup(ParamFile); d.Shorthand() != "f" {
		t.Errorf("Expected shorthand 'f', got %q", d.Shorthand())
	}
	if d, _ := Lookup(ParamVideoName); d.Shorthand() != "" {
		t.Errorf("Expected no shorthand, got %q", d.Shorthand())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Options)
		wantErr bool
		mention string
	}{
		{"valid", func(o *Options) { o.Destination = "out.mp4"; o.VideoID = 0 }, false, ""},
		{"missing file", func(o *Options) { o.VideoID = 0 }, true, "file destination"},
		{"missing video", func(o *Options) { o.Destination = "out.mp4" }, true, "video device ID"},
		{"test source needs no video", func(o *Options) { o.Destination = "out.mp4"; o.TestSource = true }, false, ""},
		{"zero duration", func(o *Options) { o.Destination = "out.mp4"; o.VideoID = 0; o.Duration = 0 }, true, "capture duration"},
		{"bad audio", func(o *Options) { o.Destination = "out.mp4"; o.VideoID = 0; o.AudioID = -4 }, true, "audio device ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := Defaults()
			tt.mutate(&o)
			err := o.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("Expected ErrConfiguration, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.mention) {
				t.Errorf("Expected error to mention %q, got %v", tt.mention, err)
			}
		})
	}
}

func TestDefaultDuration(t *testing.T) {
	o := Defaults()
	if o.Duration != 5 {
		t.Errorf("Expected default duration 5, got %d", o.Duration)
	}
	if o.HasAudio() {
		t.Error("Expected no audio by default")
	}
}

func TestPrintParams(t *testing.T) {
	o := Defaults()
	o.Destination = "out.mp4"
	o.VideoID = 0
	o.VideoName = "USB Camera"

	var b strings.Builder
	PrintParams(&b, &o)
	out := b.String()

	for _, want := range []string{
		"[file destination] = out.mp4\n",
		"[capture duration in seconds] = 5\n",
		"[video device ID] = 0\n",
		"[video device name] = USB Camera\n",
		"[audio device ID] = \n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}

	b.Reset()
	PrintInfo(&b)
	if strings.Contains(b.String(), "-video_name") {
		t.Error("Expected internal parameters to be hidden from usage")
	}
	if !strings.Contains(b.String(), "-f=<value>") {
		t.Errorf("Expected usage to list -f, got:\n%s", b.String())
	}
}
