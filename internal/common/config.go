package common

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"
)

// ManifestFile is the manifest looked up in the working directory when no
// path is given on the command line
const ManifestFile = "foreigntest.toml"

// ConfigTablePath is the dotted location of the configuration table
var ConfigTablePath = []string{"package", "metadata", "foreigntest"}

var (
	ErrManifestRead  = errors.New("failed to open manifest")
	ErrManifestParse = errors.New("failed to parse manifest")
	ErrTableMissing  = errors.New("failed to find configuration table package.metadata.foreigntest")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config represents the package.metadata.foreigntest table
type Config struct {
	// ProjectPath is the root of the native project under test. It should be
	// absolute; a relative value is taken from the manifest's directory.
	ProjectPath string `toml:"project_path" validate:"required"`
	// CompileCommandsPath locates the compile-command database, relative to ProjectPath
	CompileCommandsPath string `toml:"compile_commands_path" validate:"required"`
	// SupportHeaderFilesPath names a header whose directory is needed only for
	// include resolution
	SupportHeaderFilesPath *string `toml:"support_header_files_path"`
	// ExcludeHeaderFilesPaths are removed from the header selection
	ExcludeHeaderFilesPaths []string `toml:"exclude_header_files_paths"`
	// ExtraHeaderFilesPaths are appended to the header selection
	ExtraHeaderFilesPaths []string `toml:"extra_header_files_paths"`
	CompileArgs           []string `toml:"compile_args"`
	LinkerArgs            []string `toml:"linker_args"`
}

// configField applies one table entry; ok is false when the value has the
// wrong shape for the key
type configField func(cfg *Config, value interface{}, logger arbor.ILogger) (ok bool)

var configFields = map[string]configField{
	"project_path": func(cfg *Config, v interface{}, _ arbor.ILogger) bool {
		s, ok := v.(string)
		cfg.ProjectPath = s
		return ok
	},
	"compile_commands_path": func(cfg *Config, v interface{}, _ arbor.ILogger) bool {
		s, ok := v.(string)
		cfg.CompileCommandsPath = s
		return ok
	},
	"support_header_files_path": func(cfg *Config, v interface{}, _ arbor.ILogger) bool {
		s, ok := v.(string)
		if ok {
			cfg.SupportHeaderFilesPath = &s
		}
		return ok
	},
	"exclude_header_files_paths": stringArrayField(func(c *Config) *[]string { return &c.ExcludeHeaderFilesPaths }, "exclude_header_files_paths"),
	"extra_header_files_paths":   stringArrayField(func(c *Config) *[]string { return &c.ExtraHeaderFilesPaths }, "extra_header_files_paths"),
	"compile_args":               stringArrayField(func(c *Config) *[]string { return &c.CompileArgs }, "compile_args"),
	"linker_args":                stringArrayField(func(c *Config) *[]string { return &c.LinkerArgs }, "linker_args"),
}

func stringArrayField(target func(*Config) *[]string, key string) configField {
	return func(cfg *Config, v interface{}, logger arbor.ILogger) bool {
		arr, ok := v.([]interface{})
		if !ok {
			return false
		}
		*target(cfg) = ParseStringArray(arr, key, logger)
		return true
	}
}

// ParseStringArray keeps the string elements of a TOML array in order.
// Other elements are dropped without failing the load.
func ParseStringArray(arr []interface{}, key string, logger arbor.ILogger) []string {
	parsed := make([]string, 0, len(arr))
	for i, v := range arr {
		s, ok := v.(string)
		if !ok {
			if logger != nil {
				logger.Debug().
					Str("key", key).
					Int("index", i).
					Str("type", fmt.Sprintf("%T", v)).
					Msg("Dropping non-string array element")
			}
			continue
		}
		parsed = append(parsed, s)
	}
	return parsed
}

// LoadManifest reads the manifest at path and returns its foreigntest table.
// Any unrecognized key or wrongly shaped value rejects the whole table.
func LoadManifest(path string, logger arbor.ILogger) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrManifestRead, path, err)
	}
	return ParseManifest(data, logger)
}

// ParseManifest decodes manifest bytes; see LoadManifest
func ParseManifest(data []byte, logger arbor.ILogger) (*Config, error) {
	var doc map[string]interface{}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestParse, err)
	}

	var node interface{} = doc
	for _, key := range ConfigTablePath {
		table, ok := node.(map[string]interface{})
		if !ok {
			return nil, ErrTableMissing
		}
		if node, ok = table[key]; !ok {
			return nil, ErrTableMissing
		}
	}
	table, ok := node.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: package.metadata.foreigntest is not a table", ErrTableMissing)
	}

	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cfg := &Config{}
	for _, key := range keys {
		apply, known := configFields[key]
		if !known {
			return nil, fmt.Errorf("%w: unrecognized key %q", ErrInvalidConfig, key)
		}
		if !apply(cfg, table[key], logger) {
			return nil, fmt.Errorf("%w: key %q has unexpected type %T", ErrInvalidConfig, key, table[key])
		}
	}

	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, fmt.Errorf("%w: %s is required", ErrInvalidConfig, tomlName(verrs[0].StructField()))
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return cfg, nil
}

func tomlName(field string) string {
	if f, ok := reflect.TypeOf(Config{}).FieldByName(field); ok {
		if tag := f.Tag.Get("toml"); tag != "" {
			return tag
		}
	}
	return field
}
