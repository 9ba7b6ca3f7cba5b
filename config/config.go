package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/casbin/govaluate"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/storage-layout/errors"
)

// FileName is the config file looked up in the working directory when no path is given.
const FileName = "storage-layout.yaml"

// Config holds the project settings shared by every subcommand.
type Config struct {
	// Root is the project directory. Relative paths below are resolved against it.
	Root string `yaml:"root"`
	// Artifacts is the compiled artifacts directory.
	Artifacts string `yaml:"artifacts"`
	// Path is the export output directory.
	Path string `yaml:"path"`
	// Clear empties Path before exporting.
	Clear bool `yaml:"clear"`
	// Flat writes <Name>.json instead of <source>:<Name>.json.
	Flat bool `yaml:"flat"`
	// Only and Except filter qualified contract names by regular expression.
	Only   []string `yaml:"only"`
	Except []string `yaml:"except"`
	// Where is a boolean expression evaluated per contract before export.
	Where string `yaml:"where"`
	// Spacing is the JSON indentation width of exported files.
	Spacing int `yaml:"spacing"`
	// Compile is a shell command run in the project, and in every revision worktree,
	// before artifacts are loaded.
	Compile string `yaml:"compile"`
	// NoCompile skips Compile for the working tree. Revisions are always compiled.
	NoCompile bool `yaml:"noCompile"`
}

// Default returns the settings used when no file is present.
func Default() Config {
	return Config{
		Root:      ".",
		Artifacts: "artifacts",
		Path:      "storage_layout",
		Spacing:   2,
	}
}

// Load reads path over Default. An empty path tries FileName in the working
// directory and returns Default when it does not exist.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = FileName
	}

	f, err := os.Open(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return Default(), nil
		}
		if os.IsNotExist(err) {
			return Config{}, errors.NotFound(errors.PhaseConfig, "config file", path)
		}
		return Config{}, errors.IO(errors.PhaseConfig, path, err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return Config{}, err
	}

	// a relative root is relative to the file that declared it
	if !filepath.IsAbs(cfg.Root) {
		cfg.Root = filepath.Join(filepath.Dir(path), cfg.Root)
	}
	return cfg, nil
}

// Decode parses YAML from r over Default and validates the result.
// Unknown keys are rejected.
func Decode(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, errors.IO(errors.PhaseConfig, "", err)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Cause(err).
			Detail("malformed config").
			Build()
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the settings can be used as given.
func (c Config) Validate() error {
	if c.Root == "" {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).Path("root").Detail("must not be empty").Build()
	}
	if c.Artifacts == "" {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).Path("artifacts").Detail("must not be empty").Build()
	}
	if c.Path == "" {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).Path("path").Detail("must not be empty").Build()
	}
	if c.Spacing < 0 || c.Spacing > 10 {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).Path("spacing").Value(c.Spacing).Detail("must be between 0 and 10").Build()
	}
	for i, pattern := range c.Only {
		if _, err := regexp.Compile(pattern); err != nil {
			return errors.New(errors.PhaseConfig, errors.KindInvalidInput).Path("only", strconv.Itoa(i)).Cause(err).Detail("bad pattern").Build()
		}
	}
	for i, pattern := range c.Except {
		if _, err := regexp.Compile(pattern); err != nil {
			return errors.New(errors.PhaseConfig, errors.KindInvalidInput).Path("except", strconv.Itoa(i)).Cause(err).Detail("bad pattern").Build()
		}
	}
	if c.Where != "" {
		if _, err := govaluate.NewEvaluableExpression(c.Where); err != nil {
			return errors.New(errors.PhaseConfig, errors.KindInvalidInput).Path("where").Cause(err).Detail("bad expression").Build()
		}
	}
	return nil
}

// ProjectPath resolves p against Root unless it is absolute.
func (c Config) ProjectPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}
