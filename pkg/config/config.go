// Package config loads .encapgen.hcl and .encapgen.yaml files.
package config

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// FileNames are the config file names Find looks for, in order.
var FileNames = []string{".encapgen.hcl", ".encapgen.yaml", ".encapgen.yml"}

type Config struct {
	Package      string `hcl:"package,optional" yaml:"package,omitempty"`
	OutputDir    string `hcl:"output_dir,optional" yaml:"output_dir,omitempty"`
	OutputSuffix string `hcl:"output_suffix,optional" yaml:"output_suffix,omitempty"`

	AliasPolicy    string  `hcl:"alias_policy,optional" yaml:"alias_policy,omitempty"`
	Iterator       string  `hcl:"iterator,optional" yaml:"iterator,omitempty"`
	PrefixVariants *bool   `hcl:"prefix_variants,optional" yaml:"prefix_variants,omitempty"`
	EmptyToken     *string `hcl:"empty_token,optional" yaml:"empty_token,omitempty"`
	Separator      *string `hcl:"separator,optional" yaml:"separator,omitempty"`
	Arithmetic     *bool   `hcl:"arithmetic,optional" yaml:"arithmetic,omitempty"`

	// Constants maps names usable in "(T) NAME" casts to integer literals.
	Constants  map[string]string `hcl:"constants,optional" yaml:"constants,omitempty"`
	GoPackages []string          `hcl:"go_packages,optional" yaml:"go_packages,omitempty"`
	Proto      *ProtoBlock       `hcl:"proto,block" yaml:"proto,omitempty"`

	// Path is the file the config was loaded from, empty for defaults.
	Path string `yaml:"-"`
}

type ProtoBlock struct {
	Files       []string `hcl:"files" yaml:"files"`
	ImportPaths []string `hcl:"import_paths,optional" yaml:"import_paths,omitempty"`
}

// Dir is the directory relative paths in the config are resolved against.
func (c *Config) Dir() string {
	if c.Path == "" {
		return "."
	}
	return filepath.Dir(c.Path)
}

// Rel resolves p against the config directory unless it is absolute.
func (c *Config) Rel(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir(), p)
}

// Find looks for a config file in dir and then in each parent directory.
// No config file is not an error; an empty Config is returned.
func Find(ctx context.Context, fsys afero.Fs, dir string) (*Config, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Errorf("resolving %s: %w", dir, err)
	}

	for d := abs; ; d = filepath.Dir(d) {
		for _, name := range FileNames {
			path := filepath.Join(d, name)
			ok, err := afero.Exists(fsys, path)
			if err != nil {
				return nil, errors.Errorf("checking %s: %w", path, err)
			}
			if ok {
				zerolog.Ctx(ctx).Debug().Str("path", path).Msg("using config file")
				return Load(fsys, path)
			}
		}
		if parent := filepath.Dir(d); parent == d {
			break
		}
	}

	zerolog.Ctx(ctx).Debug().Str("dir", abs).Msg("no config file found")
	return &Config{}, nil
}

// Load reads a config file. YAML is chosen by extension, anything else is
// parsed as HCL.
func Load(fsys afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Errorf("parsing YAML: %w", err)
		}
		cfg.Path = path
		return &cfg, nil
	}

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, path)
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	diags = gohcl.DecodeBody(hclFile.Body, evalContext(), &cfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	cfg.Path = path
	return &cfg, nil
}

// evalContext exposes the process environment as env.NAME, so
// package = env.GOPACKAGE works under go generate.
func evalContext() *hcl.EvalContext {
	env := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" || !hclIdent(k) {
			continue
		}
		env[k] = cty.StringVal(v)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(env),
		},
	}
}

func hclIdent(s string) bool {
	for i, r := range s {
		switch {
		case r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '-'):
		default:
			return false
		}
	}
	return true
}
