package main

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/encapgen/pkg/config"
	"github.com/walteh/encapgen/pkg/constants"
	"github.com/walteh/encapgen/pkg/emitter"
	"github.com/walteh/encapgen/pkg/generate"
)

// optionFlags are the generation settings shared by generate, check and
// serve-lsp. A flag given on the command line overrides the config file.
type optionFlags struct {
	flags *pflag.FlagSet

	configPath     string
	pkg            string
	outputDir      string
	suffix         string
	aliasPolicy    string
	iterator       string
	prefixVariants bool
	emptyToken     string
	separator      string
	arithmetic     bool

	consts     []string
	goPackages []string
	protoFiles []string
	protoPaths []string
}

func (o *optionFlags) bind(fs *pflag.FlagSet, output bool) {
	o.flags = fs
	defaults := emitter.DefaultOptions()

	fs.StringVar(&o.configPath, "config", "", "config file (default: nearest .encapgen.hcl or .encapgen.yaml)")
	fs.StringArrayVar(&o.consts, "const", nil, "external constant as NAME=VALUE (repeatable)")
	fs.StringSliceVar(&o.goPackages, "go-package", nil, "go package patterns to resolve external constants from")
	fs.StringSliceVar(&o.protoFiles, "proto", nil, "proto files to resolve external constants from")
	fs.StringSliceVar(&o.protoPaths, "proto-path", nil, "import paths for --proto")
	fs.BoolVar(&o.prefixVariants, "prefix-variants", defaults.PrefixVariants, "prefix variant names with the type name")

	if !output {
		return
	}
	fs.StringVar(&o.pkg, "package", "", "package clause of the generated files")
	fs.StringVar(&o.outputDir, "output-dir", "", "directory for generated files (default: next to the input)")
	fs.StringVar(&o.suffix, "suffix", generate.DefaultSuffix, "suffix replacing .encap in output file names")
	fs.StringVar(&o.aliasPolicy, "alias-policy", string(emitter.AliasFirst), "names reported for shared bit patterns (first, all)")
	fs.StringVar(&o.iterator, "iterator", string(emitter.IterAuto), "Iter style (auto, seq, legacy)")
	fs.StringVar(&o.emptyToken, "empty-token", defaults.EmptyToken, "String() of a zero value with no zero variant")
	fs.StringVar(&o.separator, "separator", defaults.Separator, "separator between names in String()")
	fs.BoolVar(&o.arithmetic, "arithmetic", defaults.Arithmetic, "generate arithmetic methods")
}

func (o *optionFlags) changed(name string) bool {
	f := o.flags.Lookup(name)
	return f != nil && f.Changed
}

// resolve loads the config for dir and applies the flags on top.
func (o *optionFlags) resolve(ctx context.Context, fsys afero.Fs, dir string) (generate.Options, error) {
	var cfg *config.Config
	var err error
	if o.configPath != "" {
		cfg, err = config.Load(fsys, o.configPath)
	} else {
		cfg, err = config.Find(ctx, fsys, dir)
	}
	if err != nil {
		return generate.Options{}, err
	}

	opts, err := generate.FromConfig(ctx, fsys, cfg)
	if err != nil {
		return opts, err
	}

	if o.changed("package") {
		opts.Emit.Package = o.pkg
	}
	if o.changed("output-dir") {
		opts.OutputDir = o.outputDir
	}
	if o.changed("suffix") {
		opts.OutputSuffix = o.suffix
	}
	if o.changed("alias-policy") {
		if opts.Emit.AliasPolicy, err = emitter.ParseAliasPolicy(o.aliasPolicy); err != nil {
			return opts, err
		}
	}
	if o.changed("iterator") {
		if opts.Emit.IterStyle, err = emitter.ParseIterStyle(o.iterator); err != nil {
			return opts, err
		}
	}
	if o.changed("prefix-variants") {
		opts.Emit.PrefixVariants = o.prefixVariants
	}
	if o.changed("empty-token") {
		opts.Emit.EmptyToken = o.emptyToken
	}
	if o.changed("separator") {
		opts.Emit.Separator = o.separator
	}
	if o.changed("arithmetic") {
		opts.Emit.Arithmetic = o.arithmetic
	}

	chain, err := o.constants(ctx, fsys, dir)
	if err != nil {
		return opts, err
	}
	if len(chain) > 0 {
		if opts.Constants != nil {
			chain = append(chain, opts.Constants)
		}
		opts.Constants = chain
	}

	zerolog.Ctx(ctx).Debug().
		Str("config", cfg.Path).
		Str("package", opts.Emit.Package).
		Str("alias_policy", string(opts.Emit.AliasPolicy)).
		Str("iterator", string(opts.Emit.IterStyle)).
		Msg("resolved options")

	return opts, nil
}

// constants builds the resolvers named on the command line. They are
// consulted before the config's.
func (o *optionFlags) constants(ctx context.Context, fsys afero.Fs, dir string) (constants.Chain, error) {
	var chain constants.Chain

	if len(o.consts) > 0 {
		raw := make(map[string]string, len(o.consts))
		for _, kv := range o.consts {
			name, value, ok := strings.Cut(kv, "=")
			if !ok || name == "" {
				return nil, errors.Errorf("--const %q: want NAME=VALUE", kv)
			}
			raw[name] = value
		}
		m, err := constants.ParseMap(raw)
		if err != nil {
			return nil, errors.Errorf("--const: %w", err)
		}
		chain = append(chain, m)
	}

	if len(o.goPackages) > 0 {
		gp, err := constants.LoadGoPackages(ctx, dir, o.goPackages...)
		if err != nil {
			return nil, err
		}
		chain = append(chain, gp)
	}

	if len(o.protoFiles) > 0 {
		paths := o.protoPaths
		if len(paths) == 0 {
			paths = []string{dir}
		}
		pr, err := constants.LoadProto(ctx, fsys, paths, o.protoFiles...)
		if err != nil {
			return nil, err
		}
		chain = append(chain, pr)
	}

	return chain, nil
}
