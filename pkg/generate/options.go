package generate

import (
	"context"

	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/encapgen/pkg/config"
	"github.com/walteh/encapgen/pkg/constants"
	"github.com/walteh/encapgen/pkg/emitter"
)

// DefaultSuffix is appended to the input base name to form the output file.
const DefaultSuffix = "_encap.go"

type Options struct {
	Emit emitter.Options
	// Constants resolves external constants; nil means none.
	Constants constants.Resolver
	// OutputDir overrides the directory generated files are written to.
	OutputDir    string
	OutputSuffix string
	// DryRun generates and checks everything but writes nothing.
	DryRun bool
	// Concurrency bounds how many files are generated at once; zero or
	// less means GOMAXPROCS.
	Concurrency int
}

func DefaultOptions() Options {
	return Options{
		Emit:         emitter.DefaultOptions(),
		OutputSuffix: DefaultSuffix,
	}
}

// FromConfig applies cfg on top of the defaults and loads the constant
// sources it names.
func FromConfig(ctx context.Context, fsys afero.Fs, cfg *config.Config) (Options, error) {
	opts := DefaultOptions()
	if cfg == nil {
		return opts, nil
	}

	opts.Emit.Package = cfg.Package
	opts.OutputDir = cfg.Rel(cfg.OutputDir)
	if cfg.OutputSuffix != "" {
		opts.OutputSuffix = cfg.OutputSuffix
	}

	var err error
	if opts.Emit.AliasPolicy, err = emitter.ParseAliasPolicy(cfg.AliasPolicy); err != nil {
		return opts, errors.Errorf("config %s: %w", cfg.Path, err)
	}
	if opts.Emit.IterStyle, err = emitter.ParseIterStyle(cfg.Iterator); err != nil {
		return opts, errors.Errorf("config %s: %w", cfg.Path, err)
	}
	if cfg.PrefixVariants != nil {
		opts.Emit.PrefixVariants = *cfg.PrefixVariants
	}
	if cfg.EmptyToken != nil {
		opts.Emit.EmptyToken = *cfg.EmptyToken
	}
	if cfg.Separator != nil {
		opts.Emit.Separator = *cfg.Separator
	}
	if cfg.Arithmetic != nil {
		opts.Emit.Arithmetic = *cfg.Arithmetic
	}

	var chain constants.Chain

	if len(cfg.Constants) > 0 {
		m, err := constants.ParseMap(cfg.Constants)
		if err != nil {
			return opts, errors.Errorf("config %s: constants: %w", cfg.Path, err)
		}
		chain = append(chain, m)
	}

	if len(cfg.GoPackages) > 0 {
		gp, err := constants.LoadGoPackages(ctx, cfg.Dir(), cfg.GoPackages...)
		if err != nil {
			return opts, errors.Errorf("config %s: %w", cfg.Path, err)
		}
		chain = append(chain, gp)
	}

	if cfg.Proto != nil && len(cfg.Proto.Files) > 0 {
		importPaths := make([]string, 0, len(cfg.Proto.ImportPaths))
		for _, p := range cfg.Proto.ImportPaths {
			importPaths = append(importPaths, cfg.Rel(p))
		}
		if len(importPaths) == 0 {
			importPaths = []string{cfg.Dir()}
		}
		pr, err := constants.LoadProto(ctx, fsys, importPaths, cfg.Proto.Files...)
		if err != nil {
			return opts, errors.Errorf("config %s: %w", cfg.Path, err)
		}
		chain = append(chain, pr)
	}

	if len(chain) > 0 {
		opts.Constants = chain
	}

	return opts, nil
}
