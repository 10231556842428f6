package constants

import (
	"context"
	"io"
	"math/big"

	"github.com/bufbuild/protocompile"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Proto exposes protobuf enum values as constants. Every value is
// reachable as NAME, Enum.NAME and its fully qualified name.
type Proto struct {
	values map[string]*big.Int
}

// LoadProto compiles files (relative to importPaths) read through fsys.
func LoadProto(ctx context.Context, fsys afero.Fs, importPaths []string, files ...string) (*Proto, error) {
	p := &Proto{values: make(map[string]*big.Int)}
	if len(files) == 0 {
		return p, nil
	}

	compiler := protocompile.Compiler{
		Resolver: protocompile.WithStandardImports(&protocompile.SourceResolver{
			ImportPaths: importPaths,
			Accessor: func(path string) (io.ReadCloser, error) {
				return fsys.Open(path)
			},
		}),
	}

	compiled, err := compiler.Compile(ctx, files...)
	if err != nil {
		return nil, errors.Errorf("compiling proto files %v: %w", files, err)
	}

	for _, f := range compiled {
		p.addEnums(f.Enums())
		p.addMessages(f.Messages())
	}

	zerolog.Ctx(ctx).Debug().Strs("files", files).Int("values", len(p.values)).Msg("loaded proto enum values")

	return p, nil
}

func (p *Proto) addMessages(msgs protoreflect.MessageDescriptors) {
	for i := 0; i < msgs.Len(); i++ {
		m := msgs.Get(i)
		p.addEnums(m.Enums())
		p.addMessages(m.Messages())
	}
}

func (p *Proto) addEnums(enums protoreflect.EnumDescriptors) {
	for i := 0; i < enums.Len(); i++ {
		e := enums.Get(i)
		vals := e.Values()
		for j := 0; j < vals.Len(); j++ {
			v := vals.Get(j)
			n := big.NewInt(int64(v.Number()))
			for _, key := range []string{
				string(v.Name()),
				string(e.Name()) + "." + string(v.Name()),
				string(v.FullName()),
			} {
				if _, exists := p.values[key]; !exists {
					p.values[key] = n
				}
			}
		}
	}
}

func (p *Proto) ResolveConstant(ctx context.Context, name string) (*big.Int, bool, error) {
	v, ok := p.values[name]
	if !ok {
		return nil, false, nil
	}
	return new(big.Int).Set(v), true, nil
}
