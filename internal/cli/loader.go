package cli

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/loom/internal/descriptor"
	"github.com/roach88/loom/internal/manifest"
)

// loadManifest reads a manifest file and compiles it with stubbed
// handlers. Shared by the inspection commands, which work on metadata
// only and never execute handler code.
func loadManifest(path string) ([]descriptor.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("reading manifest %s", path), err)
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))

	table, err := manifest.StubTable(v)
	if err != nil {
		return nil, err
	}
	return manifest.Compile(v, table)
}

// collectAll compiles every module into a descriptor, failing on the
// first malformed module.
func collectAll(mods []descriptor.Module) ([]*descriptor.MixinDescriptor, error) {
	descs := make([]*descriptor.MixinDescriptor, 0, len(mods))
	for _, mod := range mods {
		d, err := descriptor.Collect(mod)
		if err != nil {
			return nil, err
		}
		descs = append(descs, d)
	}
	return descs, nil
}
