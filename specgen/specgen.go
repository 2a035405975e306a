// Package specgen drives the external chain binary that produces the
// baseline genesis specs, and converts the runtime blob to its hex
// text form.
package specgen

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/luxfi/fork"
)

// Generator invokes the chain binary's build-spec subcommand.
type Generator struct {
	Binary string
	Log    zerolog.Logger
}

// BuildSpec writes the raw genesis spec for chainID to outPath.
// An empty chainID selects the binary's development chain, producing
// the forked-spec template.
func (g Generator) BuildSpec(ctx context.Context, chainID, outPath string) error {
	args := []string{"build-spec", "--raw"}
	if chainID != "" {
		args = append(args, "--chain", chainID)
	} else {
		args = append(args, "--dev")
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create spec output: %w", err)
	}
	defer out.Close()

	g.Log.Info().Str("binary", g.Binary).Strs("args", args).Str("out", outPath).Msg("generating spec")

	cmd := exec.CommandContext(ctx, g.Binary, args...)
	cmd.Stdout = out
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w", g.Binary, strings.Join(args, " "), err)
	}
	return out.Sync()
}

// HexifyRuntime reads the runtime blob and returns its lowercase hex
// form, 0x-prefixed, ready for injection under the :code key.
func HexifyRuntime(path string) (string, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read runtime blob: %w", err)
	}
	return fork.BytesToHex(blob), nil
}

// CheckPrerequisites verifies the run's required input artifacts
// exist before anything is written, collecting every missing one.
func CheckPrerequisites(paths ...string) error {
	var result *multierror.Error
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			result = multierror.Append(result, fmt.Errorf("%s: %w", path, fork.ErrMissingArtifact))
		}
	}
	return result.ErrorOrNil()
}
