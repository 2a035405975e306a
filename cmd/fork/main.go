// fork produces a forked genesis spec from a live chain: it fetches
// the chain's storage in chunks, selects the module subset worth
// keeping, and splices it with the fixed overrides into a fresh spec.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/luxfi/fork"
	"github.com/luxfi/fork/rpc"
	"github.com/luxfi/fork/snapshot"
	"github.com/luxfi/fork/specgen"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:           "fork",
		Short:         "produce a forked genesis spec from a live chain's state",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, v)
		},
	}

	flags := cmd.Flags()
	flags.String("endpoint", "http://localhost:9933", "source chain RPC endpoint")
	flags.String("chain", "", "source chain identifier (required)")
	flags.String("data-dir", "data", "artifact directory")
	flags.Int("levels", 1, "keyspace chunk depth (256^levels leaf chunks)")
	flags.Bool("quick", false, "fetch the 256 leaves of each parent chunk concurrently")
	flags.String("at-block", "", "pin range queries to a block hash or number")
	flags.String("binary", "", "chain binary path (default <data-dir>/binaries/chain-binary)")
	flags.String("runtime", "", "runtime wasm blob path (default <data-dir>/runtime.wasm)")
	flags.String("metadata", "", "module metadata JSON path (default <data-dir>/metadata.json)")
	flags.String("snapshot", "", "snapshot cache path (default <data-dir>/storage.json)")
	flags.String("output", "", "forked spec output path (default <data-dir>/fork.json)")
	flags.String("overrides", "", "override table JSON path (default: built-in table)")
	flags.String("kv-mirror", "", "also mirror fetched pairs into a pebble db at this path")

	v.SetEnvPrefix("FORK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlags(flags)

	_ = cmd.MarkFlagRequired("chain")
	return cmd
}

func buildConfig(v *viper.Viper) fork.Config {
	cfg := fork.DefaultConfig(v.GetString("data-dir"))
	cfg.Endpoint = v.GetString("endpoint")
	cfg.ChainID = v.GetString("chain")
	cfg.ChunkLevels = v.GetInt("levels")
	cfg.QuickMode = v.GetBool("quick")
	cfg.AtBlock = v.GetString("at-block")

	if p := v.GetString("binary"); p != "" {
		cfg.Binary = p
	}
	if p := v.GetString("runtime"); p != "" {
		cfg.RuntimePath = p
	}
	if p := v.GetString("metadata"); p != "" {
		cfg.MetadataPath = p
	}
	if p := v.GetString("snapshot"); p != "" {
		cfg.SnapshotPath = p
	}
	if p := v.GetString("output"); p != "" {
		cfg.OutputPath = p
	}
	return cfg
}

func run(cmd *cobra.Command, v *viper.Viper) error {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	cfg := buildConfig(v)
	ctx := cmd.Context()

	// Missing prerequisites are fatal before anything is written.
	if err := specgen.CheckPrerequisites(cfg.Binary, cfg.RuntimePath, cfg.MetadataPath); err != nil {
		return err
	}

	gen := specgen.Generator{Binary: cfg.Binary, Log: log}
	if err := gen.BuildSpec(ctx, cfg.ChainID, cfg.OriginalPath); err != nil {
		return err
	}
	if err := gen.BuildSpec(ctx, "", cfg.ForkedPath); err != nil {
		return err
	}

	runtimeHex, err := specgen.HexifyRuntime(cfg.RuntimePath)
	if err != nil {
		return err
	}

	if snapshot.Cached(cfg.SnapshotPath) {
		log.Info().Str("path", cfg.SnapshotPath).Msg("snapshot cache present, skipping fetch")
	} else if err := fetchState(ctx, cfg, v.GetString("kv-mirror"), log); err != nil {
		return err
	}

	pairs, err := snapshot.Read(cfg.SnapshotPath)
	if err != nil {
		return err
	}

	meta, err := fork.LoadMetadata(cfg.MetadataPath)
	if err != nil {
		return err
	}
	prefixes, err := fork.BuildPrefixSet(meta, fork.DefaultSkipModules(), fork.DefaultPinnedPrefixes())
	if err != nil {
		return err
	}

	overrides := fork.DefaultOverrides()
	if p := v.GetString("overrides"); p != "" {
		if overrides, err = fork.LoadOverrides(p); err != nil {
			return err
		}
	}

	original, err := fork.ReadSpec(cfg.OriginalPath)
	if err != nil {
		return err
	}
	forked, err := fork.ReadSpec(cfg.ForkedPath)
	if err != nil {
		return err
	}

	if err := fork.Splice(original, forked, pairs, prefixes, runtimeHex, overrides); err != nil {
		return err
	}
	if err := fork.WriteSpec(cfg.OutputPath, forked); err != nil {
		return err
	}

	log.Info().
		Str("name", forked.Name).
		Int("pairs", len(pairs)).
		Str("output", cfg.OutputPath).
		Msg("forked spec written")
	return nil
}

func fetchState(ctx context.Context, cfg fork.Config, mirrorPath string, log zerolog.Logger) error {
	client, err := rpc.NewClient(cfg.Endpoint)
	if err != nil {
		return err
	}

	if chain, err := client.SystemChain(ctx); err == nil {
		log.Info().Str("chain", chain).Str("endpoint", cfg.Endpoint).Msg("connected")
	}

	at, err := client.ResolveBlock(ctx, cfg.AtBlock)
	if err != nil {
		return err
	}

	chunker, err := fork.NewKeyspaceChunker(cfg.ChunkLevels)
	if err != nil {
		return err
	}

	sess := snapshot.Session{
		Source:  client,
		Chunker: chunker,
		At:      at,
		Quick:   cfg.QuickMode,
		Observe: fork.NewBarObserver(chunker.TotalChunks(), "fetching chunks"),
		Log:     log,
	}
	if mirrorPath != "" {
		store, err := snapshot.OpenStore(mirrorPath)
		if err != nil {
			return err
		}
		defer store.Close()
		sess.Mirrors = []fork.ChunkSink{store}
	}

	return sess.EnsureSnapshot(ctx, cfg.SnapshotPath)
}
