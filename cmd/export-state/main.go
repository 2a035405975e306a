// export-state fetches a chain's full key-value storage over RPC and
// writes it as one JSON array, without touching any spec documents.
// Useful for priming the snapshot cache or inspecting state offline.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/rs/zerolog"

	"github.com/luxfi/fork"
	"github.com/luxfi/fork/rpc"
	"github.com/luxfi/fork/snapshot"
)

func main() {
	endpoint := flag.String("endpoint", "http://localhost:9933", "source chain RPC endpoint")
	levels := flag.Int("levels", 1, "keyspace chunk depth (256^levels leaf chunks)")
	quick := flag.Bool("quick", false, "fetch the 256 leaves of each parent chunk concurrently")
	atBlock := flag.String("at-block", "", "pin range queries to a block hash or number")
	outPath := flag.String("out", "storage.json", "snapshot output path")
	mirror := flag.String("kv-mirror", "", "also mirror fetched pairs into a pebble db at this path")
	flag.Parse()

	if snapshot.Cached(*outPath) {
		log.Fatalf("Snapshot %s already exists; delete it to refetch", *outPath)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	ctx := context.Background()

	client, err := rpc.NewClient(*endpoint)
	if err != nil {
		log.Fatalf("Failed to create RPC client: %v", err)
	}
	if chain, err := client.SystemChain(ctx); err == nil {
		log.Printf("Connected to %s at %s", chain, *endpoint)
	}
	if version, err := client.GetRuntimeVersion(ctx); err == nil {
		log.Printf("Runtime: %s v%d", version.SpecName, version.SpecVersion)
	}

	at, err := client.ResolveBlock(ctx, *atBlock)
	if err != nil {
		log.Fatalf("Failed to resolve block: %v", err)
	}

	chunker, err := fork.NewKeyspaceChunker(*levels)
	if err != nil {
		log.Fatalf("Invalid chunk depth: %v", err)
	}

	sess := snapshot.Session{
		Source:  client,
		Chunker: chunker,
		At:      at,
		Quick:   *quick,
		Observe: fork.NewBarObserver(chunker.TotalChunks(), "fetching chunks"),
		Log:     logger,
	}
	if *mirror != "" {
		store, err := snapshot.OpenStore(*mirror)
		if err != nil {
			log.Fatalf("Failed to open kv mirror: %v", err)
		}
		defer store.Close()
		sess.Mirrors = []fork.ChunkSink{store}
	}

	if err := sess.EnsureSnapshot(ctx, *outPath); err != nil {
		log.Fatalf("Fetch aborted (delete %s before retrying): %v", *outPath, err)
	}

	log.Printf("Snapshot written to %s (%d leaf chunks)", *outPath, chunker.TotalChunks())
}
