// Command hashkvadmin starts a hashkv engine process: it brings up the
// NUMA-aware page pools, creates the storages named on the
// command line, starts the epoch ticker, and serves the admin/inspection
// gRPC surface, following the flag-parsing and background-serve style of
// tinySQL's cmd/server/main.go.
package main

import (
	"flag"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/numahash/hashkv/internal/engine"
	"github.com/numahash/hashkv/internal/epochtick"
	"github.com/numahash/hashkv/internal/logging"
	"github.com/numahash/hashkv/internal/rpc"
)

var (
	flagGRPC          = flag.String("grpc", ":9090", "gRPC listen address")
	flagStorages      = flag.String("storages", "", "comma-separated name:bin_bits pairs to create at startup, e.g. users:16,sessions:20")
	flagSavepoint     = flag.String("savepoint", "hashkv.savepoint", "path to the epoch savepoint file")
	flagEpochSpec     = flag.String("epoch-cron", "*/20 * * * * *", "cron spec (seconds field included) controlling epoch advance")
	flagVolatilePages = flag.Int("volatile-pages-per-node", 4096, "volatile pages to pre-allocate per NUMA node")
	flagSnapshotPages = flag.Int("snapshot-pages-per-node", 4096, "snapshot pages to pre-allocate per NUMA node")
	flagVerbose       = flag.Bool("v", false, "debug-level logging")
)

func main() {
	flag.Parse()

	minLevel := logging.LevelInfo
	if *flagVerbose {
		minLevel = logging.LevelDebug
	}
	logger := logging.New(os.Stderr, minLevel)

	eng := engine.New(engine.Config{
		VolatilePagesPerNode: *flagVolatilePages,
		SnapshotPagesPerNode: *flagSnapshotPages,
		Logger:               logger,
	})

	if err := createConfiguredStorages(eng, *flagStorages); err != nil {
		logger.Errorf("hashkvadmin: %v", err)
		os.Exit(1)
	}

	ticker, err := epochtick.New(eng.Epoch, *flagSavepoint, *flagEpochSpec, logger)
	if err != nil {
		logger.Errorf("hashkvadmin: bad epoch-cron spec: %v", err)
		os.Exit(1)
	}
	ticker.Start()
	defer ticker.Stop()

	lis, err := net.Listen("tcp", *flagGRPC)
	if err != nil {
		logger.Errorf("hashkvadmin: gRPC listen error: %v", err)
		os.Exit(1)
	}
	gs := rpc.NewGRPCServer(eng)

	serveErr := make(chan error, 1)
	go func() {
		logger.Infof("hashkvadmin: gRPC listening on %s", *flagGRPC)
		serveErr <- gs.Serve(lis)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Errorf("hashkvadmin: gRPC serve error: %v", err)
			os.Exit(1)
		}
	case sig := <-sigCh:
		logger.Infof("hashkvadmin: received %s, shutting down", sig)
		gs.GracefulStop()
	}
}

// createConfiguredStorages parses "name:bin_bits,name:bin_bits,..." and
// creates each one on node 0. An empty spec is a no-op; storages can also
// be created later via the AdminService once that grows a CreateStorage
// RPC.
func createConfiguredStorages(eng *engine.Engine, spec string) error {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil
	}
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, binBitsStr, found := strings.Cut(entry, ":")
		if !found {
			return storageSpecError(entry)
		}
		binBits, err := parseBinBits(binBitsStr)
		if err != nil {
			return err
		}
		if _, err := eng.CreateStorage(name, binBits, 0); err != nil {
			return err
		}
	}
	return nil
}

func parseBinBits(s string) (uint8, error) {
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 || v > 48 {
		return 0, storageSpecError(s)
	}
	return uint8(v), nil
}

type storageSpecError string

func (e storageSpecError) Error() string {
	return "invalid -storages entry: " + string(e)
}
