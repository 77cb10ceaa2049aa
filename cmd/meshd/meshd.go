// Command meshd is the per-rank daemon for the networked ghost-layer
// demonstration: it dials the coordinator cmd/meshctl cluster started,
// receives its rank and the group size, builds its share of a mesh
// description over the resulting RPCComm, runs the ghost-layer algorithm,
// and logs the result. Modeled on the teacher's cmd/musclefs: a gops
// agent for runtime introspection, flag-based configuration, and a
// blocking wait for a termination signal before shutting down.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/gops/agent"
	"github.com/nicolagi/t8mesh/internal/config"
	"github.com/nicolagi/t8mesh/internal/ghost"
	"github.com/nicolagi/t8mesh/internal/meshdesc"
	"github.com/nicolagi/t8mesh/internal/mpicomm"
	log "github.com/sirupsen/logrus"
)

func main() {
	if err := agent.Listen(agent.Options{}); err != nil {
		log.Printf("Could not start gops agent: %v", err)
	}

	base := flag.String("base", config.DefaultBaseDirectoryPath, "base directory for configuration")
	coordNet := flag.String("coordinator-net", "tcp", "network for the cluster coordinator, e.g. tcp")
	coordAddr := flag.String("coordinator-addr", "", "address of the cluster coordinator started by meshctl cluster")
	descPath := flag.String("desc", "", "path to the mesh description file, shared with the rest of the cluster")
	flag.Parse()

	cfg, err := config.Load(*base)
	if err != nil {
		log.Fatalf("Could not load config from %q: %v", *base, err)
	}
	ll, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Could not parse log level %q: %v", cfg.LogLevel, err)
	}
	log.SetLevel(ll)

	if *coordAddr == "" {
		log.Fatal("-coordinator-addr is required")
	}
	if *descPath == "" {
		log.Fatal("-desc is required")
	}

	comm, err := mpicomm.Dial(*coordNet, *coordAddr)
	if err != nil {
		log.Fatalf("Could not join cluster at %s/%s: %v", *coordNet, *coordAddr, err)
	}
	rank, err := comm.Rank()
	if err != nil {
		log.Fatalf("Could not determine rank: %v", err)
	}
	size, err := comm.Size()
	if err != nil {
		log.Fatalf("Could not determine cluster size: %v", err)
	}
	log.WithFields(log.Fields{"rank": rank, "size": size}).Info("meshd: joined cluster")

	f, err := os.Open(*descPath)
	if err != nil {
		log.Fatalf("Could not open mesh description %q: %v", *descPath, err)
	}
	spec, err := meshdesc.Parse(f)
	_ = f.Close()
	if err != nil {
		log.Fatalf("Could not parse mesh description %q: %v", *descPath, err)
	}

	sch, err := schemeFor(spec)
	if err != nil {
		log.Fatalf("%v", err)
	}

	forestForRank, _, err := meshdesc.BuildForest(spec, sch, comm, true, rank, size)
	if err != nil {
		log.Fatalf("Could not build this rank's share of the mesh: %v", err)
	}

	layer, err := ghost.Create(forestForRank)
	if err != nil {
		log.Fatalf("Could not build ghost layer: %v", err)
	}
	log.WithFields(log.Fields{
		"rank":            rank,
		"ghostTrees":      len(layer.GhostTrees()),
		"remoteProcesses": layer.RemoteProcesses(),
		"dependsOn":       layer.Processes(),
	}).Info("meshd: ghost layer built")

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigc
	log.Infof("meshd: got signal %q, leaving cluster", sig)
	if err := comm.Free(); err != nil {
		log.Printf("meshd: could not free communicator: %v", err)
	}
	agent.Close()
}
