// Command meshctl is the CLI front end for the coarse mesh / ghost layer
// module: it builds and inspects a mesh from a text description, prints
// uniform partition bounds, runs the ghost-layer algorithm across a
// simulated cluster, saves and restores checkpoints, and starts the
// cluster coordinator cmd/meshd instances join. Modeled on the teacher's
// cmd/muscle: one flag set per subcommand, dispatched from os.Args[1].
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/nicolagi/t8mesh/internal/config"
	log "github.com/sirupsen/logrus"
)

var version = "unknown"

var globalContext struct {
	base     string
	logLevel string
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.StringVar(&globalContext.base, "base", config.DefaultBaseDirectoryPath, "directory for configuration and checkpoints")
	var levels []string
	for _, l := range log.AllLevels {
		levels = append(levels, l.String())
	}
	fs.StringVar(&globalContext.logLevel, "verbosity", "warning", "log level, among "+strings.Join(levels, ", "))
	return fs
}

func exitUsage(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	_, _ = fmt.Fprintf(os.Stderr, `Usage: %s COMMAND [ARGS]

Commands:

	build:     parse a mesh description and report its shape
	partition: print the uniform partition bounds for a cluster size
	ghost:     build the ghost layer for every rank of a simulated cluster
	snapshot:  save a mesh description to the configured checkpoint store
	restore:   load and print a mesh description from the checkpoint store
	cluster:   start the rank coordinator cmd/meshd instances join
	version:   show version information
`, os.Args[0])
	os.Exit(2)
}

func main() {
	buildFlags := newFlagSet("build")
	buildFlags.StringVar(&buildContext.desc, "desc", "", "path to the mesh description file")

	partitionFlags := newFlagSet("partition")
	partitionFlags.StringVar(&partitionContext.desc, "desc", "", "path to the mesh description file")
	partitionFlags.IntVar(&partitionContext.size, "size", 1, "number of ranks to print bounds for")
	partitionFlags.IntVar(&partitionContext.level, "level", 0, "refinement level")

	ghostFlags := newFlagSet("ghost")
	ghostFlags.StringVar(&ghostContext.desc, "desc", "", "path to the mesh description file")
	ghostFlags.IntVar(&ghostContext.size, "size", 2, "number of simulated ranks")

	snapshotFlags := newFlagSet("snapshot")
	snapshotFlags.StringVar(&snapshotContext.desc, "desc", "", "path to the mesh description file")

	restoreFlags := newFlagSet("restore")
	restoreFlags.StringVar(&restoreContext.key, "key", "", "checkpoint key, as printed by snapshot")

	clusterFlags := newFlagSet("cluster")
	clusterFlags.IntVar(&clusterContext.size, "size", 2, "number of ranks in the cluster")

	emptyFlags := newFlagSet("version")

	if len(os.Args) < 2 {
		exitUsage("Command name required")
	}

	var fs *flag.FlagSet
	switch os.Args[1] {
	case "build":
		fs = buildFlags
	case "partition":
		fs = partitionFlags
	case "ghost":
		fs = ghostFlags
	case "snapshot":
		fs = snapshotFlags
	case "restore":
		fs = restoreFlags
	case "cluster":
		fs = clusterFlags
	case "version":
		fs = emptyFlags
	default:
		exitUsage(fmt.Sprintf("%q: command not recognized", os.Args[1]))
	}
	_ = fs.Parse(os.Args[2:])

	log.SetOutput(os.Stderr)
	ll, err := log.ParseLevel(globalContext.logLevel)
	if err != nil {
		log.Fatalf("Could not parse log level %q: %v", globalContext.logLevel, err)
	}
	log.SetLevel(ll)

	cfg, err := config.Load(globalContext.base)
	if err != nil {
		log.Fatalf("Could not load config from %q: %v", globalContext.base, err)
	}

	switch os.Args[1] {
	case "build":
		runBuild()
	case "partition":
		runPartition()
	case "ghost":
		runGhost()
	case "snapshot":
		runSnapshot(cfg)
	case "restore":
		runRestore(cfg)
	case "cluster":
		runCluster(cfg)
	case "version":
		fmt.Println(version)
	default:
		panic("not reached")
	}
}

func newTabwriter() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
}

func awaitSignal(name string) {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigc
	log.Infof("%s: got signal %q, shutting down", name, sig)
}
