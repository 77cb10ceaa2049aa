package main

import (
	"fmt"
	"os"

	"github.com/nicolagi/t8mesh/internal/ghost"
	"github.com/nicolagi/t8mesh/internal/meshdesc"
	"github.com/nicolagi/t8mesh/internal/mpicomm"
	"github.com/nicolagi/t8mesh/internal/partition"
	"github.com/nicolagi/t8mesh/internal/scheme"
	log "github.com/sirupsen/logrus"
)

var buildContext struct {
	desc string
}

var partitionContext struct {
	desc  string
	size  int
	level int
}

var ghostContext struct {
	desc string
	size int
}

func parseDescFile(path string) *meshdesc.Spec {
	if path == "" {
		exitUsage("-desc is required")
	}
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Could not open mesh description %q: %v", path, err)
	}
	defer func() { _ = f.Close() }()
	spec, err := meshdesc.Parse(f)
	if err != nil {
		log.Fatalf("Could not parse mesh description %q: %v", path, err)
	}
	return spec
}

// pickScheme infers a MortonScheme from the description's first tree,
// the only element classes MortonScheme refines.
func pickScheme(spec *meshdesc.Spec) *scheme.MortonScheme {
	sch, err := scheme.NewMorton(spec.Trees[0].Eclass)
	if err != nil {
		log.Fatalf("Cannot refine a mesh of class %v: %v", spec.Trees[0].Eclass, err)
	}
	return sch
}

func runBuild() {
	spec := parseDescFile(buildContext.desc)
	sch := pickScheme(spec)
	m, err := meshdesc.Build(spec, sch, mpicomm.World(), false, 0, 1)
	if err != nil {
		log.Fatalf("Could not build mesh: %v", err)
	}
	fmt.Printf("trees:      %d\n", m.NumTrees())
	fmt.Printf("dimension:  %d\n", m.Dimension())
	fmt.Printf("partitioned: %v\n", m.Partitioned())
}

func runPartition() {
	spec := parseDescFile(partitionContext.desc)
	sch := pickScheme(spec)
	w := newTabwriter()
	defer func() { _ = w.Flush() }()
	fmt.Fprintln(w, "rank\tfirst tree\tlast tree\tchild begin\tchild end\tempty")
	for rank := 0; rank < partitionContext.size; rank++ {
		b, err := partition.BoundsForRank(spec.NumTrees(), sch.Eclass().Dimension(), partitionContext.level, rank, partitionContext.size)
		if err != nil {
			log.Fatalf("Could not compute bounds for rank %d: %v", rank, err)
		}
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\t%v\n", rank, b.FirstLocalTree, b.LastLocalTree, b.ChildInTreeBegin, b.ChildInTreeEnd, b.Empty)
	}
}

func runGhost() {
	spec := parseDescFile(ghostContext.desc)
	sch := pickScheme(spec)
	cluster := mpicomm.NewCluster(ghostContext.size)

	type result struct {
		rank            int
		ghostTrees      int
		remoteProcesses []int
		processes       []int
	}
	results := make([]result, ghostContext.size)

	err := cluster.Run(func(rank int, comm mpicomm.Comm) error {
		f, _, err := meshdesc.BuildForest(spec, sch, comm, true, rank, ghostContext.size)
		if err != nil {
			return fmt.Errorf("rank %d: build forest: %w", rank, err)
		}
		layer, err := ghost.Create(f)
		if err != nil {
			return fmt.Errorf("rank %d: ghost.Create: %w", rank, err)
		}
		results[rank] = result{
			rank:            rank,
			ghostTrees:      len(layer.GhostTrees()),
			remoteProcesses: layer.RemoteProcesses(),
			processes:       layer.Processes(),
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Could not build ghost layer: %v", err)
	}

	w := newTabwriter()
	defer func() { _ = w.Flush() }()
	fmt.Fprintln(w, "rank\tghost trees\tremote processes\tdepends on")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%d\t%v\t%v\n", r.rank, r.ghostTrees, r.remoteProcesses, r.processes)
	}
}
