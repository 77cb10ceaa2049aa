package main

import (
	"net"

	"github.com/nicolagi/t8mesh/internal/config"
	"github.com/nicolagi/t8mesh/internal/mpicomm"
	log "github.com/sirupsen/logrus"
)

var clusterContext struct {
	size int
}

// runCluster starts the rank coordinator cmd/meshd instances dial into,
// one net/rpc service for the lifetime of one multi-process ghost-layer
// demonstration (spec §5: commit and ghost.Create are collective, so
// every rank must agree on the group's size before either runs).
func runCluster(cfg *config.C) {
	l, err := net.Listen(cfg.ListenNet, cfg.ListenAddr)
	if err != nil {
		log.Fatalf("Could not listen on %s/%s: %v", cfg.ListenNet, cfg.ListenAddr, err)
	}
	coordinator := mpicomm.NewCoordinatorService(clusterContext.size)
	log.WithFields(log.Fields{
		"net":  cfg.ListenNet,
		"addr": cfg.ListenAddr,
		"size": clusterContext.size,
	}).Info("cluster: awaiting ranks")
	go func() {
		if err := mpicomm.Serve(l, coordinator); err != nil {
			log.Fatalf("Coordinator service stopped: %v", err)
		}
	}()
	awaitSignal("cluster")
	_ = l.Close()
}
