package main

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/nicolagi/t8mesh/internal/config"
	"github.com/nicolagi/t8mesh/internal/meshdesc"
	"github.com/nicolagi/t8mesh/internal/persist"
	log "github.com/sirupsen/logrus"
)

var snapshotContext struct {
	desc string
}

var restoreContext struct {
	key string
}

func runSnapshot(cfg *config.C) {
	spec := parseDescFile(snapshotContext.desc)
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(spec); err != nil {
		log.Fatalf("Could not encode mesh description: %v", err)
	}
	value := persist.Value(buf.Bytes())
	key := persist.KeyFor(value)

	store, err := persist.New(cfg)
	if err != nil {
		log.Fatalf("Could not open checkpoint store: %v", err)
	}
	if err := store.Put(key, value); err != nil {
		log.Fatalf("Could not save checkpoint: %v", err)
	}
	fmt.Println(key)
}

func runRestore(cfg *config.C) {
	if restoreContext.key == "" {
		exitUsage("-key is required")
	}
	store, err := persist.New(cfg)
	if err != nil {
		log.Fatalf("Could not open checkpoint store: %v", err)
	}
	value, err := store.Get(persist.Key(restoreContext.key))
	if err != nil {
		log.Fatalf("Could not load checkpoint %q: %v", restoreContext.key, err)
	}
	var spec meshdesc.Spec
	if err := gob.NewDecoder(bytes.NewReader(value)).Decode(&spec); err != nil {
		log.Fatalf("Could not decode checkpoint %q: %v", restoreContext.key, err)
	}
	fmt.Printf("trees: %d\n", spec.NumTrees())
	fmt.Printf("faces: %d\n", len(spec.Faces))
}
