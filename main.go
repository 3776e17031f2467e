// Copyright 2025 Truthcrawl Project
//
// truthcrawl-node runs the long-running node daemon: it serves the peer
// HTTP API, crawls the URLs in its data directory's urls.txt, and syncs
// batches with the peers in its registry. Argument parsing beyond the
// data-directory flag, and the operator-facing CLI subcommands
// (publish-batch, verify-batch, verify-chain, and friends) are the thin,
// unspecified front end spec.md treats as an external collaborator —
// this binary is the daemon shell, not that CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/truthcrawl/node/pkg/config"
	"github.com/truthcrawl/node/pkg/daemon"
)

func main() {
	dataDir := flag.String("data", "", "override TRUTHCRAWL_DATA")
	flag.Parse()

	if *dataDir != "" {
		os.Setenv("TRUTHCRAWL_DATA", *dataDir)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "truthcrawl: config:", err)
		os.Exit(1)
	}

	node, err := daemon.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "truthcrawl: init node:", err)
		os.Exit(2)
	}

	logger := log.New(os.Stdout, "[node] ", log.LstdFlags)
	logger.Printf("node_id=%s data_dir=%s port=%d", node.NodeID, cfg.DataDir, cfg.Port)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	done := make(chan struct{}, 3)
	go func() {
		if err := node.Serve(ctx); err != nil {
			logger.Printf("http server: %v", err)
		}
		done <- struct{}{}
	}()
	go func() {
		node.RunCrawlLoop(ctx)
		done <- struct{}{}
	}()
	go func() {
		node.RunSyncLoop(ctx)
		done <- struct{}{}
	}()

	<-ctx.Done()
	logger.Println("shutting down")
	<-done
	<-done
	<-done
}
