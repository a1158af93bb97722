package main

import (
	"flag"
	"log"
	"time"

	"docchat/internal/stub"
)

func main() {
	addr := flag.String("addr", ":8000", "listen address")
	step := flag.Duration("step", 2*time.Second, "delay between ingestion milestones")
	workers := flag.Int("workers", 2, "concurrent simulated ingestions")
	flag.Parse()

	server := stub.NewServer(stub.Options{StepDelay: *step, Workers: *workers})
	defer server.Close()

	log.Printf("stub backend listening on %s (milestone step %s)", *addr, *step)
	if err := server.Router().Run(*addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
