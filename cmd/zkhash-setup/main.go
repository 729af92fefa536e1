// Copyright 2025 Eco Protocol

// Canonical Encoding ZK Setup CLI
// Runs the one-time Groth16 trusted setup for the canonical-encoding
// commitment circuit and writes the proving/verification/constraint-system
// keys to disk, so a running prover can load them with
// zkhash.Prover.InitializeFromKeys instead of repeating the setup on
// every restart.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/eco-protocol/portal/pkg/crypto/zkhash"
)

func main() {
	pkPath := flag.String("pk", "zkhash_pk.bin", "output path for the proving key")
	vkPath := flag.String("vk", "zkhash_vk.bin", "output path for the verification key")
	csPath := flag.String("cs", "zkhash_cs.bin", "output path for the constraint system")
	vkJSON := flag.String("vk-json", "", "optional output path for the verification key as transport JSON")
	flag.Parse()

	p := zkhash.NewProver()
	fmt.Println("compiling circuit and running groth16 setup (this can take a while)...")
	if err := p.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "initialize: %v\n", err)
		os.Exit(1)
	}

	if err := p.SaveKeys(*pkPath, *vkPath, *csPath); err != nil {
		fmt.Fprintf(os.Stderr, "save keys: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote proving key to %s, verification key to %s, constraint system to %s\n", *pkPath, *vkPath, *csPath)

	if *vkJSON != "" {
		data, err := p.ExportVerificationKeyJSON()
		if err != nil {
			fmt.Fprintf(os.Stderr, "export verification key json: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*vkJSON, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "write verification key json: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote verification key json to %s\n", *vkJSON)
	}
}
