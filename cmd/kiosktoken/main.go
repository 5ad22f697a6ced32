// Command kiosktoken mints the bearer token a kiosk presents to the checkpoint
// API. It signs with the same JWT_SIGNING_KEY the server validates with.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"ballotgate/internal/platform/config"
	"ballotgate/internal/platform/kioskauth"
)

func main() {
	kioskID := flag.String("kiosk", "", "kiosk identifier recorded in vote envelopes (defaults to KIOSK_ID)")
	ttl := flag.Duration("ttl", 14*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if *kioskID == "" {
		*kioskID = cfg.KioskID
	}

	token, err := kioskauth.New(cfg.JWTSigningKey, "ballotgate").Issue(*kioskID, *ttl)
	if err != nil {
		slog.Error("issue kiosk token", "error", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
