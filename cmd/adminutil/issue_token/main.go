package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sudo-init-do/resalehub/internal/config"
	"github.com/sudo-init-do/resalehub/internal/utils"
)

func main() {
	addr := flag.String("address", "", "wallet address to issue the token for (0x...)")
	role := flag.String("role", utils.RoleTrader, "token role: trader or arbiter")
	ttl := flag.Duration("ttl", 0, "token lifetime (defaults to the configured TOKEN_TTL)")
	cfgPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	if *addr == "" {
		log.Fatalf("usage: go run ./cmd/adminutil/issue_token -address 0xabc... [-role arbiter]")
	}
	if *role != utils.RoleTrader && *role != utils.RoleArbiter {
		log.Fatalf("unknown role %q", *role)
	}

	cfg, err := config.LoadAndValidate(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *ttl == 0 {
		*ttl = cfg.Auth.TokenTTL
	}

	// arbiter rights come from ARBITER_ADDRESSES; the role claim alone only
	// opens the /admin routes
	address := strings.ToLower(*addr)
	tok, err := utils.IssueToken([]byte(cfg.Auth.JWTSecret), address, *role, *ttl, time.Now())
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Println(tok)
}
