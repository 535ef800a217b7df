// Command admintoken issues a signed token for the review endpoints.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"citas/config"
	"citas/internal/infra/auth"
)

func main() {
	subject := flag.String("subject", "", "administrator identifier (email)")
	roles := flag.String("roles", "", "comma-separated roles, defaults to admin.role")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	if *subject == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.New()
	if err != nil {
		slog.Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	tokens, err := auth.NewJWTService(cfg)
	if err != nil {
		slog.Error("Failed to create token service", slog.Any("error", err))
		os.Exit(1)
	}

	roleList := []string{cfg.Admin.Role}
	if *roles != "" {
		roleList = strings.Split(*roles, ",")
	}

	token, err := tokens.IssueToken(*subject, roleList, *ttl)
	if err != nil {
		slog.Error("Failed to issue token", slog.Any("error", err))
		os.Exit(1)
	}

	fmt.Println(token)
}
