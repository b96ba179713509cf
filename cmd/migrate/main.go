package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"

	"github.com/rajyashhh/mandinex-truck-application/internal/config"
	"github.com/rajyashhh/mandinex-truck-application/internal/migrations"
)

func main() {
	config.LoadDotEnvUp(8)

	var (
		direction = flag.String("direction", "up", "up|down|version")
		steps     = flag.Int("steps", 0, "number of steps (0 = all)")
		force     = flag.Int("force", -1, "force the schema version after a failed migration")
	)
	flag.Parse()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "POSTGRES_DSN is required")
		os.Exit(2)
	}

	m, err := migrations.New(dsn)
	if err != nil {
		fmt.Fprintln(os.Stderr, "migrate init error:", err)
		os.Exit(1)
	}
	defer m.Close()

	if *force >= 0 {
		if err := m.Force(*force); err != nil {
			fmt.Fprintln(os.Stderr, "force error:", err)
			os.Exit(1)
		}
		fmt.Println("migrations: forced version", *force)
		return
	}

	switch *direction {
	case "up":
		if *steps > 0 {
			err = m.Steps(*steps)
		} else {
			err = m.Up()
		}
	case "down":
		if *steps > 0 {
			err = m.Steps(-*steps)
		} else {
			err = m.Down()
		}
	case "version":
		v, dirty, verr := m.Version()
		if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
			fmt.Fprintln(os.Stderr, "version error:", verr)
			os.Exit(1)
		}
		fmt.Printf("migrations: version %d dirty=%t\n", v, dirty)
		return
	default:
		fmt.Fprintln(os.Stderr, "invalid -direction, must be up|down|version")
		os.Exit(2)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		fmt.Fprintln(os.Stderr, "migration error:", err)
		os.Exit(1)
	}

	fmt.Println("migrations:", *direction, "ok")
}
