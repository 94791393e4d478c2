// Command setadmin promotes an existing profile to admin, for bootstrapping the first admin.
package main

import (
	"flag"    // Command line flags
	"strings" // Email normalization

	"group_savings/internal/config" // Custom import path (Config)
	"group_savings/internal/db"     // Custom import path (Database)
	"group_savings/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus" // Logrus for structured logging
)

func main() {
	email := flag.String("email", "", "email of the profile to promote")
	flag.Parse()
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *email == "" {
		logrus.Fatal("-email is required")
	}

	cfg := config.LoadConfig() // Load configuration
	gdb, err := db.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}
	if err := db.CheckSchema(gdb); err != nil {
		logrus.Fatalf("schema check failed: %v", err)
	}

	res := gdb.Model(&domain.Profile{}).
		Where("email = ?", strings.ToLower(strings.TrimSpace(*email))).
		Update("is_admin", true)
	if res.Error != nil {
		logrus.Fatalf("failed to promote %s: %v", *email, res.Error)
	}
	if res.RowsAffected == 0 {
		logrus.Fatalf("no profile with email %s", *email)
	}
	logrus.WithField("email", *email).Info("Profile promoted to admin")
}
