package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"portal/internal/app/config"
	"portal/internal/app/dsn"
	"portal/internal/app/entitlement"
	"portal/internal/app/logging"
	"portal/internal/app/repository"
)

// reconcile marks services past their expiry date as Expired and prints the
// reminders due on a day. Meant to run once a day from cron.
func main() {
	dryRun := pflag.Bool("dry-run", false, "report stale services without changing them")
	reminders := pflag.Bool("reminders", true, "print the reminders due on --date")
	date := pflag.String("date", "", "day to evaluate reminders for, YYYY-MM-DD (default today)")
	configDir := pflag.String("config-dir", "", "directory holding config.toml")
	pflag.Parse()

	var on time.Time
	if *date != "" {
		var err error
		if on, err = time.Parse(time.DateOnly, *date); err != nil {
			logrus.Fatalf("invalid --date: %v", err)
		}
	}

	var paths []string
	if *configDir != "" {
		paths = append(paths, *configDir)
	}
	cfg, err := config.NewConfig(paths...)
	if err != nil {
		logrus.Fatal(err)
	}
	logger := logging.Setup(cfg.Log)

	dsnStr := cfg.DSN
	if dsnStr == "" {
		dsnStr = dsn.FromEnv()
	}
	repo, err := repository.New(dsnStr)
	if err != nil {
		logger.Fatal(err)
	}
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	svc := entitlement.NewService(repo, clock.WallClock, logger.WithField("component", "reconcile"),
		entitlement.WithConfig(entitlement.Config{
			DefaultWindowDays:   cfg.Expiry.WindowDays,
			RenewedLookbackDays: cfg.Expiry.RenewedLookbackDays,
		}))

	result, err := svc.ReconcileExpired(ctx, *dryRun)
	if err != nil {
		logger.Fatal(err)
	}
	fmt.Printf("checked %d, expired %d, failed %d\n", result.Checked, len(result.Expired), len(result.Failed))
	for _, f := range result.Failed {
		fmt.Printf("  service %d: %s: %s\n", f.ID, f.Reason, f.Message)
	}

	if !*reminders {
		return
	}
	due, err := svc.DueReminders(ctx, on)
	if err != nil {
		logger.Fatal(err)
	}
	for _, r := range due {
		fmt.Printf("%-8s %3dd  #%d %s (%s) %s\n", r.Threshold.Urgency, r.Service.DaysUntilExpiry,
			r.Service.ID, r.Service.ServiceName, r.Service.ClientName, r.ClientEmail)
	}
	if len(result.Failed) > 0 {
		os.Exit(1)
	}
}
