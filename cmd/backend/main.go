package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"portal/internal/api"
)

// @title Client Service Portal API
// @version 1.0
// @description Client services, renewals, bulk operations and expiry alerts.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	configDir := pflag.String("config-dir", "", "directory holding config.toml")
	pflag.Parse()

	logrus.Info("App start")
	var paths []string
	if *configDir != "" {
		paths = append(paths, *configDir)
	}
	if err := api.StartServer(paths...); err != nil {
		logrus.Fatal(err)
	}
	logrus.Info("App terminated")
}
