/*
Copyright 2025 ReelForge Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/reelforge/reelforge"
	"github.com/reelforge/reelforge/config"
	"github.com/reelforge/reelforge/database"
	"github.com/reelforge/reelforge/internal/notification"
)

// ReelForge represents the CLI application, encapsulating the root Cobra command.
type ReelForge struct {
	cmd *cobra.Command
}

// reelforgeInstance holds the runtime service instance and its configuration,
// shared by every subcommand through the persistent pre-run hook.
type reelforgeInstance struct {
	service *reelforge.Reelforge
	cnf     *config.Configuration
}

// recoverPanic handles any panics during program execution and logs the error using Logrus.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun sets up the configuration and initializes the service instance before
// running any command.
func preRun(app *reelforgeInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("reelforge.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		service, err := setupReelforge(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.service = service
		app.cnf = cnf

		return nil
	}
}

// setupReelforge connects to the data source and builds the service instance
// from the provided configuration.
func setupReelforge(cfg *config.Configuration) (*reelforge.Reelforge, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	service, err := reelforge.New(db)
	if err != nil {
		return nil, fmt.Errorf("error creating reelforge: %v", err)
	}
	return service, nil
}

// NewCLI creates the command-line interface for the ReelForge application.
// It sets up the root command and the server, worker, migration, and backup
// subcommands.
func NewCLI() *ReelForge {
	var configFile string
	b := &reelforgeInstance{}

	var rootCmd = &cobra.Command{
		Use:   "reelforge",
		Short: "AI video generation and posting engine",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./reelforge.json", "Configuration file for reelforge")

	rootCmd.PersistentPreRunE = preRun(b)

	rootCmd.AddCommand(serverCommands(b))
	rootCmd.AddCommand(workerCommands(b))
	rootCmd.AddCommand(migrateCommands(b))
	rootCmd.AddCommand(backupCommands(b))
	rootCmd.AddCommand(configCommands())

	return &ReelForge{cmd: rootCmd}
}

// executeCLI runs the root command, handling any errors that occur during execution.
func (w ReelForge) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
