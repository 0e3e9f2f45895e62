/*
Copyright 2024 Chairside Authors.

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

	"github.com/chairside/chairside"
	"github.com/chairside/chairside/config"
	"github.com/chairside/chairside/database"
	"github.com/chairside/chairside/internal/notification"
)

// Chairside represents the CLI application, encapsulating the root Cobra command.
type Chairside struct {
	cmd *cobra.Command
}

// chairsideInstance holds the runtime instance and configuration shared by
// all subcommands.
type chairsideInstance struct {
	chairside *chairside.Chairside
	cnf       *config.Configuration
}

// recoverPanic handles any panics during program execution and logs the error.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and initializes the Chairside instance
// before any command executes.
func preRun(app *chairsideInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("chairside.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newChairside, err := setupChairside(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.chairside = newChairside
		app.cnf = cnf

		return nil
	}
}

// setupChairside connects the datasource and builds the service instance.
func setupChairside(cfg *config.Configuration) (*chairside.Chairside, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	newChairside, err := chairside.NewChairside(db)
	if err != nil {
		return nil, fmt.Errorf("error creating chairside: %v", err)
	}
	return newChairside, nil
}

// NewCLI creates the command-line interface for the Chairside application.
func NewCLI() *Chairside {
	var configFile string
	b := &chairsideInstance{}

	var rootCmd = &cobra.Command{
		Use:   "chairside",
		Short: "Referral and gift card rewards for Square salons",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./chairside.json", "Configuration file for chairside")

	rootCmd.PersistentPreRunE = preRun(b)

	rootCmd.AddCommand(serverCommands(b))
	rootCmd.AddCommand(workerCommands(b))
	rootCmd.AddCommand(migrateCommands(b))

	return &Chairside{cmd: rootCmd}
}

// executeCLI runs the root command, the main entry point of the application.
func (w Chairside) executeCLI() {
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
