// This program performs administrative tasks for a CheCoin network.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/checoin/checoin/app/tooling/admin/commands"
	"github.com/checoin/checoin/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	log.Infow("startup", "version", build)

	return processCommands(os.Args)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: admin genesis | verify <url> | bals <url> [address] | trans <url> [address]")
	}

	switch args[1] {
	case "genesis":
		if err := commands.Genesis(os.Stdout); err != nil {
			return fmt.Errorf("printing genesis: %w", err)
		}
	case "verify":
		if err := commands.Verify(args, os.Stdout); err != nil {
			return fmt.Errorf("verifying chain: %w", err)
		}
	case "bals":
		if err := commands.Balances(args, os.Stdout); err != nil {
			return fmt.Errorf("getting balances: %w", err)
		}
	case "trans":
		if err := commands.Transactions(args, os.Stdout); err != nil {
			return fmt.Errorf("getting transactions: %w", err)
		}
	default:
		return fmt.Errorf("unknown command %q", args[1])
	}

	return nil
}
