// This program is a wallet for sending payments to a CheCoin node.
package main

import "github.com/checoin/checoin/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
