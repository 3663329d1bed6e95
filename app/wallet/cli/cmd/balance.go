package cmd

import (
	"fmt"
	"log"

	"github.com/checoin/checoin/foundation/blockchain/wallet"
	"github.com/spf13/cobra"
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance.",
	Run:   balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:3001", "Url of the node.")
}

func balanceRun(cmd *cobra.Command, args []string) {
	w, err := wallet.Load(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("For Address:", w.Address())

	utxos, err := queryOutputs(url, w.Address())
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(utxos.Balance(w.Address()))
}
