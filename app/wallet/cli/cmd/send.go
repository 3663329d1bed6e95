package cmd

import (
	"fmt"
	"log"

	"github.com/checoin/checoin/foundation/blockchain/database"
	"github.com/checoin/checoin/foundation/blockchain/wallet"
	"github.com/checoin/checoin/foundation/nameservice"
	"github.com/spf13/cobra"
)

var (
	url    string
	to     string
	amount uint64
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a payment",
	Run:   sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:3001", "Url of the node.")
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Name or address of the receiver.")
	sendCmd.Flags().Uint64VarP(&amount, "amount", "v", 0, "Amount to send.")
}

func sendRun(cmd *cobra.Command, args []string) {
	w, err := wallet.Load(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	ns, err := nameservice.New(accountPath)
	if err != nil {
		log.Fatal(err)
	}

	tx, err := send(url, w, ns.ReverseLookup(to), amount)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(tx.ID)
}

// send builds the payment from the outputs the node reports for the wallet,
// skipping the outputs already spent in the node mempool.
func send(url string, w *wallet.Wallet, receiver string, amount uint64) (database.Tx, error) {
	utxos, err := queryOutputs(url, w.Address())
	if err != nil {
		return database.Tx{}, err
	}

	var pool []database.Tx
	if err := get(url+"/transactionPool", &pool); err != nil {
		return database.Tx{}, err
	}

	pending := make(map[database.OutPoint]struct{})
	for _, tx := range pool {
		for _, in := range tx.TxIns {
			pending[in.OutPoint()] = struct{}{}
		}
	}

	tx, err := w.CreateTransaction(receiver, amount, utxos, pending)
	if err != nil {
		return database.Tx{}, err
	}

	var resp struct {
		Status string `json:"status"`
	}
	if err := post(url+"/submitTransaction", tx, &resp); err != nil {
		return database.Tx{}, err
	}

	return tx, nil
}
