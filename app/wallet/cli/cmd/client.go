package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/checoin/checoin/business/web/errs"
	"github.com/checoin/checoin/foundation/blockchain/database"
)

var client = http.Client{
	Timeout: 30 * time.Second,
}

// queryOutputs returns the unspent outputs the node holds for the address.
func queryOutputs(url string, address string) (database.UTXOSet, error) {
	var resp struct {
		UnspentTxOuts []database.UnspentTxOut `json:"unspentTxOuts"`
	}
	if err := get(fmt.Sprintf("%s/address/%s", url, address), &resp); err != nil {
		return database.UTXOSet{}, err
	}

	return database.NewUTXOSet(resp.UnspentTxOuts)
}

func get(url string, v any) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decode(resp, v)
}

func post(url string, body any, v any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decode(resp, v)
}

func decode(resp *http.Response, v any) error {
	if resp.StatusCode != http.StatusOK {
		var er errs.Response
		if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
			return fmt.Errorf("node responded %s", resp.Status)
		}
		return fmt.Errorf("node responded %s: %s", resp.Status, er.Error)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}
