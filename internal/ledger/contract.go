package ledger

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// The public entrypoint of the GrievanceSystem contract. The internal
// grievance id is submitted as the grievanceHash so the chain stores an
// immutable record of the event.
const grievanceABI = `[{"inputs":[{"internalType":"string","name":"grievanceHash","type":"string"}],"name":"submitGrievance","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"nonpayable","type":"function"}]`

// ContractRecorder records events on an Ethereum contract over JSON-RPC and
// waits for one confirmation before reporting success.
type ContractRecorder struct {
	client   *ethclient.Client
	contract *bind.BoundContract
	auth     *bind.TransactOpts
}

// NewContractRecorder dials the RPC endpoint and binds the contract. All
// three parameters are required; use NewMockRecorder when the deployment has
// no chain configured.
func NewContractRecorder(rpcURL, contractAddress, privateKeyHex string) (*ContractRecorder, error) {
	if rpcURL == "" || contractAddress == "" || privateKeyHex == "" {
		return nil, ErrNotConfigured
	}

	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial ledger rpc: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse ledger private key: %w", err)
	}

	chainID, err := client.ChainID(context.Background())
	if err != nil {
		return nil, fmt.Errorf("fetch chain id: %w", err)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("build transactor: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(grievanceABI))
	if err != nil {
		return nil, fmt.Errorf("parse contract abi: %w", err)
	}

	contract := bind.NewBoundContract(common.HexToAddress(contractAddress), parsed, client, client, client)

	log.Println("Ledger recorder initialized. Ready to send transactions.")
	return &ContractRecorder{client: client, contract: contract, auth: auth}, nil
}

// Record submits the subject id to the contract and waits for the
// transaction to be mined. The payload is mirrored locally by the caller;
// only the subject id goes on-chain.
func (r *ContractRecorder) Record(ctx context.Context, subjectID string, payload []byte) (Receipt, error) {
	opts := *r.auth
	opts.Context = ctx

	tx, err := r.contract.Transact(&opts, "submitGrievance", subjectID)
	if err != nil {
		return Receipt{}, fmt.Errorf("submit ledger transaction: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, r.client, tx)
	if err != nil {
		return Receipt{}, fmt.Errorf("await ledger confirmation: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return Receipt{}, fmt.Errorf("ledger transaction %s reverted", tx.Hash().Hex())
	}

	block := receipt.BlockNumber.String()
	log.Printf("INFO: Ledger transaction confirmed. Hash: %s block: %s", tx.Hash().Hex(), block)
	return Receipt{TxHash: tx.Hash().Hex(), BlockNumber: &block}, nil
}
