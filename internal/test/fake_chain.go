package test

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// CallHandler answers an eth_call whose calldata starts with a registered selector.
type CallHandler func(to common.Address, data []byte) ([]byte, error)

type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      json.RawMessage   `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type fakeReceipt struct {
	status  uint64
	block   uint64
	gasUsed uint64
	to      *common.Address
}

// FakeChain is an in-process EVM JSON-RPC endpoint serving the calls the relayer issues. Sent
// transactions are validated against the pending nonce and mined into the next block unless
// AutoMine is switched off.
type FakeChain struct {
	ID     int64
	Server *httptest.Server

	mu          sync.Mutex
	reportedID  int64
	down        bool
	autoMine    bool
	poaHeaders  bool
	sparseHead  bool
	gasPrice    *big.Int
	blockNumber uint64
	balances    map[common.Address]*big.Int
	nonces      map[common.Address]uint64
	receipts    map[common.Hash]*fakeReceipt
	calls       map[string]CallHandler
	sendErr     string
	sent        []*types.Transaction
	requests    map[string]int
	hits        int
}

func NewFakeChain(t *testing.T, chainID int64) *FakeChain {
	t.Helper()

	f := &FakeChain{
		ID:          chainID,
		reportedID:  chainID,
		autoMine:    true,
		gasPrice:    big.NewInt(1_000_000_000),
		blockNumber: 100,
		balances:    make(map[common.Address]*big.Int),
		nonces:      make(map[common.Address]uint64),
		receipts:    make(map[common.Hash]*fakeReceipt),
		calls:       make(map[string]CallHandler),
		requests:    make(map[string]int),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serveHTTP))
	t.Cleanup(f.Server.Close)

	return f
}

func (f *FakeChain) URL() string {
	return f.Server.URL
}

// SetDown makes the endpoint answer every request with 503.
func (f *FakeChain) SetDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

// SetReportedChainID changes the id answered to eth_chainId.
func (f *FakeChain) SetReportedChainID(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reportedID = id
}

func (f *FakeChain) SetAutoMine(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.autoMine = on
}

// SetPOAHeaders appends a 65 byte signer seal to extraData of every header.
func (f *FakeChain) SetPOAHeaders(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.poaHeaders = on
}

// SetSparseHeaders drops header fields only strict decoders require.
func (f *FakeChain) SetSparseHeaders(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sparseHead = on
}

func (f *FakeChain) SetGasPrice(price *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gasPrice = new(big.Int).Set(price)
}

func (f *FakeChain) SetBalance(addr common.Address, balance *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[addr] = new(big.Int).Set(balance)
}

func (f *FakeChain) SetNonce(addr common.Address, nonce uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nonces[addr] = nonce
}

func (f *FakeChain) Nonce(addr common.Address) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nonces[addr]
}

// RejectNextSend makes the next eth_sendRawTransaction fail with message.
func (f *FakeChain) RejectNextSend(message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendErr = message
}

// OnCall registers handler for eth_call requests with the given 4 byte selector.
func (f *FakeChain) OnCall(selector []byte, handler CallHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[hexutil.Encode(selector)] = handler
}

// Mine advances the chain by n empty blocks.
func (f *FakeChain) Mine(n uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blockNumber += n
}

func (f *FakeChain) BlockNumber() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blockNumber
}

// SetReceipt stores a receipt for hash mined in block.
func (f *FakeChain) SetReceipt(hash common.Hash, status uint64, block uint64, gasUsed uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receipts[hash] = &fakeReceipt{status: status, block: block, gasUsed: gasUsed}
}

func (f *FakeChain) Sent() []*types.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*types.Transaction(nil), f.sent...)
}

func (f *FakeChain) Requests(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[method]
}

// Hits counts HTTP requests, including the ones refused while down.
func (f *FakeChain) Hits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits
}

func (f *FakeChain) serveHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.hits++
	down := f.down
	f.mu.Unlock()

	if down {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, map[string]interface{}{
			"jsonrpc": "2.0",
			"error":   rpcError{Code: -32700, Message: "parse error"},
		})
		return
	}

	result, rpcErr := f.handle(req)

	resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
	if rpcErr != nil {
		resp["error"] = rpcErr
	} else {
		resp["result"] = result
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func param[T any](req rpcRequest, i int) (T, *rpcError) {
	var v T
	if i >= len(req.Params) {
		return v, &rpcError{Code: -32602, Message: fmt.Sprintf("missing param %d", i)}
	}
	if err := json.Unmarshal(req.Params[i], &v); err != nil {
		return v, &rpcError{Code: -32602, Message: err.Error()}
	}
	return v, nil
}

//nolint:gocyclo
func (f *FakeChain) handle(req rpcRequest) (interface{}, *rpcError) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests[req.Method]++

	switch req.Method {
	case "eth_chainId":
		return hexutil.EncodeUint64(uint64(f.reportedID)), nil

	case "eth_blockNumber":
		return hexutil.EncodeUint64(f.blockNumber), nil

	case "eth_gasPrice":
		return (*hexutil.Big)(f.gasPrice), nil

	case "eth_getBalance":
		addr, perr := param[common.Address](req, 0)
		if perr != nil {
			return nil, perr
		}
		balance, ok := f.balances[addr]
		if !ok {
			balance = new(big.Int)
		}
		return (*hexutil.Big)(balance), nil

	case "eth_getTransactionCount":
		addr, perr := param[common.Address](req, 0)
		if perr != nil {
			return nil, perr
		}
		return hexutil.EncodeUint64(f.nonces[addr]), nil

	case "eth_sendRawTransaction":
		raw, perr := param[hexutil.Bytes](req, 0)
		if perr != nil {
			return nil, perr
		}
		return f.sendRaw(raw)

	case "eth_getTransactionReceipt":
		hash, perr := param[common.Hash](req, 0)
		if perr != nil {
			return nil, perr
		}
		return f.receiptJSON(hash), nil

	case "eth_call":
		msg, perr := param[map[string]interface{}](req, 0)
		if perr != nil {
			return nil, perr
		}
		return f.call(msg)

	case "eth_getBlockByNumber":
		tag, perr := param[string](req, 0)
		if perr != nil {
			return nil, perr
		}
		number := f.blockNumber
		if tag != "latest" && tag != "pending" {
			n, err := hexutil.DecodeUint64(tag)
			if err != nil {
				return nil, &rpcError{Code: -32602, Message: err.Error()}
			}
			if n > f.blockNumber {
				return nil, nil
			}
			number = n
		}
		return f.headerJSON(number), nil
	}

	return nil, &rpcError{Code: -32601, Message: fmt.Sprintf("the method %s does not exist/is not available", req.Method)}
}

func (f *FakeChain) sendRaw(raw []byte) (interface{}, *rpcError) {
	if f.sendErr != "" {
		msg := f.sendErr
		f.sendErr = ""
		return nil, &rpcError{Code: -32000, Message: msg}
	}

	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return nil, &rpcError{Code: -32000, Message: "rlp: " + err.Error()}
	}

	if tx.ChainId().Int64() != f.ID {
		return nil, &rpcError{Code: -32000, Message: "invalid chain id for signer"}
	}

	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(f.ID)), tx)
	if err != nil {
		return nil, &rpcError{Code: -32000, Message: "invalid sender"}
	}

	for _, sent := range f.sent {
		if sent.Hash() == tx.Hash() {
			return nil, &rpcError{Code: -32000, Message: "already known"}
		}
	}

	pending := f.nonces[from]
	switch {
	case tx.Nonce() < pending:
		return nil, &rpcError{Code: -32000, Message: fmt.Sprintf("nonce too low: next nonce %d, tx nonce %d", pending, tx.Nonce())}
	case tx.Nonce() > pending:
		return nil, &rpcError{Code: -32000, Message: fmt.Sprintf("nonce too high: next nonce %d, tx nonce %d", pending, tx.Nonce())}
	}

	f.nonces[from] = pending + 1
	f.sent = append(f.sent, tx)

	if f.autoMine {
		f.blockNumber++
		gasUsed := tx.Gas()
		if gasUsed > 21000 {
			gasUsed /= 2
		}
		f.receipts[tx.Hash()] = &fakeReceipt{status: types.ReceiptStatusSuccessful, block: f.blockNumber, gasUsed: gasUsed, to: tx.To()}
	}

	return tx.Hash(), nil
}

func (f *FakeChain) call(msg map[string]interface{}) (interface{}, *rpcError) {
	input, _ := msg["input"].(string)
	if input == "" {
		input, _ = msg["data"].(string)
	}
	to, _ := msg["to"].(string)

	data, err := hexutil.Decode(input)
	if err != nil || len(data) < 4 {
		return nil, &rpcError{Code: 3, Message: "execution reverted"}
	}

	handler, ok := f.calls[hexutil.Encode(data[:4])]
	if !ok {
		return nil, &rpcError{Code: 3, Message: "execution reverted: unknown selector"}
	}

	out, err := handler(common.HexToAddress(to), data[4:])
	if err != nil {
		return nil, &rpcError{Code: 3, Message: "execution reverted: " + err.Error()}
	}

	return hexutil.Bytes(out), nil
}

func (f *FakeChain) receiptJSON(hash common.Hash) interface{} {
	r, ok := f.receipts[hash]
	if !ok {
		return nil
	}

	var to interface{}
	if r.to != nil {
		to = r.to.Hex()
	}

	return map[string]interface{}{
		"transactionHash":   hash,
		"transactionIndex":  "0x0",
		"blockHash":         blockHash(r.block),
		"blockNumber":       hexutil.EncodeUint64(r.block),
		"to":                to,
		"cumulativeGasUsed": hexutil.EncodeUint64(r.gasUsed),
		"gasUsed":           hexutil.EncodeUint64(r.gasUsed),
		"effectiveGasPrice": (*hexutil.Big)(f.gasPrice),
		"contractAddress":   nil,
		"logs":              []interface{}{},
		"logsBloom":         types.Bloom{},
		"status":            hexutil.EncodeUint64(r.status),
		"type":              "0x0",
	}
}

func blockHash(number uint64) common.Hash {
	return common.BigToHash(new(big.Int).SetUint64(number + 0xb10c))
}

func (f *FakeChain) headerJSON(number uint64) interface{} {
	extra := make([]byte, 32)
	copy(extra, "fake chain")
	if f.poaHeaders {
		extra = append(extra, make([]byte, 65)...)
	}

	h := map[string]interface{}{
		"number":        hexutil.EncodeUint64(number),
		"hash":          blockHash(number),
		"parentHash":    blockHash(number - 1),
		"timestamp":     hexutil.EncodeUint64(1_700_000_000 + number*12),
		"extraData":     hexutil.Bytes(extra),
		"baseFeePerGas": (*hexutil.Big)(f.gasPrice),
	}
	if f.sparseHead {
		return h
	}

	h["sha3Uncles"] = types.EmptyUncleHash
	h["miner"] = common.Address{}
	h["stateRoot"] = types.EmptyRootHash
	h["transactionsRoot"] = types.EmptyTxsHash
	h["receiptsRoot"] = types.EmptyReceiptsHash
	h["logsBloom"] = types.Bloom{}
	h["difficulty"] = "0x0"
	h["gasLimit"] = hexutil.EncodeUint64(30_000_000)
	h["gasUsed"] = "0x0"
	h["mixHash"] = common.Hash{}
	h["nonce"] = types.BlockNonce{}

	return h
}

// Selector returns the 4 byte selector of a textual function signature.
func Selector(signature string) []byte {
	return crypto.Keccak256([]byte(strings.TrimSpace(signature)))[:4]
}
