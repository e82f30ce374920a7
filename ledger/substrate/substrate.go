package substrate

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	gsrpc "github.com/centrifuge/go-substrate-rpc-client/v4"
	"github.com/centrifuge/go-substrate-rpc-client/v4/signature"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
	logging "github.com/ipfs/go-log/v2"
	"github.com/textileio/slasher/ledger"
	"go.opentelemetry.io/otel/metric"
)

const (
	// DefaultSS58Prefix is the generic substrate network prefix.
	DefaultSS58Prefix = 42

	callForceTransfer = "Balances.force_transfer"
	callSudo          = "Sudo.sudo"
)

var (
	log = logging.Logger("ledger-substrate")

	_ ledger.Module = (*Module)(nil)
)

// Module executes sudo force transfers on a substrate chain.
type Module struct {
	api    *gsrpc.SubstrateAPI
	signer signature.KeyringPair

	meta        *types.Metadata
	genesisHash types.Hash
	runtime     *types.RuntimeVersion

	// Serializes signing and submission so nonces are used in order.
	lock sync.Mutex

	metricTransfer metric.Int64Counter
	metricAmount   metric.Int64ValueRecorder
}

// NewSigner derives the sr25519 signing key from a mnemonic, seed or
// derivation URI.
func NewSigner(secret string, ss58Prefix uint16) (signature.KeyringPair, error) {
	if secret == "" {
		return signature.KeyringPair{}, fmt.Errorf("signer secret is empty")
	}
	kp, err := signature.KeyringPairFromSecret(secret, ss58Prefix)
	if err != nil {
		return signature.KeyringPair{}, fmt.Errorf("creating keyring pair: %s", err)
	}
	return kp, nil
}

// New connects to the node at url and returns a Module that signs with the
// provided keyring pair.
func New(url string, signer signature.KeyringPair) (*Module, error) {
	if url == "" {
		return nil, fmt.Errorf("node url is empty")
	}
	api, err := gsrpc.NewSubstrateAPI(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to node %s: %s", url, err)
	}
	meta, err := api.RPC.State.GetMetadataLatest()
	if err != nil {
		return nil, fmt.Errorf("getting metadata: %s", err)
	}
	genesisHash, err := api.RPC.Chain.GetBlockHash(0)
	if err != nil {
		return nil, fmt.Errorf("getting genesis hash: %s", err)
	}
	rv, err := api.RPC.State.GetRuntimeVersionLatest()
	if err != nil {
		return nil, fmt.Errorf("getting runtime version: %s", err)
	}
	log.Debugf("connected to %s, spec version %d", url, rv.SpecVersion)

	m := &Module{
		api:         api,
		signer:      signer,
		meta:        meta,
		genesisHash: genesisHash,
		runtime:     rv,
	}
	m.initMetrics()
	return m, nil
}

// Beneficiary implements ledger.Module.
func (m *Module) Beneficiary() string {
	return m.signer.Address
}

// ForceTransfer implements ledger.Module. The transfer is wrapped in a sudo
// call signed by the module signer, and moves amount from the from address
// to the signer.
func (m *Module) ForceTransfer(ctx context.Context, from string, amount *big.Int, dryRun bool) (ledger.Outcome, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	fail := func(err error) (ledger.Outcome, error) {
		return ledger.Outcome{}, &ledger.TransferError{Address: from, Amount: amount, Err: err}
	}
	if amount == nil || amount.Sign() <= 0 {
		return fail(fmt.Errorf("amount should be positive"))
	}
	log.Debugf("starting force transfer... moving %s tokens from %s to %s", amount, from, m.signer.Address)

	ext, err := m.signedForceTransfer(from, amount)
	if err != nil {
		return fail(err)
	}

	o := ledger.Outcome{
		From:   from,
		To:     m.signer.Address,
		Amount: new(big.Int).Set(amount),
		DryRun: dryRun,
	}
	if dryRun {
		encoded, err := codec.EncodeToHex(ext)
		if err != nil {
			return fail(fmt.Errorf("encoding extrinsic: %s", err))
		}
		var res string
		if err := m.api.Client.Call(&res, "system_dryRun", encoded); err != nil {
			return fail(fmt.Errorf("calling system_dryRun: %s", err))
		}
		ok, detail, err := decodeDryRun(res)
		if err != nil {
			return fail(err)
		}
		o.Ok = ok
		o.Detail = detail
		log.Debugf("dry run enabled. transfer: ok: %v, status: %s", ok, res)
		m.recordTransfer(ctx, o)
		return o, nil
	}

	hash, err := m.api.RPC.Author.SubmitExtrinsic(ext)
	if err != nil {
		return fail(fmt.Errorf("submitting extrinsic: %s", err))
	}
	o.Ok = true
	o.Hash = hash.Hex()
	log.Debugf("tx signed and sent. transfer hash: %s", o.Hash)
	m.recordTransfer(ctx, o)
	return o, nil
}

func (m *Module) signedForceTransfer(from string, amount *big.Int) (types.Extrinsic, error) {
	_, fromID, err := DecodeAddress(from)
	if err != nil {
		return types.Extrinsic{}, fmt.Errorf("decoding address %s: %s", from, err)
	}
	source := multiAddress(fromID)
	dest := multiAddress(m.signer.PublicKey)

	transfer, err := types.NewCall(m.meta, callForceTransfer, source, dest, types.NewUCompact(amount))
	if err != nil {
		return types.Extrinsic{}, fmt.Errorf("creating %s call: %s", callForceTransfer, err)
	}
	sudo, err := types.NewCall(m.meta, callSudo, transfer)
	if err != nil {
		return types.Extrinsic{}, fmt.Errorf("creating %s call: %s", callSudo, err)
	}

	var nonce uint32
	if err := m.api.Client.Call(&nonce, "system_accountNextIndex", m.signer.Address); err != nil {
		return types.Extrinsic{}, fmt.Errorf("getting signer nonce: %s", err)
	}

	ext := types.NewExtrinsic(sudo)
	opts := types.SignatureOptions{
		BlockHash:          m.genesisHash,
		Era:                types.ExtrinsicEra{IsMortalEra: false},
		GenesisHash:        m.genesisHash,
		Nonce:              types.NewUCompactFromUInt(uint64(nonce)),
		SpecVersion:        m.runtime.SpecVersion,
		Tip:                types.NewUCompactFromUInt(0),
		TransactionVersion: m.runtime.TransactionVersion,
	}
	if err := ext.Sign(m.signer, opts); err != nil {
		return types.Extrinsic{}, fmt.Errorf("signing extrinsic: %s", err)
	}
	return ext, nil
}

func multiAddress(pub []byte) types.MultiAddress {
	var id types.AccountID
	copy(id[:], pub)
	return types.MultiAddress{IsID: true, AsID: id}
}
