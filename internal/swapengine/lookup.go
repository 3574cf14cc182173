package swapengine

import (
	"context"

	"github.com/aman-zulfiqar/solana-swap-executor/internal/metrics"
	"github.com/aman-zulfiqar/solana-swap-executor/internal/rpc"
	"github.com/gagliardetto/solana-go"
	addresslookuptable "github.com/gagliardetto/solana-go/programs/address-lookup-table"
	"github.com/sirupsen/logrus"
)

// AccountFetcher fetches several accounts in a single request.
type AccountFetcher interface {
	GetMultipleAccounts(ctx context.Context, keys []solana.PublicKey, commitment rpc.Commitment) ([]*rpc.AccountInfo, error)
}

// RPCLookupResolver resolves lookup tables with one getMultipleAccounts call.
type RPCLookupResolver struct {
	accounts   AccountFetcher
	commitment rpc.Commitment
	logger     *logrus.Logger
}

func NewRPCLookupResolver(accounts AccountFetcher, commitment rpc.Commitment, logger *logrus.Logger) *RPCLookupResolver {
	if logger == nil {
		logger = logrus.New()
	}
	return &RPCLookupResolver{accounts: accounts, commitment: commitment, logger: logger}
}

// ResolveLookupTables returns the tables that exist, in request order.
// Missing or undecodable tables are dropped; compiling a transaction that
// needed one fails later with a precise error.
func (r *RPCLookupResolver) ResolveLookupTables(ctx context.Context, addresses []solana.PublicKey) ([]LookupTableAccount, error) {
	if len(addresses) == 0 {
		return nil, nil
	}

	infos, err := r.accounts.GetMultipleAccounts(ctx, addresses, r.commitment)
	if err != nil {
		return nil, newError(KindLookupUnavailable, StageResolveLookups, err)
	}

	tables := make([]LookupTableAccount, 0, len(addresses))
	for i, addr := range addresses {
		var info *rpc.AccountInfo
		if i < len(infos) {
			info = infos[i]
		}
		if info == nil {
			metrics.LookupTablesMissing.Inc()
			r.logger.WithField("table", addr.String()).Warn("lookup table not found, skipping")
			continue
		}

		state, err := addresslookuptable.DecodeAddressLookupTableState(info.Data)
		if err != nil {
			r.logger.WithError(err).WithField("table", addr.String()).Warn("failed to decode lookup table, skipping")
			continue
		}

		tables = append(tables, LookupTableAccount{
			Key:       addr,
			Addresses: state.Addresses,
		})
	}

	return tables, nil
}
