package domain

import (
	"context"
	"strconv"

	"github.com/google/uuid"
)

// sweepNamespace scopes sweep keys derived with uuid.NewSHA1.
var sweepNamespace = uuid.MustParse("8f0c2d1e-5b7a-4c3e-9d62-1a4f7e3b9c50")

type transferKeyContextKey struct{}

// SweepKey returns the idempotency key for sweeping fundID. origin names the
// ledger instance (the hash of its first journal event), so every attempt to
// sweep the same fund carries the same key and different ledgers never
// collide.
func SweepKey(origin string, fundID uint64) string {
	return uuid.NewSHA1(sweepNamespace, []byte(origin+"/fund/"+strconv.FormatUint(fundID, 10))).String()
}

// WithTransferKey attaches an idempotency key for the transfer made with ctx.
func WithTransferKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, transferKeyContextKey{}, key)
}

// TransferKey returns the key attached by WithTransferKey, or "".
func TransferKey(ctx context.Context) string {
	key, _ := ctx.Value(transferKeyContextKey{}).(string)
	return key
}
