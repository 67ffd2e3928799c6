package httpapi

import (
	"context"

	"github.com/and161185/chirper/internal/model"
)

type ctxKey string

const accountKey ctxKey = "chirper.account"

// withAccount stores the authenticated account in context.
func withAccount(ctx context.Context, a *model.Account) context.Context {
	return context.WithValue(ctx, accountKey, a)
}

// accountFrom fetches the authenticated account from context.
func accountFrom(ctx context.Context) (*model.Account, bool) {
	a, ok := ctx.Value(accountKey).(*model.Account)
	return a, ok && a != nil
}
