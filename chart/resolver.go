package chart

import (
	"context"
	"fmt"
	"strings"

	"github.com/moon/ledger-engine/ledger"
)

// Resolver finds accounts of one book by code or by name. The ledger never
// resolves names itself; callers turn configuration into ids here.
type Resolver struct {
	byCode map[string]ledger.Account
	byName map[string]ledger.Account
}

// NewResolver indexes accounts. Names are matched case-insensitively; when
// two accounts share a name the one with the lower code wins.
func NewResolver(accounts []ledger.Account) *Resolver {
	r := &Resolver{
		byCode: make(map[string]ledger.Account, len(accounts)),
		byName: make(map[string]ledger.Account, len(accounts)),
	}
	for _, a := range accounts {
		if a.Code != "" {
			r.byCode[a.Code] = a
		}
		key := strings.ToLower(strings.TrimSpace(a.Name))
		if prev, ok := r.byName[key]; !ok || a.Code < prev.Code {
			r.byName[key] = a
		}
	}
	return r
}

// ResolverFor loads the chart of bookID and indexes it.
func ResolverFor(ctx context.Context, chart ledger.ChartProvider, bookID ledger.BookID) (*Resolver, error) {
	accounts, err := chart.ListAccounts(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return NewResolver(accounts), nil
}

func (r *Resolver) ByCode(code string) (ledger.Account, bool) {
	a, ok := r.byCode[code]
	return a, ok
}

func (r *Resolver) ByName(name string) (ledger.Account, bool) {
	a, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return a, ok
}

// Resolve tries ref as a code first, then as a name.
func (r *Resolver) Resolve(ref string) (ledger.AccountID, error) {
	if a, ok := r.ByCode(ref); ok {
		return a.ID, nil
	}
	if a, ok := r.ByName(ref); ok {
		return a.ID, nil
	}
	return "", &ledger.StateError{Err: ledger.ErrAccountNotFound, Reason: ref}
}
