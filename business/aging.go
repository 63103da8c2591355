package business

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/moon/ledger-engine/ledger"
)

// Age buckets by days since the document date.
const (
	BucketCurrent = "0-30"
	Bucket60      = "31-60"
	Bucket90      = "61-90"
	BucketOver90  = "90+"
)

// AgingBuckets lists the buckets in display order.
var AgingBuckets = []string{BucketCurrent, Bucket60, Bucket90, BucketOver90}

func bucketFor(days int) string {
	switch {
	case days <= 30:
		return BucketCurrent
	case days <= 60:
		return Bucket60
	case days <= 90:
		return Bucket90
	default:
		return BucketOver90
	}
}

// DocumentAging is one open or settled document of an owner.
type DocumentAging struct {
	DocumentID  ledger.DocumentID
	Number      string
	Date        time.Time
	Status      ledger.DocumentStatus
	Total       ledger.Money
	Settled     ledger.Money
	Outstanding ledger.Money
	AgeDays     int
	Bucket      string // empty when nothing is outstanding
}

// OwnerAging is the position of one customer or vendor.
type OwnerAging struct {
	Owner ledger.Owner
	// Debits and Credits are posted to the owner's documents' counter
	// accounts. Closing is on the natural side: debits-credits for
	// customers, credits-debits for vendors.
	Debits    ledger.Money
	Credits   ledger.Money
	Closing   ledger.Money
	Buckets   map[string]ledger.Money
	Documents []DocumentAging
}

// AgingReport covers every owner of one kind as of a day.
type AgingReport struct {
	BookID  ledger.BookID
	Kind    ledger.OwnerKind
	AsOf    time.Time
	Owners  []OwnerAging
	Buckets map[string]ledger.Money
	Total   ledger.Money
}

// Aging builds the receivable (customers) or payable (vendors) aging.
// Only splits posted on or before asOf count; a zero asOf means today.
func (s *Service) Aging(ctx context.Context, bookID ledger.BookID, kind ledger.OwnerKind, asOf time.Time) (AgingReport, error) {
	if kind != ledger.OwnerCustomer && kind != ledger.OwnerVendor {
		return AgingReport{}, &ledger.ValidationError{Err: ErrWrongOwnerKind, Field: "kind", Reason: string(kind)}
	}
	asOf = s.dateOr(asOf)
	within := ledger.Through(asOf)

	owners, err := s.repo.ListOwners(ctx, bookID, kind)
	if err != nil {
		return AgingReport{}, fmt.Errorf("list owners: %w", err)
	}
	docs, err := s.repo.ListDocuments(ctx, bookID, ledger.DocumentFilter{})
	if err != nil {
		return AgingReport{}, fmt.Errorf("list documents: %w", err)
	}
	byOwner := make(map[ledger.OwnerID][]ledger.SourceDocument)
	for _, d := range docs {
		if d.Status == ledger.StatusDraft || ownerKindFor(d.Kind) != kind || !within.Contains(d.Date) {
			continue
		}
		byOwner[d.OwnerID] = append(byOwner[d.OwnerID], d)
	}

	report := AgingReport{BookID: bookID, Kind: kind, AsOf: asOf, Buckets: emptyBuckets()}
	for _, o := range owners {
		line := OwnerAging{Owner: o, Buckets: emptyBuckets()}
		for _, d := range byOwner[o.ID] {
			splits, err := s.repo.QuerySplitsBySource(ctx, string(d.ID))
			if err != nil {
				return AgingReport{}, fmt.Errorf("query splits: %w", err)
			}
			var upTo []ledger.SplitDetail
			for _, sp := range splits {
				if !within.Contains(sp.PostDate) {
					continue
				}
				upTo = append(upTo, sp)
				if sp.AccountID != d.CounterAccountID {
					continue
				}
				if sp.Amount > 0 {
					line.Debits += sp.Amount
				} else {
					line.Credits += -sp.Amount
				}
			}

			settled := ledger.SettledAmount(d, upTo)
			da := DocumentAging{
				DocumentID: d.ID,
				Number:     d.Number,
				Date:       d.Date,
				Status:     d.Status,
				Total:      d.Total,
				Settled:    settled,
				AgeDays:    int(asOf.Sub(ledger.Day(d.Date)).Hours() / 24),
			}
			if d.Total > settled {
				da.Outstanding = d.Total - settled
				da.Bucket = bucketFor(da.AgeDays)
				line.Buckets[da.Bucket] += da.Outstanding
			}
			line.Documents = append(line.Documents, da)
		}
		if kind == ledger.OwnerCustomer {
			line.Closing = line.Debits - line.Credits
		} else {
			line.Closing = line.Credits - line.Debits
		}
		sort.Slice(line.Documents, func(i, j int) bool {
			a, b := line.Documents[i], line.Documents[j]
			if !a.Date.Equal(b.Date) {
				return a.Date.Before(b.Date)
			}
			return a.Number < b.Number
		})
		for b, m := range line.Buckets {
			report.Buckets[b] += m
		}
		report.Total += line.Closing
		report.Owners = append(report.Owners, line)
	}
	return report, nil
}

func emptyBuckets() map[string]ledger.Money {
	m := make(map[string]ledger.Money, len(AgingBuckets))
	for _, b := range AgingBuckets {
		m[b] = 0
	}
	return m
}
