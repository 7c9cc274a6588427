// Package ecoseed provides the Eco-Seed points ledger for Go applications.
//
// Members earn Eco-Seeds through tracked eco activities, spend them on
// donations, and convert them 1:1 into Hana Money. Every change to a
// balance is recorded in an append-only transaction log, and the profile
// update and the log append commit together or not at all.
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/ecoseed"
//	    "github.com/xraph/ecoseed/category"
//	    "github.com/xraph/ecoseed/store/memory"
//	)
//
//	l := ecoseed.New(memory.New())
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
//	sum, err := l.Earn(ctx, "member-42", ecoseed.EarnInput{
//	    Category: category.Walking,
//	    Amount:   50,
//	})
//
//	sum, err = l.Convert(ctx, "member-42", 30)
//	if errors.Is(err, ecoseed.ErrInsufficientBalance) {
//	    // nothing was written
//	}
//
// # Balances and totals
//
// The profile's current balance is authoritative for spending. Totals
// (earned, used, converted, earned this month) are aggregated from the log
// on every Summary call and are never cached. For every member the
// current balance equals the sum of the member's log amounts; Verify
// checks this.
//
// # Stores
//
// store/memory keeps everything in process. store/sqlite, store/postgres and
// store/mongo persist through grove. Each backend applies the guarded
// balance update and the log append in one transaction scoped to the
// member, so concurrent converts can never spend the same seeds twice.
//
// # TypeID
//
// Profiles and entries use TypeIDs:
//
//	eprof_01h2xcejqtf2nbrexx3vqjhp41  // Profile ID
//	etxn_01h455vb4pex5vsknk084sn02q   // Entry ID
package ecoseed
