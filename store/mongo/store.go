// Package mongo implements store.Store on MongoDB through grove.
//
// Postings run inside a multi-document transaction (replica set or sharded
// cluster required). The balance guard is part of the profile filter, so
// a conditional $inc either applies or matches nothing.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/ecoseed"
	"github.com/xraph/ecoseed/entry"
	"github.com/xraph/ecoseed/profile"
	ledgerstore "github.com/xraph/ecoseed/store"
)

// Collection name constants.
const (
	colProfiles = "ecoseed_profiles"
	colEntries  = "ecoseed_entries"
)

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all ecoseed collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("ecoseed/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Profile Store ====================

func (s *Store) GetProfile(ctx context.Context, memberRef string) (*profile.Profile, error) {
	var m profileModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"member_ref": memberRef}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, ecoseed.ErrProfileNotFound
		}
		return nil, fmt.Errorf("ecoseed/mongo: get profile: %w", err)
	}
	return fromProfileModel(&m)
}

func (s *Store) CreateProfile(ctx context.Context, p *profile.Profile) error {
	_, err := s.mdb.NewInsert(toProfileModel(p)).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ecoseed.ErrProfileExists
		}
		return fmt.Errorf("ecoseed/mongo: create profile: %w", err)
	}
	return nil
}

func (s *Store) RecordActivity(ctx context.Context, memberRef string, a profile.Activity) (*profile.Profile, error) {
	sameMonth := bson.M{"$eq": bson.A{"$counter_month", a.Month}}
	update := bson.A{
		bson.M{"$set": bson.M{
			"monthly_carbon_saved": bson.M{"$cond": bson.A{
				sameMonth, bson.M{"$add": bson.A{"$monthly_carbon_saved", a.CarbonSaved}}, a.CarbonSaved,
			}},
			"monthly_activity_count": bson.M{"$cond": bson.A{
				sameMonth, bson.M{"$add": bson.A{"$monthly_activity_count", 1}}, 1,
			}},
			"counter_month":           a.Month,
			"lifetime_carbon_saved":   bson.M{"$add": bson.A{"$lifetime_carbon_saved", a.CarbonSaved}},
			"lifetime_activity_count": bson.M{"$add": bson.A{"$lifetime_activity_count", 1}},
			"updated_at":              now(),
		}},
	}

	var m profileModel
	err := s.mdb.Collection(colProfiles).FindOneAndUpdate(ctx,
		bson.M{"member_ref": memberRef},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, ecoseed.ErrProfileNotFound
		}
		return nil, fmt.Errorf("ecoseed/mongo: record activity: %w", err)
	}
	return fromProfileModel(&m)
}

// ==================== Entry Store ====================

// PostEntry applies the guarded $inc and appends e in one session
// transaction. WithTransaction retries transient transaction errors.
func (s *Store) PostEntry(ctx context.Context, e *entry.Entry, secondaryDelta int64) (*profile.Profile, error) {
	sess, err := s.mdb.Client().StartSession()
	if err != nil {
		return nil, fmt.Errorf("ecoseed/mongo: start session: %w", err)
	}
	defer sess.EndSession(ctx)

	profiles := s.mdb.Collection(colProfiles)
	entries := s.mdb.Collection(colEntries)

	result, err := sess.WithTransaction(ctx, func(sc context.Context) (any, error) {
		filter := bson.M{
			"member_ref":        e.MemberRef,
			"current_balance": bson.M{
				"$gte": -e.Amount,
				"$lte": ecoseed.BalanceCeiling(e.Amount),
			},
			"secondary_balance": bson.M{
				"$gte": -secondaryDelta,
				"$lte": ecoseed.BalanceCeiling(secondaryDelta),
			},
		}
		update := bson.M{
			"$inc": bson.M{
				"current_balance":   e.Amount,
				"secondary_balance": secondaryDelta,
				"last_sequence":     1,
			},
			"$set": bson.M{"updated_at": now()},
		}

		var m profileModel
		err := profiles.FindOneAndUpdate(sc, filter, update,
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&m)
		if err != nil {
			if !isNoDocuments(err) {
				return nil, err
			}
			var cur profileModel
			if cerr := profiles.FindOne(sc, bson.M{"member_ref": e.MemberRef}).Decode(&cur); cerr != nil {
				if isNoDocuments(cerr) {
					return nil, ecoseed.ErrProfileNotFound
				}
				return nil, cerr
			}
			if _, _, perr := ecoseed.ApplyPosting(cur.CurrentBalance, cur.SecondaryBalance, e.Amount, secondaryDelta); perr != nil {
				return nil, perr
			}
			return nil, ecoseed.ErrInsufficientBalance
		}

		e.Sequence = m.LastSequence
		e.BalanceAfter = m.CurrentBalance
		if _, err := entries.InsertOne(sc, toEntryModel(e)); err != nil {
			return nil, fmt.Errorf("append entry: %w", err)
		}
		return &m, nil
	})
	if err != nil {
		if errors.Is(err, ecoseed.ErrProfileNotFound) ||
			errors.Is(err, ecoseed.ErrInsufficientBalance) ||
			errors.Is(err, ecoseed.ErrBalanceOverflow) {
			return nil, err
		}
		return nil, fmt.Errorf("ecoseed/mongo: post entry: %w", errors.Join(ecoseed.ErrTransactionFailed, err))
	}
	return fromProfileModel(result.(*profileModel))
}

func (s *Store) ListEntries(ctx context.Context, memberRef string, opts entry.ListOpts) ([]*entry.Entry, error) {
	var models []entryModel
	q := s.mdb.NewFind(&models).
		Filter(entryFilter(memberRef, opts)).
		Sort(bson.D{{Key: "occurred_at", Value: -1}, {Key: "sequence", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("ecoseed/mongo: list entries: %w", err)
	}

	result := make([]*entry.Entry, len(models))
	for i := range models {
		e, err := fromEntryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

func (s *Store) CountEntries(ctx context.Context, memberRef string, opts entry.ListOpts) (int64, error) {
	n, err := s.mdb.NewFind((*entryModel)(nil)).
		Filter(entryFilter(memberRef, opts)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("ecoseed/mongo: count entries: %w", err)
	}
	return n, nil
}

func (s *Store) SumAmount(ctx context.Context, memberRef string, q entry.SumQuery) (int64, error) {
	match := bson.M{"member_ref": memberRef}
	if q.Direction != "" {
		match["direction"] = string(q.Direction)
	}
	occurred := bson.M{}
	if !q.Since.IsZero() {
		occurred["$gte"] = q.Since.UTC()
	}
	if !q.Until.IsZero() {
		occurred["$lt"] = q.Until.UTC()
	}
	if len(occurred) > 0 {
		match["occurred_at"] = occurred
	}

	pipeline := bson.A{
		bson.M{"$match": match},
		bson.M{"$group": bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$amount"},
		}},
	}

	cursor, err := s.mdb.Collection(colEntries).Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("ecoseed/mongo: aggregate: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, fmt.Errorf("ecoseed/mongo: aggregate decode: %w", err)
	}

	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}

// ==================== Helpers ====================

func entryFilter(memberRef string, opts entry.ListOpts) bson.M {
	f := bson.M{"member_ref": memberRef}
	if opts.Category != "" {
		f["category"] = string(opts.Category)
	}
	return f
}

func now() time.Time {
	return time.Now().UTC()
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all ecoseed collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colProfiles: {
			{
				Keys:    bson.D{{Key: "member_ref", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colEntries: {
			{
				Keys:    bson.D{{Key: "member_ref", Value: 1}, {Key: "sequence", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "member_ref", Value: 1}, {Key: "occurred_at", Value: -1}, {Key: "sequence", Value: -1}}},
			{Keys: bson.D{{Key: "member_ref", Value: 1}, {Key: "category", Value: 1}, {Key: "occurred_at", Value: -1}}},
		},
	}
}
