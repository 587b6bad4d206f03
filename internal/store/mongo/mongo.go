// Package mongo is the remote document-database backend of the record
// store. Each record kind lives in its own collection; a partial unique
// index enforces the one-payment-per-bill-per-month guard server side.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"billfold/internal/core"
	"billfold/internal/store"
)

const (
	incomeCollection  = "incomes"
	expenseCollection = "expenses"
	billCollection    = "bills"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
	userID string
	hub    *store.Hub
}

var _ store.Store = (*Store)(nil)

type incomeDoc struct {
	ID          string    `bson:"_id"`
	UserID      string    `bson:"user_id"`
	Client      string    `bson:"client"`
	AmountCents int64     `bson:"amount_cents"`
	Date        time.Time `bson:"date"`
	Type        string    `bson:"income_type"`
}

type expenseDoc struct {
	ID          string    `bson:"_id"`
	UserID      string    `bson:"user_id"`
	Name        string    `bson:"name"`
	AmountCents int64     `bson:"amount_cents"`
	Date        time.Time `bson:"date"`
	Category    string    `bson:"category"`
	Recurring   bool      `bson:"recurring"`
	Generated   bool      `bson:"generated"`
	BillID      string    `bson:"bill_id"`
	PaidFor     string    `bson:"paid_for"`
}

type billDoc struct {
	ID          string    `bson:"_id"`
	UserID      string    `bson:"user_id"`
	Name        string    `bson:"name"`
	AmountCents int64     `bson:"amount_cents"`
	Category    string    `bson:"category"`
	Frequency   string    `bson:"frequency"`
	DueDay      int       `bson:"due_day"`
	CreatedAt   time.Time `bson:"created_at"`
}

func Connect(ctx context.Context, uri, database, userID string) (*Store, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	s := &Store{
		client: client,
		db:     client.Database(database),
		userID: userID,
		hub:    store.NewHub(),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	slog.InfoContext(ctx, "Connected to MongoDB record store", "database", database)
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(incomeCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create income index: %w", err)
	}

	_, err = s.db.Collection(expenseCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "bill_id", Value: 1}, {Key: "paid_for", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"generated": true}),
	})
	if err != nil {
		return fmt.Errorf("create payment guard index: %w", err)
	}

	_, err = s.db.Collection(billCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "name", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create bill index: %w", err)
	}
	return nil
}

func (s *Store) ListIncomes(ctx context.Context) ([]core.Income, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	cursor, err := s.db.Collection(incomeCollection).Find(ctx, bson.M{"user_id": s.userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer cursor.Close(ctx)

	var out []core.Income
	for cursor.Next(ctx) {
		var doc incomeDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode income: %w", err)
		}
		out = append(out, core.Income{
			ID:     doc.ID,
			Client: doc.Client,
			Amount: core.Money{Cents: doc.AmountCents},
			Date:   core.Date{Time: doc.Date},
			Type:   core.IncomeType(doc.Type),
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("income cursor: %w", err)
	}
	return out, nil
}

func (s *Store) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	cursor, err := s.db.Collection(expenseCollection).Find(ctx, bson.M{"user_id": s.userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer cursor.Close(ctx)

	var out []core.Expense
	for cursor.Next(ctx) {
		var doc expenseDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode expense: %w", err)
		}
		out = append(out, core.Expense{
			ID:        doc.ID,
			Name:      doc.Name,
			Amount:    core.Money{Cents: doc.AmountCents},
			Date:      core.Date{Time: doc.Date},
			Category:  core.Category(doc.Category),
			Recurring: doc.Recurring,
			Generated: doc.Generated,
			BillID:    doc.BillID,
			PaidFor:   doc.PaidFor,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("expense cursor: %w", err)
	}
	return out, nil
}

func (s *Store) ListBills(ctx context.Context) ([]core.Bill, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := s.db.Collection(billCollection).Find(ctx, bson.M{"user_id": s.userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	defer cursor.Close(ctx)

	var out []core.Bill
	for cursor.Next(ctx) {
		var doc billDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode bill: %w", err)
		}
		out = append(out, core.Bill{
			ID:        doc.ID,
			Name:      doc.Name,
			Amount:    core.Money{Cents: doc.AmountCents},
			Category:  core.Category(doc.Category),
			Frequency: core.Frequency(doc.Frequency),
			DueDay:    doc.DueDay,
			CreatedAt: doc.CreatedAt,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("bill cursor: %w", err)
	}
	return out, nil
}

func (s *Store) LoadSnapshot(ctx context.Context) (core.Snapshot, error) {
	incomes, err := s.ListIncomes(ctx)
	if err != nil {
		return core.Snapshot{}, err
	}
	expenses, err := s.ListExpenses(ctx)
	if err != nil {
		return core.Snapshot{}, err
	}
	bills, err := s.ListBills(ctx)
	if err != nil {
		return core.Snapshot{}, err
	}
	return core.Snapshot{Incomes: incomes, Expenses: expenses, Bills: bills}, nil
}

func (s *Store) InsertIncome(ctx context.Context, in core.Income) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}
	doc := incomeDoc{
		ID:          uuid.NewString(),
		UserID:      s.userID,
		Client:      in.Client,
		AmountCents: in.Amount.Cents,
		Date:        in.Date.UTC(),
		Type:        string(in.Type),
	}
	if _, err := s.db.Collection(incomeCollection).InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("insert income: %w", err)
	}
	s.notify(ctx)
	return doc.ID, nil
}

func (s *Store) InsertExpense(ctx context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	doc := expenseDoc{
		ID:          uuid.NewString(),
		UserID:      s.userID,
		Name:        e.Name,
		AmountCents: e.Amount.Cents,
		Date:        e.Date.UTC(),
		Category:    string(e.Category),
		Recurring:   e.Recurring,
		Generated:   e.Generated,
		BillID:      e.BillID,
		PaidFor:     e.PaidFor,
	}
	if _, err := s.db.Collection(expenseCollection).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", store.ErrConflict
		}
		return "", fmt.Errorf("insert expense: %w", err)
	}
	s.notify(ctx)
	return doc.ID, nil
}

func (s *Store) InsertBill(ctx context.Context, b core.Bill) (string, error) {
	if err := b.Validate(); err != nil {
		return "", err
	}
	doc := billDoc{
		ID:          uuid.NewString(),
		UserID:      s.userID,
		Name:        b.Name,
		AmountCents: b.Amount.Cents,
		Category:    string(b.Category),
		Frequency:   string(b.Frequency.Normalize()),
		DueDay:      b.DueDay,
		CreatedAt:   b.CreatedAt.UTC(),
	}
	if _, err := s.db.Collection(billCollection).InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("insert bill: %w", err)
	}
	s.notify(ctx)
	return doc.ID, nil
}

func (s *Store) DeleteIncome(ctx context.Context, id string) error {
	return s.deleteByID(ctx, incomeCollection, id)
}

func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	return s.deleteByID(ctx, expenseCollection, id)
}

func (s *Store) DeleteBill(ctx context.Context, id string) error {
	return s.deleteByID(ctx, billCollection, id)
}

func (s *Store) deleteByID(ctx context.Context, collection, id string) error {
	res, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id, "user_id": s.userID})
	if err != nil {
		return fmt.Errorf("delete from %s: %w", collection, err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	s.notify(ctx)
	return nil
}

func (s *Store) Subscribe(ctx context.Context) *store.Subscription {
	return s.hub.Subscribe(ctx)
}

func (s *Store) Close() error {
	s.hub.CloseAll()
	if s.client != nil {
		return s.client.Disconnect(context.Background())
	}
	return nil
}

func (s *Store) notify(ctx context.Context) {
	snap, err := s.LoadSnapshot(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load snapshot for broadcast", "error", err)
		return
	}
	s.hub.Broadcast(snap)
}
