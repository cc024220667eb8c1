package store

import (
	"context"
	"database/sql"
	"math/rand/v2"
	"sync"

	"github.com/amirrezaask/randomset/database"
	"github.com/amirrezaask/randomset/errors"
)

// sqlStore persists the pick list as rows of (namespace, slot, element). Slots
// of a namespace are always exactly 0..n-1 and the unique key on element plays
// the role of the index.
//
// Writers of a namespace are serialized: in process by writes, across
// processes by a locking read of the namespace rows where the dialect has one.
// SQLite allows a single writer per database anyway.
type sqlStore[T comparable] struct {
	db        *database.DB
	namespace string
	codec     Codec[T]
	lockRows  string

	writes sync.Mutex

	mu  sync.Mutex
	rng *rand.Rand
}

type SQLOptions[T comparable] struct {
	Namespace string
	Codec     Codec[T]
	// Source drives Random. Nil means a randomly seeded PCG.
	Source rand.Source
}

func NewSQL[T comparable](ctx context.Context, db *database.DB, opts SQLOptions[T]) (Store[T], error) {
	var createTable string
	switch db.Kind() {
	case database.MySQL:
		createTable = "CREATE TABLE IF NOT EXISTS randomset_store (" +
			"namespace VARCHAR(191) NOT NULL," +
			"slot BIGINT NOT NULL," +
			"element VARCHAR(512) NOT NULL," +
			"PRIMARY KEY (namespace, slot)," +
			"UNIQUE INDEX idx_namespace_element (namespace, element)" +
			");"
	case database.SQLite:
		createTable = "CREATE TABLE IF NOT EXISTS randomset_store (" +
			"namespace TEXT NOT NULL," +
			"slot INTEGER NOT NULL," +
			"element TEXT NOT NULL," +
			"PRIMARY KEY (namespace, slot)," +
			"UNIQUE (namespace, element)" +
			");"
	default:
		return nil, errors.Newf("error in creating sql store, unsupported database driver: %s", db.Kind())
	}

	if _, err := db.ExecContext(ctx, createTable); err != nil {
		return nil, errors.Wrap(err, "error in creating table randomset_store")
	}

	if opts.Codec == nil {
		opts.Codec = JSONCodec[T]{}
	}
	if opts.Source == nil {
		opts.Source = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}

	return &sqlStore[T]{
		db:        db,
		namespace: opts.Namespace,
		codec:     opts.Codec,
		lockRows:  lockingReadClause(db.Kind()),
		rng:       rand.New(opts.Source),
	}, nil
}

func lockingReadClause(kind string) string {
	if kind == database.MySQL {
		return " FOR UPDATE"
	}
	return ""
}

// write runs f in a transaction that owns the namespace. f gets the number of
// elements, read after the namespace was locked.
func (s *sqlStore[T]) write(ctx context.Context, f func(tx *database.Tx, n int) error) error {
	s.writes.Lock()
	defer s.writes.Unlock()

	return s.inTx(ctx, func(tx *database.Tx) error {
		var n int
		err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM randomset_store WHERE namespace = ?"+s.lockRows, s.namespace).Scan(&n)
		if err != nil {
			return errors.Wrap(err, "cannot lock namespace %s", s.namespace)
		}
		return f(tx, n)
	})
}

func (s *sqlStore[T]) inTx(ctx context.Context, f func(tx *database.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := f(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, errors.Wrap(rbErr, "cannot rollback sql store transaction"))
		}
		return err
	}

	return errors.Wrap(tx.Commit(), "cannot commit sql store transaction")
}

func (s *sqlStore[T]) count(ctx context.Context, tx *database.Tx) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM randomset_store WHERE namespace = ?", s.namespace).Scan(&n)
	return n, errors.Wrap(err, "cannot count elements of namespace %s", s.namespace)
}

func (s *sqlStore[T]) Insert(ctx context.Context, x T) error {
	element, err := s.codec.Encode(x)
	if err != nil {
		return err
	}

	return s.write(ctx, func(tx *database.Tx, n int) error {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM randomset_store WHERE namespace = ? AND element = ?", s.namespace, element).Scan(&exists)
		if err != nil {
			return errors.Wrap(err, "error in sql store membership check")
		}
		if exists > 0 {
			return nil
		}

		_, err = tx.ExecContext(ctx, "INSERT INTO randomset_store (namespace, slot, element) VALUES (?, ?, ?)", s.namespace, n, element)
		return errors.Wrap(err, "error in inserting into sql store")
	})
}

func (s *sqlStore[T]) Remove(ctx context.Context, x T) error {
	element, err := s.codec.Encode(x)
	if err != nil {
		return err
	}

	return s.write(ctx, func(tx *database.Tx, n int) error {
		var slot int
		err := tx.QueryRowContext(ctx, "SELECT slot FROM randomset_store WHERE namespace = ? AND element = ?", s.namespace, element).Scan(&slot)
		if errors.Is(err, sql.ErrNoRows) {
			return errors.Wrap(ErrNotFound, "cannot remove %v", x)
		}
		if err != nil {
			return errors.Wrap(err, "error in sql store slot lookup")
		}
		last := n - 1

		if _, err := tx.ExecContext(ctx, "DELETE FROM randomset_store WHERE namespace = ? AND slot = ?", s.namespace, slot); err != nil {
			return errors.Wrap(err, "error in deleting from sql store")
		}
		if slot == last {
			return nil
		}
		res, err := tx.ExecContext(ctx, "UPDATE randomset_store SET slot = ? WHERE namespace = ? AND slot = ?", slot, s.namespace, last)
		if err != nil {
			return errors.Wrap(err, "error in moving last slot of sql store")
		}
		if moved, err := res.RowsAffected(); err == nil && moved != 1 {
			return errors.Newf("namespace %s has no element at slot %d", s.namespace, last)
		}

		return nil
	})
}

func (s *sqlStore[T]) Contains(ctx context.Context, x T) (bool, error) {
	element, err := s.codec.Encode(x)
	if err != nil {
		return false, err
	}
	var n int
	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM randomset_store WHERE namespace = ? AND element = ?", s.namespace, element).Scan(&n)
	if err != nil {
		return false, errors.Wrap(err, "error in sql store contains")
	}

	return n > 0, nil
}

func (s *sqlStore[T]) Size(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM randomset_store WHERE namespace = ?", s.namespace).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "error in sql store size")
	}

	return n, nil
}

func (s *sqlStore[T]) intN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

func (s *sqlStore[T]) Random(ctx context.Context) (T, error) {
	var element string
	err := s.inTx(ctx, func(tx *database.Tx) error {
		n, err := s.count(ctx, tx)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrEmpty
		}
		err = tx.QueryRowContext(ctx, "SELECT element FROM randomset_store WHERE namespace = ? AND slot = ?", s.namespace, s.intN(n)).Scan(&element)
		return errors.Wrap(err, "error in sql store random")
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return s.codec.Decode(element)
}

func (s *sqlStore[T]) Items(ctx context.Context) ([]T, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT element FROM randomset_store WHERE namespace = ? ORDER BY slot", s.namespace)
	if err != nil {
		return nil, errors.Wrap(err, "error in sql store items")
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var element string
		if err := rows.Scan(&element); err != nil {
			return nil, errors.Wrap(err, "cannot scan sql store element")
		}
		x, err := s.codec.Decode(element)
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}

	return out, errors.Wrap(rows.Err(), "error in iterating sql store items")
}
