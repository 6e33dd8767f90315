package store

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores entities as JSONB documents in a single table. Natural-key
// lookup is a containment query against the fields column.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Connect opens a pgx pool and verifies connectivity.
func Connect(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, errors.Wrap(err, "open pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping database")
	}
	return pool, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS migration_entities (
	id uuid PRIMARY KEY,
	kind text NOT NULL,
	fields jsonb NOT NULL,
	metadata jsonb NOT NULL DEFAULT '{}'::jsonb,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS migration_entities_kind_fields_idx
	ON migration_entities USING gin (fields jsonb_path_ops);
`

// EnsureSchema creates the entity table when it does not exist yet.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaDDL); err != nil {
		return errors.Wrap(err, "ensure schema")
	}
	return nil
}

func (p *Postgres) FindByKey(ctx context.Context, kind Kind, key map[string]any) (*Entity, error) {
	keyJSON, err := json.Marshal(key)
	if err != nil {
		return nil, errors.Wrap(err, "marshal key")
	}

	var (
		id         uuid.UUID
		fieldsJSON []byte
	)
	row := p.pool.QueryRow(ctx,
		`SELECT id, fields FROM migration_entities WHERE kind = $1 AND fields @> $2 LIMIT 1`,
		string(kind), keyJSON,
	)
	if err := row.Scan(&id, &fieldsJSON); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "find %s by key", kind)
	}

	var fields map[string]any
	if err := json.Unmarshal(fieldsJSON, &fields); err != nil {
		return nil, errors.Wrapf(err, "decode %s fields", kind)
	}
	return &Entity{ID: id, Kind: kind, Fields: fields}, nil
}

func (p *Postgres) Create(ctx context.Context, kind Kind, fields map[string]any) (*Entity, error) {
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return nil, errors.Wrapf(err, "marshal %s fields", kind)
	}

	e := &Entity{ID: uuid.New(), Kind: kind, Fields: fields}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO migration_entities (id, kind, fields) VALUES ($1, $2, $3)`,
		e.ID, string(kind), fieldsJSON,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s", kind)
	}
	return e, nil
}

func (p *Postgres) Save(ctx context.Context, e *Entity, meta Metadata) error {
	fieldsJSON, err := json.Marshal(e.Fields)
	if err != nil {
		return errors.Wrapf(err, "marshal %s fields", e.Kind)
	}
	stamp := meta.Stamp
	if stamp == nil {
		stamp = map[string]any{}
	}
	metaJSON, err := json.Marshal(stamp)
	if err != nil {
		return errors.Wrap(err, "marshal metadata")
	}

	tag, err := p.pool.Exec(ctx,
		`UPDATE migration_entities SET fields = $2, metadata = $3, updated_at = now() WHERE id = $1`,
		e.ID, fieldsJSON, metaJSON,
	)
	if err != nil {
		return errors.Wrapf(err, "save %s %s", e.Kind, e.ID)
	}
	if tag.RowsAffected() == 0 {
		return errors.Errorf("save %s %s: entity not found", e.Kind, e.ID)
	}
	return nil
}
