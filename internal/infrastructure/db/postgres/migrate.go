package postgres

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	name VARCHAR(100) NOT NULL,
	email VARCHAR(255) NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	address VARCHAR(400) NOT NULL DEFAULT '',
	role VARCHAR(20) NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'store_owner', 'admin')),
	store_id BIGINT,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS stores (
	id BIGSERIAL PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	email VARCHAR(255) NOT NULL UNIQUE,
	address VARCHAR(400) NOT NULL DEFAULT '',
	owner_id BIGINT REFERENCES users(id) ON DELETE SET NULL,
	average_rating DOUBLE PRECISION NOT NULL DEFAULT 0,
	total_ratings BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- users.store_id and stores.owner_id reference each other, so the second
-- foreign key is added once both tables exist.
DO $$
BEGIN
	IF NOT EXISTS (
		SELECT 1 FROM pg_constraint WHERE conname = 'users_store_id_fkey'
	) THEN
		ALTER TABLE users
			ADD CONSTRAINT users_store_id_fkey
			FOREIGN KEY (store_id) REFERENCES stores(id) ON DELETE SET NULL;
	END IF;
END
$$;

CREATE TABLE IF NOT EXISTS ratings (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	store_id BIGINT NOT NULL REFERENCES stores(id) ON DELETE CASCADE,
	rating SMALLINT NOT NULL CHECK (rating BETWEEN 1 AND 5),
	comment VARCHAR(500),
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
	CONSTRAINT ratings_user_store_key UNIQUE (user_id, store_id)
);

CREATE INDEX IF NOT EXISTS idx_ratings_store_id ON ratings(store_id);
CREATE INDEX IF NOT EXISTS idx_stores_average_rating ON stores(average_rating DESC, id);
CREATE INDEX IF NOT EXISTS idx_stores_owner_id ON stores(owner_id);

CREATE OR REPLACE FUNCTION update_updated_at_column()
RETURNS TRIGGER AS $$
BEGIN
	NEW.updated_at = NOW();
	RETURN NEW;
END;
$$ language 'plpgsql';

DO $$
DECLARE
	t TEXT;
BEGIN
	FOREACH t IN ARRAY ARRAY['users', 'stores', 'ratings'] LOOP
		IF NOT EXISTS (
			SELECT 1 FROM pg_trigger
			WHERE tgname = 'set_' || t || '_updated_at' AND tgrelid = t::regclass
		) THEN
			EXECUTE format(
				'CREATE TRIGGER %I BEFORE UPDATE ON %I FOR EACH ROW EXECUTE FUNCTION update_updated_at_column()',
				'set_' || t || '_updated_at', t
			);
		END IF;
	END LOOP;
END
$$;
`

// Migrate applies the schema. Every statement is idempotent so it runs on
// each startup.
func Migrate(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
