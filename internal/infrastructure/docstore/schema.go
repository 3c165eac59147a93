package docstore

// notifyChannel carries "collection/id" payloads for committed document writes.
const notifyChannel = "docstore_changes"

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		collection  TEXT    NOT NULL,
		id          TEXT    NOT NULL,
		data        TEXT    NOT NULL DEFAULT '{}',
		update_time INTEGER NOT NULL,
		PRIMARY KEY (collection, id)
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		collection  TEXT        NOT NULL,
		id          TEXT        NOT NULL,
		data        JSONB       NOT NULL DEFAULT '{}'::jsonb,
		update_time TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (collection, id)
	)`,
	`CREATE OR REPLACE FUNCTION documents_notify() RETURNS trigger AS $$
	BEGIN
		PERFORM pg_notify('` + notifyChannel + `', NEW.collection || '/' || NEW.id);
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS documents_notify ON documents`,
	`CREATE TRIGGER documents_notify AFTER INSERT OR UPDATE ON documents
		FOR EACH ROW EXECUTE FUNCTION documents_notify()`,
}
