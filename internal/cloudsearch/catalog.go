package cloudsearch

import (
	"context"
	"database/sql"
	"time"

	"github.com/zenith-dev/zenith/internal/zerr"
)

// EnsureCatalogSchema creates the published_objects table on the remote
// catalog if it does not already exist. It is safe to call on every startup.
func EnsureCatalogSchema(ctx context.Context, catalog *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS published_objects (
	path       VARCHAR(1024) NOT NULL,
	ecosystem  VARCHAR(128) NOT NULL,
	package    VARCHAR(256) NOT NULL,
	version    VARCHAR(128) NOT NULL,
	kind       VARCHAR(16) NOT NULL,
	visibility VARCHAR(16) NOT NULL,
	org_id     VARCHAR(128) NOT NULL DEFAULT '',
	owner_sub  VARCHAR(128) NOT NULL DEFAULT '',
	created_at VARCHAR(64) NOT NULL,
	PRIMARY KEY (path)
);`
	_, err := catalog.ExecContext(ctx, ddl)
	return zerr.Wrap("cloudsearch: ensure catalog schema", err)
}

// RegisterObject records a published columnar object in the remote catalog
// so later SearchCloudVectorScoped calls can find it. Callers invoke this
// immediately after internal/doclake.WriteToR2 (or an equivalent local
// publish) returns the object's URI.
func RegisterObject(ctx context.Context, catalog *sql.DB, obj CatalogObject, ecosystem, pkg string) error {
	_, err := catalog.ExecContext(ctx, `
		INSERT INTO published_objects (path, ecosystem, package, version, kind, visibility, org_id, owner_sub, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		obj.Path, ecosystem, pkg, obj.Version, obj.Kind, obj.Visibility, obj.OrgID, obj.OwnerSub,
		time.Now().UTC().Format(time.RFC3339Nano))
	return zerr.Wrap("cloudsearch: register published object", err)
}
