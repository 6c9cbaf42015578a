package fileclient

import (
	"context"
	"database/sql"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/src-d/go-billy.v4"
	_ "modernc.org/sqlite"

	"github.com/vidseg/vidseg/config"
	"github.com/vidseg/vidseg/logging"
	"github.com/vidseg/vidseg/utils"
)

func init() {
	RegisterBackend("sqlite", openSQLite)
}

const sqliteSchema = `CREATE TABLE IF NOT EXISTS files (
	path TEXT PRIMARY KEY,
	data BLOB NOT NULL
)`

// SQLiteConfig configures the sqlite blob store backend.
type SQLiteConfig struct {
	DBPath string `json:"db_path"`
}

// SQLiteClient reads files stored as blobs in a sqlite database. Keys are slash separated and
// relative to the store root, so "clips/a.png" and "/clips/a.png" name the same blob.
type SQLiteClient struct {
	db     *sql.DB
	dbPath string
}

func openSQLite(ctx context.Context, attributes utils.AttributeMap, logger logging.Logger) (Client, error) {
	conf, err := config.TransformAttributeMap[*SQLiteConfig](attributes)
	if err != nil {
		return nil, err
	}
	if conf.DBPath == "" {
		return nil, utils.NewConfigurationError("db_path", "field is required")
	}
	if _, err := os.Stat(conf.DBPath); err != nil {
		return nil, utils.NewIOError(conf.DBPath, err)
	}
	return OpenSQLiteStore(ctx, conf.DBPath)
}

// OpenSQLiteStore opens (creating if needed) the blob store at dbPath.
func OpenSQLiteStore(ctx context.Context, dbPath string) (*SQLiteClient, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, utils.NewIOError(dbPath, err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		err = errors.Wrap(err, "cannot create files table")
		return nil, utils.NewIOError(dbPath, multierr.Combine(err, db.Close()))
	}
	return &SQLiteClient{db: db, dbPath: dbPath}, nil
}

func storeKey(p string) string {
	return strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(p)), "/")
}

// Get returns the blob stored under p.
func (sc *SQLiteClient) Get(ctx context.Context, p string) ([]byte, error) {
	var data []byte
	err := sc.db.QueryRowContext(ctx, `SELECT data FROM files WHERE path = ?`, storeKey(p)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.NewIOError(p, os.ErrNotExist)
	}
	if err != nil {
		return nil, utils.NewIOError(p, err)
	}
	return data, nil
}

// Exists reports whether a blob is stored under p or under any path below p. The store root
// always exists.
func (sc *SQLiteClient) Exists(ctx context.Context, p string) (bool, error) {
	clean := storeKey(p)
	if clean == "" {
		return true, nil
	}
	var n int
	err := sc.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM files WHERE path = ? OR substr(path, 1, ?) = ?`,
		clean, len(clean)+1, clean+"/").Scan(&n)
	if err != nil {
		return false, utils.NewIOError(p, err)
	}
	return n > 0, nil
}

// Put stores data under p, replacing any previous blob.
func (sc *SQLiteClient) Put(ctx context.Context, p string, data []byte) error {
	if _, err := sc.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO files (path, data) VALUES (?, ?)`, storeKey(p), data); err != nil {
		return errors.Wrapf(err, "cannot store %q in %s", p, sc.dbPath)
	}
	return nil
}

// Close closes the database.
func (sc *SQLiteClient) Close() error {
	return sc.db.Close()
}

// PackDirectory copies every regular file below root in fs into the store, keyed by its path
// relative to root. It returns the number of files stored.
func PackDirectory(ctx context.Context, fs billy.Filesystem, root string, store *SQLiteClient) (int, error) {
	return packDirectory(ctx, NewBillyClient(fs), fs, root, "", store)
}

func packDirectory(
	ctx context.Context,
	src *BillyClient,
	fs billy.Filesystem,
	dir, rel string,
	store *SQLiteClient,
) (int, error) {
	infos, err := fs.ReadDir(dir)
	if err != nil {
		return 0, utils.NewIOError(dir, err)
	}
	count := 0
	for _, info := range infos {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		p := fs.Join(dir, info.Name())
		key := path.Join(rel, info.Name())
		if info.IsDir() {
			n, err := packDirectory(ctx, src, fs, p, key, store)
			count += n
			if err != nil {
				return count, err
			}
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		data, err := src.Get(ctx, p)
		if err != nil {
			return count, err
		}
		if err := store.Put(ctx, key, data); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
