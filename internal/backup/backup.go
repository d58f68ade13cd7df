// Package backup dumps project databases and archives the dumps in
// configured storage (a local directory or an S3 bucket).
package backup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/olib-dev/olib/internal/config"
	"github.com/olib-dev/olib/internal/shell"
	"github.com/olib-dev/olib/pkg/storage"
)

// Target describes one database to back up.
type Target struct {
	Engine   string // "postgres" or "mysql"
	Host     string
	Port     int
	Database string
	Username string
	Password string
}

func (t Target) validate() error {
	switch t.Engine {
	case "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported engine %q", t.Engine)
	}
	if t.Database == "" {
		return fmt.Errorf("database name is required")
	}
	return nil
}

// dumpCommand builds the shell command writing the dump to outFile.
// Passwords go through the engine's environment variable, never argv.
func (t Target) dumpCommand(outFile string) string {
	host := t.Host
	if host == "" {
		host = "localhost"
	}
	switch t.Engine {
	case "postgres":
		port := t.Port
		if port == 0 {
			port = 5432
		}
		env := ""
		if t.Password != "" {
			env = "PGPASSWORD=" + shell.Quote(t.Password) + " "
		}
		// No username means "current user"; --username='' would instead
		// ask the server for an empty user.
		user := ""
		if t.Username != "" {
			user = "--username=" + shell.Quote(t.Username) + " "
		}
		return fmt.Sprintf("%spg_dump --host=%s --port=%d %s--no-password %s > %s",
			env, shell.Quote(host), port, user, shell.Quote(t.Database), shell.Quote(outFile))
	case "mysql":
		port := t.Port
		if port == 0 {
			port = 3306
		}
		env := ""
		if t.Password != "" {
			env = "MYSQL_PWD=" + shell.Quote(t.Password) + " "
		}
		user := ""
		if t.Username != "" {
			user = "--user=" + shell.Quote(t.Username) + " "
		}
		return fmt.Sprintf("%smysqldump --host=%s --port=%d %s--single-transaction %s > %s",
			env, shell.Quote(host), port, user, shell.Quote(t.Database), shell.Quote(outFile))
	}
	return ""
}

// Backuper runs dumps and moves them into storage.
type Backuper struct {
	Store  storage.Storage
	Runner shell.CommandRunner
	Log    *slog.Logger
}

func New(store storage.Storage, runner shell.CommandRunner, log *slog.Logger) *Backuper {
	if log == nil {
		log = slog.Default()
	}
	return &Backuper{Store: store, Runner: runner, Log: log}
}

// Backup dumps the target database and archives it, returning the
// storage key of the new archive.
func (b *Backuper) Backup(ctx context.Context, t Target) (string, error) {
	if err := t.validate(); err != nil {
		return "", err
	}

	tmpDir, err := os.MkdirTemp("", "olib-backup-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	outFile := filepath.Join(tmpDir, t.Database+".sql")
	b.Log.Info("dumping database", "engine", t.Engine, "database", t.Database)
	if err := b.Runner.Run(ctx, t.dumpCommand(outFile)); err != nil {
		return "", fmt.Errorf("dump of %s failed: %w", t.Database, err)
	}

	data, err := os.ReadFile(outFile)
	if err != nil {
		return "", fmt.Errorf("failed to read dump: %w", err)
	}

	key := path.Join("backups", t.Engine, fmt.Sprintf("%s-%s.sql", t.Database, ulid.Make().String()))
	if err := b.Store.Write(ctx, key, data); err != nil {
		return "", fmt.Errorf("failed to archive dump: %w", err)
	}
	b.Log.Info("backup archived", "key", key, "bytes", len(data))
	return key, nil
}

// List returns archived backup keys, optionally filtered by engine.
func (b *Backuper) List(ctx context.Context, engine string) ([]string, error) {
	prefix := "backups"
	if engine != "" {
		prefix = path.Join(prefix, engine)
	}
	keys, err := b.Store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	// Local listing may return keys outside the prefix when the base dir
	// holds unrelated files at the top level.
	var out []string
	for _, k := range keys {
		if strings.HasPrefix(k, prefix+"/") || k == prefix {
			out = append(out, k)
		}
	}
	return out, nil
}

// NewStoreFromEnv builds the archive store the environment selects.
func NewStoreFromEnv(ctx context.Context, env *config.StorageEnv) (storage.Storage, error) {
	switch env.Type {
	case "local":
		return storage.NewLocal(env.BaseDir)
	case "s3":
		if env.S3Bucket == "" {
			return nil, fmt.Errorf("OLIB_S3_BUCKET is required for s3 storage")
		}
		return storage.NewS3(ctx, env.S3Bucket, env.S3Prefix, env.S3Region)
	default:
		return nil, fmt.Errorf("unknown storage type %q", env.Type)
	}
}
