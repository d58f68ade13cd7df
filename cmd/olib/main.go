package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"

	"github.com/olib-dev/olib/internal/audit"
	"github.com/olib-dev/olib/internal/backup"
	"github.com/olib-dev/olib/internal/bootstrap"
	"github.com/olib-dev/olib/internal/config"
	"github.com/olib-dev/olib/internal/initialize"
	"github.com/olib-dev/olib/internal/shell"
	"github.com/olib-dev/olib/internal/template"
	"github.com/olib-dev/olib/internal/tools"
	"github.com/olib-dev/olib/internal/watch"
	"github.com/olib-dev/olib/internal/workspace"
	"github.com/olib-dev/olib/pkg/clog"
)

var (
	app = kingpin.New("olib", "Personal developer-productivity toolkit")

	flagInst    = app.Flag("inst", "Instance name or alias to operate on").Short('i').String()
	flagCluster = app.Flag("cluster", "Cluster to select the instance by").Short('c').String()
	flagDebug   = app.Flag("debug", "Enable debug logging").Short('d').Bool()

	// Project setup
	initCmd   = app.Command("init", "Initialize the current project")
	initDev   = initCmd.Flag("dev", "Install development tooling (hooks, dev deps)").Default("true").Bool()
	initNoDev = initCmd.Flag("nodev", "Shorthand for --dev=false").Bool()
	initForce = initCmd.Flag("force", "Skip the version-control check and recreate the venv").Bool()

	bootstrapCmd  = app.Command("bootstrap", "Install language toolchains")
	bootstrapName = bootstrapCmd.Arg("toolchain", "python, node, rust, or all").Required().Enum("python", "node", "rust", "all")

	// Python tooling
	pyCmd       = app.Command("py", "Python tooling")
	pyLintCmd   = pyCmd.Command("lint", "Run pylint")
	pyLintFiles = pyLintCmd.Arg("files", "Files to lint").Strings()
	pyLintQuiet = pyLintCmd.Flag("quiet", "Suppress reports and scores").Default("true").Bool()

	pyMypyCmd    = pyCmd.Command("mypy", "Run the mypy type checker")
	pyMypyFiles  = pyMypyCmd.Arg("files", "Files to check").Strings()
	pyMypyDaemon = pyMypyCmd.Flag("daemon", "Use the mypy daemon").Bool()

	pyTestCmd   = pyCmd.Command("test", "Run pytest")
	pyTestFiles = pyTestCmd.Arg("files", "Tests to run").Strings()

	pyFormatCmd   = pyCmd.Command("format", "Apply formatting hooks")
	pyFormatFiles = pyFormatCmd.Arg("files", "Files to format").Strings()

	// JavaScript tooling
	jsCmd       = app.Command("js", "JavaScript tooling")
	jsLintCmd   = jsCmd.Command("lint", "Run the lint script per package")
	jsLintFiles = jsLintCmd.Arg("files", "Files to lint").Strings()

	jsTscCmd = jsCmd.Command("tsc", "Type-check the frontend")

	jsTestCmd = jsCmd.Command("test", "Run the frontend tests")
	jsTestUI  = jsTestCmd.Flag("ui", "Allow the interactive test watcher").Bool()

	// Development workflows
	devCmd          = app.Command("dev", "Development workflows")
	devTestAllCmd   = devCmd.Command("test-all", "Run every configured check in parallel")
	devTestAllFiles = devTestAllCmd.Arg("files", "Limit checks to these files").Strings()

	devWatchCmd  = devCmd.Command("watch", "Re-run a command on file changes")
	devWatchPath = devWatchCmd.Flag("path", "Directory to watch").Default(".").String()
	devWatchExts = devWatchCmd.Flag("ext", "Extensions that trigger a rerun (repeatable)").Strings()
	devWatchRun  = devWatchCmd.Arg("cmd", "Command to run").Required().Strings()

	// Config queries
	hasCmd  = app.Command("has", "Exit 0 when the project declares a tool")
	hasTool = hasCmd.Flag("tool", "Tool name (python, javascript, ...)").Required().String()

	getCmd     = app.Command("get", "Print a configuration value")
	getLicense = getCmd.Flag("license", "Print the configured license id").Bool()

	renderCmd  = app.Command("render", "Render a toolkit template for the selected instance")
	renderName = renderCmd.Arg("template", "Template path relative to the toolkit checkout").Required().String()

	// Database backups
	dbCmd          = app.Command("db", "Database backup management")
	dbBackupCmd    = dbCmd.Command("backup", "Dump a database and archive it")
	dbBackupEngine = dbBackupCmd.Arg("engine", "postgres or mysql").Required().Enum("postgres", "mysql")
	dbBackupDB     = dbBackupCmd.Flag("database", "Database name").Required().String()
	dbBackupHost   = dbBackupCmd.Flag("host", "Database host").Default("localhost").String()
	dbBackupPort   = dbBackupCmd.Flag("port", "Database port").Int()
	dbBackupUser   = dbBackupCmd.Flag("username", "Database user").String()
	dbBackupPass   = dbBackupCmd.Flag("password", "Database password (prefer the engine's env var)").String()

	dbListCmd    = dbCmd.Command("list", "List archived backups")
	dbListEngine = dbListCmd.Flag("engine", "Filter by engine").String()

	// Admin views
	adminCmd      = app.Command("admin", "Admin views")
	adminAuditCmd = adminCmd.Command("audit", "Render the permission audit view")
	adminAuditDS  = adminAuditCmd.Flag("data", "Permission dataset YAML").Default("permissions.yaml").String()
	adminAuditOut = adminAuditCmd.Flag("out", "Write the page to a file instead of serving").String()
	adminAuditAdr = adminAuditCmd.Flag("addr", "Serve the page on this address").Default("localhost:8036").String()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	env, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	level := env.SlogLevel()
	if *flagDebug {
		level = slog.LevelDebug
	}
	log := clog.Setup(os.Stderr, level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, command, env); err != nil {
		log.Error("command failed", clog.Err(err))
		os.Exit(shell.ExitCode(err))
	}
}

func run(ctx context.Context, command string, env *config.Env) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to resolve working directory: %w", err)
	}

	ws := workspace.Resolve(cwd, env.Path)
	cfg, err := config.Load(ws.Root)
	if err != nil {
		return err
	}
	inst, err := cfg.ResolveInst(*flagInst, *flagCluster)
	if err != nil {
		return err
	}
	rc := &config.RunContext{Config: cfg, Inst: inst}

	runner := shell.New(ws.Root, ws.Environ(os.Environ()))
	renderer := &template.Renderer{OlibPath: ws.OlibPath, BaseDir: ws.Root}
	tc := tools.New(rc, ws, runner, renderer, nil)

	switch command {
	case initCmd.FullCommand():
		dev := *initDev
		if *initNoDev {
			dev = false
		}
		return initialize.New(ws, runner, nil).Run(ctx, initialize.Options{Dev: dev, Force: *initForce})

	case bootstrapCmd.FullCommand():
		if *bootstrapName == "all" {
			for _, ins := range bootstrap.All() {
				if err := ins.Run(ctx, runner, nil); err != nil {
					return err
				}
			}
			return nil
		}
		ins, err := bootstrap.ByName(*bootstrapName)
		if err != nil {
			return err
		}
		return ins.Run(ctx, runner, nil)

	case pyLintCmd.FullCommand():
		return tc.PyLint(ctx, *pyLintFiles, *pyLintQuiet)
	case pyMypyCmd.FullCommand():
		return tc.PyTypeCheck(ctx, *pyMypyFiles, true, *pyMypyDaemon)
	case pyTestCmd.FullCommand():
		return tc.PyTest(ctx, *pyTestFiles)
	case pyFormatCmd.FullCommand():
		return tc.PyFormat(ctx, *pyFormatFiles)

	case jsLintCmd.FullCommand():
		return tc.JSLint(ctx, *jsLintFiles)
	case jsTscCmd.FullCommand():
		return tc.JSTsc(ctx)
	case jsTestCmd.FullCommand():
		return tc.JSTest(ctx, !*jsTestUI)

	case devTestAllCmd.FullCommand():
		return tc.TestAll(ctx, *devTestAllFiles)

	case devWatchCmd.FullCommand():
		cmd := strings.Join(*devWatchRun, " ")
		w := watch.New(*devWatchPath, *devWatchExts, func(ctx context.Context) error {
			return runner.Run(ctx, cmd)
		}, nil)
		if err := w.Watch(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil

	case hasCmd.FullCommand():
		if !cfg.HasTool(*hasTool) {
			return fmt.Errorf("tool %s not configured", *hasTool)
		}
		return nil

	case getCmd.FullCommand():
		if *getLicense {
			fmt.Println(cfg.License)
			return nil
		}
		return fmt.Errorf("nothing selected; pass --license")

	case renderCmd.FullCommand():
		path, err := renderer.Render(*renderName, template.Data{Config: cfg, Inst: inst}, template.InstSuffix(inst))
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil

	case dbBackupCmd.FullCommand():
		store, err := backup.NewStoreFromEnv(ctx, &env.StorageEnv)
		if err != nil {
			return err
		}
		key, err := backup.New(store, runner, nil).Backup(ctx, backup.Target{
			Engine:   *dbBackupEngine,
			Host:     *dbBackupHost,
			Port:     *dbBackupPort,
			Database: *dbBackupDB,
			Username: *dbBackupUser,
			Password: *dbBackupPass,
		})
		if err != nil {
			return err
		}
		fmt.Println(key)
		return nil

	case dbListCmd.FullCommand():
		store, err := backup.NewStoreFromEnv(ctx, &env.StorageEnv)
		if err != nil {
			return err
		}
		keys, err := backup.New(store, runner, nil).List(ctx, *dbListEngine)
		if err != nil {
			return err
		}
		for _, key := range keys {
			fmt.Println(key)
		}
		return nil

	case adminAuditCmd.FullCommand():
		ds, err := audit.LoadDataset(*adminAuditDS)
		if err != nil {
			return err
		}
		if *adminAuditOut != "" {
			f, err := os.Create(*adminAuditOut)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", *adminAuditOut, err)
			}
			defer f.Close()
			return audit.Render(f, ds, nil)
		}
		srv := audit.NewServer(*adminAuditAdr, ds, nil)
		return srv.ListenAndServe(ctx)
	}

	return fmt.Errorf("unknown command %q", command)
}
