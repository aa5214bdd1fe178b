// Package main provides the CLI entrypoint for flashvocab.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/flashvocab/internal/client"
	"github.com/verte-zerg/flashvocab/internal/config"
	"github.com/verte-zerg/flashvocab/internal/logger"
	"github.com/verte-zerg/flashvocab/internal/model"
	"github.com/verte-zerg/flashvocab/internal/server"
	"github.com/verte-zerg/flashvocab/internal/session"
	"github.com/verte-zerg/flashvocab/internal/setsui"
	"github.com/verte-zerg/flashvocab/internal/sheet"
	"github.com/verte-zerg/flashvocab/internal/stats"
	"github.com/verte-zerg/flashvocab/internal/store"
	"github.com/verte-zerg/flashvocab/internal/tui"
)

const (
	defaultAddr = ":3001"
	defaultEnv  = "development"
)

var (
	fileCfg config.FileConfig

	serverURL string
	dbPath    string
	logLevel  string
	logFile   string

	serveAddr string
	serveEnv  string
	serveCORS []string

	importName        string
	importDescription string

	studyIncludeAll bool
	studyShuffle    bool

	deleteYes bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	rootCmd := newRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "flashvocab",
		Short:             "Vocabulary flashcards in the terminal",
		SilenceUsage:      true,
		SilenceErrors:     false,
		PersistentPreRunE: loadSettings,
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "flashvocab server URL (default: local database)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", config.DefaultDBPath(), "SQLite database path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write study screen logs to this file")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newSetsCmd())
	rootCmd.AddCommand(newStudyCmd())
	rootCmd.AddCommand(newBrowseCmd())
	rootCmd.AddCommand(newRenameCmd())
	rootCmd.AddCommand(newDescribeCmd())
	rootCmd.AddCommand(newDefaultFaceCmd())
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newResetCmd())
	rootCmd.AddCommand(newReorderCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// loadSettings resolves .env files, the config file and FLASHVOCAB_*
// variables. Flags set on the command line win over all of them.
func loadSettings(cmd *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(".env", config.DefaultEnvPath()); err != nil {
		return err
	}
	cfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	fileCfg = cfg

	applyStringConfig(cmd, "server", &serverURL, fileCfg.Client.Server)
	applyStringConfig(cmd, "db", &dbPath, fileCfg.Server.DB)
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)
	applyStringConfig(cmd, "log-file", &logFile, fileCfg.Log.File)
	return nil
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the vocabulary API over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", defaultAddr, "listen address")
	cmd.Flags().StringVar(&serveEnv, "env", defaultEnv, "environment (production enables JSON logs)")
	cmd.Flags().StringSliceVar(&serveCORS, "cors-origins", []string{"*"}, "allowed CORS origins")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	applyStringConfig(cmd, "addr", &serveAddr, fileCfg.Server.Addr)
	applyStringConfig(cmd, "env", &serveEnv, fileCfg.Server.Env)
	applyStringSliceConfig(cmd, "cors-origins", &serveCORS, fileCfg.Server.CORSOrigins)

	log, err := logger.New(serveEnv, logLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() {
		// Best-effort flush.
		_ = log.Sync()
	}()

	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			log.Error("failed to close db", zap.Error(cerr))
		}
	}()

	srv := server.New(st, log, server.Options{Addr: serveAddr, CORSOrigins: serveCORS})
	log.Info("server starting",
		zap.String("addr", serveAddr),
		zap.String("db", dbPath),
		zap.String("env", serveEnv),
	)
	if err := srv.Run(cmd.Context()); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	log.Info("server stopped")
	return nil
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a .xlsx or .csv sheet as a new set",
		Args:  cobra.ExactArgs(1),
		RunE:  runImportCmd,
	}
	cmd.Flags().StringVar(&importName, "name", "", "set name (default: file name)")
	cmd.Flags().StringVar(&importDescription, "description", "", "set description")
	return cmd
}

func runImportCmd(cmd *cobra.Command, args []string) error {
	path := args[0]
	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	var res model.ImportResult
	if c, ok := st.(*client.Client); ok {
		// The server parses the sheet itself.
		res, err = c.UploadFile(cmd.Context(), path, importName, importDescription)
	} else {
		var rows []model.Row
		rows, err = sheet.ReadFile(path)
		if err != nil {
			return err
		}
		name := strings.TrimSpace(importName)
		if name == "" {
			name = sheet.SetNameFromFile(path)
		}
		res, err = st.ImportSet(cmd.Context(), name, importDescription, rows)
	}
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", path, err)
	}
	return printf(cmd, "Imported %d cards into set %d\n", res.CardCount, res.SetID)
}

func newSetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sets",
		Short: "List sets with their progress",
		Args:  cobra.NoArgs,
		RunE:  runSetsCmd,
	}
}

func runSetsCmd(cmd *cobra.Command, _ []string) error {
	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	report, err := stats.BuildReport(cmd.Context(), st)
	if err != nil {
		return err
	}
	if err := stats.Render(cmd.OutOrStdout(), report, 0); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func addStudyFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&studyIncludeAll, "include-all", false, "also study cards already learned")
	cmd.Flags().BoolVar(&studyShuffle, "shuffle", false, "shuffle cards when a set is loaded")
}

func applyStudyConfig(cmd *cobra.Command) {
	applyBoolConfig(cmd, "include-all", &studyIncludeAll, fileCfg.Study.IncludeAll)
	applyBoolConfig(cmd, "shuffle", &studyShuffle, fileCfg.Study.Shuffle)
}

func newStudyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "study <set-id>",
		Short: "Study one set",
		Args:  cobra.ExactArgs(1),
		RunE:  runStudyCmd,
	}
	addStudyFlags(cmd)
	return cmd
}

func runStudyCmd(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	applyStudyConfig(cmd)

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()
	log, err := logger.NewFile(logFile, logLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() {
		// Best-effort flush.
		_ = log.Sync()
	}()

	engine := session.New(st, session.WithIncludeAll(studyIncludeAll))
	m := tui.NewModel(engine, id, tui.WithLogger(log), tui.WithShuffle(studyShuffle))
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newBrowseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse, reorder and study sets",
		Args:  cobra.NoArgs,
		RunE:  runBrowseCmd,
	}
	addStudyFlags(cmd)
	return cmd
}

func runBrowseCmd(cmd *cobra.Command, _ []string) error {
	applyStudyConfig(cmd)

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()
	log, err := logger.NewFile(logFile, logLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() {
		// Best-effort flush.
		_ = log.Sync()
	}()

	m := setsui.NewModel(st,
		setsui.WithLogger(log),
		setsui.WithStudyOptions(
			[]session.Option{session.WithIncludeAll(studyIncludeAll)},
			tui.WithShuffle(studyShuffle),
		),
	)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run set browser: %w", err)
	}
	return nil
}

func newRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <set-id> <name>",
		Short: "Rename a set",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args[1:], " ")
			set, err := updateSet(cmd, args[0], model.SetPatch{Name: &name})
			if err != nil {
				return err
			}
			return printf(cmd, "Renamed set %d to %q\n", set.ID, set.Name)
		},
	}
}

func newDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <set-id> [text]",
		Short: "Set or clear the description of a set",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args[1:], " ")
			set, err := updateSet(cmd, args[0], model.SetPatch{Description: &text})
			if err != nil {
				return err
			}
			if set.Description == "" {
				return printf(cmd, "Cleared description of set %d\n", set.ID)
			}
			return printf(cmd, "Updated description of set %d\n", set.ID)
		},
	}
}

func newDefaultFaceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "default-face <set-id> <face>",
		Short: "Choose the face a set opens on (0-4 or headword, meaning, pronunciation, reading, example)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			face, err := parseFace(args[1])
			if err != nil {
				return err
			}
			set, err := updateSet(cmd, args[0], model.SetPatch{DefaultFace: &face})
			if err != nil {
				return err
			}
			return printf(cmd, "Set %d now opens on %s\n", set.ID, set.DefaultFace)
		},
	}
}

func updateSet(cmd *cobra.Command, rawID string, patch model.SetPatch) (model.VocabularySet, error) {
	id, err := parseID(rawID)
	if err != nil {
		return model.VocabularySet{}, err
	}
	st, closeStore, err := openStore()
	if err != nil {
		return model.VocabularySet{}, err
	}
	defer closeStore()
	set, err := st.UpdateSet(cmd.Context(), id, patch)
	if err != nil {
		return model.VocabularySet{}, fmt.Errorf("failed to update set %d: %w", id, err)
	}
	return set, nil
}

func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <set-id>",
		Short: "Delete a set and its cards",
		Args:  cobra.ExactArgs(1),
		RunE:  runDeleteCmd,
	}
	cmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func runDeleteCmd(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := cmd.Context()
	if !deleteYes {
		detail, err := st.GetSet(ctx, id, true)
		if err != nil {
			return fmt.Errorf("failed to load set %d: %w", id, err)
		}
		ok, err := confirm(cmd, fmt.Sprintf("Delete %q and its %d cards? [y/N] ", detail.Name, detail.TotalCount))
		if err != nil {
			return err
		}
		if !ok {
			logErrln("Aborted.")
			return nil
		}
	}
	if err := st.DeleteSet(ctx, id); err != nil {
		return fmt.Errorf("failed to delete set %d: %w", id, err)
	}
	return printf(cmd, "Deleted set %d\n", id)
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <set-id>",
		Short: "Mark every card of a set as not learned",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			st, closeStore, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore()
			count, err := st.ResetSet(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to reset set %d: %w", id, err)
			}
			return printf(cmd, "Reset %d cards in set %d\n", count, id)
		},
	}
}

func newReorderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <set-id>...",
		Short: "Store the order of the set list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			st, closeStore, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore()
			if err := st.ReorderSets(cmd.Context(), ids); err != nil {
				return fmt.Errorf("failed to reorder sets: %w", err)
			}
			return printf(cmd, "Reordered %d sets\n", len(ids))
		},
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		// A broken config file must still be editable.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE:              runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// openStore returns the remote store when a server URL is configured and
// the local database otherwise.
func openStore() (server.CardStore, func(), error) {
	if serverURL != "" {
		c, err := client.New(serverURL)
		if err != nil {
			return nil, nil, err
		}
		return c, func() {}, nil
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid set id %q", s)
	}
	return id, nil
}

func parseFace(s string) (model.Face, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if f := model.Face(n); f.Valid() {
			return f, nil
		}
		return 0, fmt.Errorf("face must be between 0 and %d", model.FaceCount-1)
	}
	for f := model.Face(0); f < model.FaceCount; f++ {
		if strings.EqualFold(f.String(), s) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown face %q", s)
}

func confirm(cmd *cobra.Command, prompt string) (bool, error) {
	logErrf("%s", prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func printf(cmd *cobra.Command, format string, args ...any) error {
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), format, args...); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyStringSliceConfig(cmd *cobra.Command, name string, target *[]string, value []string) {
	if len(value) == 0 {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# flashvocab configuration
# Uncomment a value to enable it. FLASHVOCAB_* environment variables
# override this file; CLI flags override both.

[server]
# addr = %q              # Listen address of "flashvocab serve"
# cors-origins = ["*"]       # Allowed CORS origins
# env = %q         # "production" switches to JSON logs
# db = %q

[client]
# server = "http://localhost:3001"   # Use a remote server instead of the local database

[study]
# include-all = false        # Also study cards already learned
# shuffle = false            # Shuffle cards when a set is loaded

[log]
# level = "info"             # debug, info, warn, error
# file = ""                  # Study screen log file
`,
		defaultAddr,
		defaultEnv,
		config.DefaultDBPath(),
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
