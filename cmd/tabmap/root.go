package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/user/tabmap"
	"github.com/user/tabmap/internal/config"
	"github.com/user/tabmap/pkg/engine"
	"github.com/user/tabmap/pkg/workbook"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *engine.DefaultLogger
)

var rootCmd = &cobra.Command{
	Use:   "tabmap",
	Short: "tabmap maps columns of a source workbook onto a fixed template",
	Long: `Build a column mapping between a template workbook and a source workbook,
preview the transformed rows and write the result as a new xlsx workbook.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = loaded
		logger, err = engine.NewLogger(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
		return err
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./.tabmap.yaml or $HOME/.tabmap.yaml)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "console", "log format: console or json")
	flags.String("storage", "local", "storage for plain paths: local or s3")
	flags.String("local-dir", ".", "base directory for relative local paths")
	flags.String("s3-region", "", "region of the s3 storage")
	flags.String("s3-endpoint", "", "endpoint of an s3 compatible storage")
	bindFlag("log.level", flags.Lookup("log-level"))
	bindFlag("log.format", flags.Lookup("log-format"))
	bindFlag("storage.type", flags.Lookup("storage"))
	bindFlag("storage.local_dir", flags.Lookup("local-dir"))
	bindFlag("storage.s3.region", flags.Lookup("s3-region"))
	bindFlag("storage.s3.endpoint", flags.Lookup("s3-endpoint"))
}

// flagBindings maps config keys to the flags that override them.
var flagBindings = map[string]*pflag.Flag{}

func bindFlag(key string, flag *pflag.Flag) {
	flagBindings[key] = flag
}

// loadConfig layers the defaults, the config file, TABMAP_* variables and
// explicitly set flags, later ones winning.
func loadConfig() (*config.Config, error) {
	v := config.NewViper()
	for key, flag := range flagBindings {
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, err
		}
	}
	c, err := config.Load(v, cfgFile)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func newEngine() *engine.Engine {
	storage := cfg.Storage
	e := engine.NewEngine(workbook.NewOpener(storage), func() tabmap.WorkbookWriter {
		return workbook.NewXLSXWriter(storage)
	})
	e.SetLogger(logger)
	e.SetConfig(engine.Config{MaxPreviewRows: cfg.Preview.MaxRows, Workers: cfg.Preview.Workers})
	return e
}
