package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	log = logrus.New()

	tablesDir string
	dbPath    string
)

var rootCmd = &cobra.Command{
	Use:   "maplepay",
	Short: "Canadian payroll deductions engine",
	Long:  "Employer-side statutory payroll calculations (CPP, EI, federal and provincial income tax) for the twelve non-Quebec Canadian jurisdictions, with versioned T4127 tax tables and a payroll run workflow.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env is optional; environment wins over defaults, flags win over both.
		_ = godotenv.Load()
		if lvl := os.Getenv("MAPLEPAY_LOG_LEVEL"); lvl != "" {
			if parsed, err := logrus.ParseLevel(lvl); err == nil {
				log.SetLevel(parsed)
			}
		}
		if !cmd.Flags().Changed("tables") {
			if dir := os.Getenv("MAPLEPAY_TABLES_DIR"); dir != "" {
				tablesDir = dir
			}
		}
		if !cmd.Flags().Changed("db") {
			if p := os.Getenv("MAPLEPAY_DB"); p != "" {
				dbPath = p
			}
		}
	},
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(os.Stdout, "maplepay %s (commit %s, built %s)\n", version, commit, date)
			if bi, ok := debug.ReadBuildInfo(); ok && bi != nil {
				fmt.Fprintln(os.Stdout, bi.Main.Version)
			}
		},
	}
}

func main() {
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	rootCmd.PersistentFlags().StringVar(&tablesDir, "tables", "config/tax_tables", "tax table directory")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "maplepay.db", "payroll database path")

	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(calcCmd)
	rootCmd.AddCommand(paramsCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(employeeCmd)
	rootCmd.AddCommand(groupCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
