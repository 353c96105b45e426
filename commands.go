package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/text/message"

	"dependency-checker/orchestrator"
	"dependency-checker/projector"
	"dependency-checker/reporttable"
	"dependency-checker/resolver"
	"dependency-checker/types/config"
	"dependency-checker/viewer"
)

// askOneFunc is swapped out in tests.
var askOneFunc = survey.AskOne

type cli struct {
	configPath string
	cfg        config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "dependency-checker",
		Short:         "Generate and review dependency scan reports",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loadEnvFiles()
			cfg, err := parseConfigFile(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			setLogLevel(cfg.Settings.LogLevel)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "config.yaml", "path to the config file")

	root.AddCommand(c.newGenerateCmd(), c.newViewCmd(), c.newReportCmd())
	return root
}

func (c *cli) newGenerateCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "generate [repo-path]",
		Short: "Scan a repository and write the combined JSON report",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			log.Printf("main:: Dependency-Checker %s generate Enter()", version)

			var repoPath string
			if len(args) == 1 {
				repoPath = args[0]
			} else {
				var err error
				repoPath, err = promptRepoPath()
				if err != nil {
					log.Fatalf("main:: Could not read repository path. Error: %v", err)
				}
			}
			if output == "" {
				output = c.cfg.Config.OutputFilename
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			result, err := orchestrator.New(c.cfg).GenerateReport(ctx, repoPath, output)
			if err != nil {
				stop()
				log.Fatalf("main:: Could not generate report for %s. Error: %v", repoPath, err)
			}
			p := message.NewPrinter(message.MatchLanguage("en"))
			log.Print(p.Sprintf("main:: Wrote %s (%d files, %d binaries)", result.OutputFilename, result.FileCount, result.BinaryCount))
			log.Print("main:: Exit()")
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "report file to write (default from config, dependencies_report.json)")
	return cmd
}

func promptRepoPath() (string, error) {
	var repoPath string
	prompt := &survey.Input{
		Message: "Enter the path to your repository:",
	}
	if err := askOneFunc(prompt, &repoPath, survey.WithValidator(survey.Required)); err != nil {
		return "", err
	}
	return strings.TrimSpace(repoPath), nil
}

func (c *cli) newViewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view [report.json]",
		Short: "Browse a report in an interactive table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// The terminal belongs to the UI; logs go to a file.
			logFile, err := os.OpenFile(c.cfg.Settings.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer logFile.Close()
			log.SetOutput(logFile)
			defer log.SetOutput(os.Stderr)

			opts := viewer.Options{ExportDir: "."}
			if len(args) == 1 {
				opts.ReportPath = args[0]
			}
			if wd, err := os.Getwd(); err == nil {
				opts.StartDir = wd
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
			defer stop()
			return viewer.Run(ctx, resolver.New(c.cfg), opts)
		},
	}
}

func (c *cli) newReportCmd() *cobra.Command {
	var csvPath string
	cmd := &cobra.Command{
		Use:   "report <report.json>",
		Short: "Print the projected table without the interactive UI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runReport(ctx, cmd.OutOrStdout(), args[0], csvPath, resolver.New(c.cfg))
		},
	}
	cmd.Flags().StringVar(&csvPath, "csv", "", "write the table to this CSV file instead of printing it")
	return cmd
}

func runReport(ctx context.Context, out io.Writer, reportPath, csvPath string, versions projector.VersionResolver) error {
	log.Print("runReport:: Enter()")
	report, err := projector.LoadReport(reportPath)
	if err != nil {
		return err
	}
	log.Print("✅ JSON Loaded Successfully")
	log.Print("🔍 Checking installed & latest versions...")

	rows := reporttable.New()
	rows.Replace(projector.Project(ctx, report, versions))

	if csvPath != "" {
		if err := reporttable.WriteCSV(csvPath, rows.Records()); err != nil {
			return err
		}
	} else {
		records := rows.Records()
		t := lgtable.New().
			Border(lipgloss.NormalBorder()).
			Headers(records[0]...).
			Rows(records[1:]...)
		fmt.Fprintln(out, t.String())
	}

	p := message.NewPrinter(message.MatchLanguage("en"))
	log.Print(p.Sprintf("runReport:: %d rows, %d binaries listed", rows.Len(), len(report.Binaries)))
	log.Print("runReport:: Exit()")
	return nil
}
