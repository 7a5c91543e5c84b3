package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/Desarso/docassist"
	"github.com/Desarso/docassist/logger"
	"github.com/Desarso/docassist/models"
	"github.com/Desarso/docassist/server"
	"github.com/Desarso/docassist/stores"
	"github.com/Desarso/docassist/summarize"
)

type globalFlags struct {
	configPath string
	logLevel   string
	provider   string
	model      string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "docassist",
		Short:         "Chat assistants for documents and images",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to a YAML configuration file")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error")
	root.PersistentFlags().StringVar(&flags.provider, "provider", "", "completion provider (openai, openrouter, groq, cerebras, gemini, anthropic)")
	root.PersistentFlags().StringVar(&flags.model, "model", "", "model for every profile")

	root.AddCommand(newServeCmd(flags), newAskCmd(flags), newSummarizeCmd(flags), newTracesCmd(flags))
	return root
}

// load reads the configuration, applies flag overrides and sets up logging.
func (f *globalFlags) load() (*docassist.Config, error) {
	cfg, err := docassist.LoadConfig(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.provider != "" {
		cfg.WithProvider(f.provider).WithAPIKey("")
		cfg.ResolveAPIKey()
	}
	if f.model != "" {
		cfg.WithModel(f.model)
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if err := logger.Configure(cfg.Log.Level, cfg.Log.File); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the browser UI and the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.WithAddr(addr)
			}

			assistant, err := docassist.NewAssistant(cfg)
			if err != nil {
				return err
			}
			defer assistant.Close()

			manager := assistant.NewManager()
			if err := manager.StartJanitor(cfg.Server.JanitorSchedule); err != nil {
				return err
			}
			defer manager.Stop()

			summarizer, err := assistant.Summarizer()
			if err != nil {
				return err
			}

			srv := server.New(server.Options{
				Manager:        manager,
				Summarizer:     summarizer,
				Metrics:        assistant.Metrics,
				Profiles:       cfg.ResolvedProfiles(),
				Health:         assistant.Health,
				RateLimitRPS:   cfg.Server.RateLimitRPS,
				RateLimitBurst: cfg.Server.RateLimitBurst,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx, cfg.Server.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from configuration)")
	return cmd
}

func newAskCmd(flags *globalFlags) *cobra.Command {
	var profile, file string
	var raw bool
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask one question, optionally about an image or a PDF",
		Example: `  docassist ask "What is photosynthesis?"
  docassist ask --file diagram.png "Explain this diagram"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			assistant, err := docassist.NewAssistant(cfg)
			if err != nil {
				return err
			}
			defer assistant.Close()

			controller, err := assistant.NewController("cli", profile)
			if err != nil {
				return err
			}
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				if result := controller.SetUpload(filepath.Base(file), data); !result.OK() {
					return result.Err
				}
			}

			result := controller.Submit(cmd.Context(), strings.Join(args, " "))
			if result.Notice != nil && result.OK() {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", result.Notice.Level, result.Notice.Message)
			}
			if !result.OK() {
				return result.Err
			}
			return printMarkdown(cmd, result.Reply, raw)
		},
	}
	cmd.Flags().StringVarP(&profile, "profile", "p", "", "assistant profile (default from configuration)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "image or PDF to ask about")
	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown without rendering")
	return cmd
}

func newSummarizeCmd(flags *globalFlags) *cobra.Command {
	var out string
	var save, raw bool
	cmd := &cobra.Command{
		Use:   "summarize <article.pdf>",
		Short: "Extract title and author of an article and summarize it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			assistant, err := docassist.NewAssistant(cfg)
			if err != nil {
				return err
			}
			defer assistant.Close()

			summarizer, err := assistant.Summarizer()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			report, err := summarizer.Summarize(cmd.Context(), models.Upload{Filename: filepath.Base(args[0]), Data: data})
			if err != nil {
				return err
			}

			if save && out == "" {
				out = filepath.Join(filepath.Dir(args[0]), summarize.DownloadName(args[0]))
			}
			if out != "" {
				if err := os.WriteFile(out, []byte(report.Text()), 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "saved %s\n", out)
			}
			return printMarkdown(cmd, report.Markdown(), raw)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the report to this file")
	cmd.Flags().BoolVarP(&save, "save", "s", false, "write the report next to the article (paper.pdf -> paper.txt)")
	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown without rendering")
	return cmd
}

func newTracesCmd(flags *globalFlags) *cobra.Command {
	var purge bool
	cmd := &cobra.Command{
		Use:   "traces <session-id>",
		Short: "List or delete the completion traces of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			store, err := stores.NewTraceStore(&cfg.Traces)
			if err != nil {
				return err
			}
			if store == nil {
				return fmt.Errorf("no trace store configured (set traces.type to sqlite or postgres)")
			}
			defer store.Close()

			if purge {
				if err := store.DeleteTracesBySession(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "deleted traces of %s\n", args[0])
				return nil
			}
			traces, err := store.GetTracesBySession(args[0])
			if err != nil {
				return err
			}
			return printTraces(cmd, traces)
		},
	}
	cmd.Flags().BoolVar(&purge, "delete", false, "delete the traces instead of listing them")
	return cmd
}

func printTraces(cmd *cobra.Command, traces []*stores.CompletionTrace) error {
	out := cmd.OutOrStdout()
	if len(traces) == 0 {
		_, err := fmt.Fprintln(out, "no traces")
		return err
	}
	for _, t := range traces {
		line := fmt.Sprintf("%s  %-8s %-10s %-24s %-6s %6dms %6d tokens",
			t.CreatedAt.Format("2006-01-02 15:04:05"), t.Profile, t.Provider, t.Model, t.Status, t.DurationMS, t.TotalTokens)
		if t.Error != "" {
			line += "  " + t.Error
		}
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}

func printMarkdown(cmd *cobra.Command, text string, raw bool) error {
	if raw {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
		return err
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return err
	}
	rendered, err := renderer.Render(text)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), rendered)
	return err
}
