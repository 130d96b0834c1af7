// Package cli implements the proofline command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cognicore/proofline/pkg/proofline"
	"github.com/cognicore/proofline/pkg/proofline/config"
	"github.com/cognicore/proofline/pkg/proofline/lexicon"
	"github.com/cognicore/proofline/pkg/proofline/logging"
	"github.com/cognicore/proofline/pkg/proofline/report"
	"github.com/cognicore/proofline/pkg/proofline/rules"
	"github.com/cognicore/proofline/pkg/proofline/store/sqlite"
)

// app holds the state shared by all commands of one invocation.
type app struct {
	verbosity  int
	configPath string
	language   string

	settings *config.Settings
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "proofline",
		Short: "A rule based grammar checker",
		Long: `proofline splits text into sentences, tags and disambiguates every
word and reports the errors found by the configured pattern rules.`,
		Version: proofline.Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		DisableAutoGenTag: true,
	}

	// Global flags
	rootCmd.PersistentFlags().CountVarP(&a.verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Settings file (YAML or TOML); defaults to the XDG config directory")
	rootCmd.PersistentFlags().StringVarP(&a.language, "language", "l", "", "Language code, overriding the settings")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(a.newCheckCmd())
	rootCmd.AddCommand(a.newSplitCmd())
	rootCmd.AddCommand(a.newTokenizeCmd())
	rootCmd.AddCommand(a.newAnalyzeCmd())
	rootCmd.AddCommand(a.newRulesCmd())
	rootCmd.AddCommand(a.newLexiconCmd())

	return rootCmd
}

// setup loads the settings and configures logging.
func (a *app) setup(cmd *cobra.Command) error {
	path := a.configPath
	if path == "" {
		path = config.SearchSettingsFile()
	}
	s, err := config.LoadSettings(path)
	if err != nil {
		return err
	}
	if a.language != "" {
		s.Language = a.language
	}
	a.settings = s

	logFile := s.LogFile
	if logFile == "" {
		logFile = logging.LogFilePath()
	}
	logging.SetupLoggerTo(cmd.ErrOrStderr(), max(a.verbosity, s.Verbosity), logFile)
	log.Debug().Str("command", cmd.Name()).Str("settings", path).Msg("Command started")
	return nil
}

// checker loads the configured resources. The caller closes the returned
// Resources.
func (a *app) checker(ctx context.Context, enable, disable []string) (*proofline.Checker, *proofline.Resources, error) {
	s := *a.settings
	s.EnabledRules = append(append([]string{}, s.EnabledRules...), enable...)
	s.DisabledRules = append(append([]string{}, s.DisabledRules...), disable...)
	return proofline.NewFromSettings(ctx, &s)
}

// readInput returns the contents of the named file, or stdin when name is
// empty or "-".
func readInput(cmd *cobra.Command, name string) (string, error) {
	var r io.Reader = cmd.InOrStdin()
	if name != "" && name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", displayName(name), err)
	}
	return string(data), nil
}

func displayName(name string) string {
	if name == "" || name == "-" {
		return "<stdin>"
	}
	return name
}

// inputs returns args, or a single stdin entry when there are none.
func inputs(args []string) []string {
	if len(args) == 0 {
		return []string{"-"}
	}
	return args
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "proofline version %s (report API %d)\n", proofline.Version, report.APIVersion)
		},
	}
}

func (a *app) newCheckCmd() *cobra.Command {
	var (
		asJSON  bool
		html    bool
		enable  []string
		disable []string
	)
	cmd := &cobra.Command{
		Use:   "check [files...]",
		Short: "Check text for grammar errors",
		Long: `Check reads each file (or stdin) and prints the errors found, one per
line as file:line:column, followed by the rule id, the message and the
suggested replacements.`,
		Example: `  # Check a file
  proofline check README.txt

  # Check an HTML page and print the JSON report
  proofline check --html --json page.html

  # Check stdin with one extra rule
  echo "This this is it." | proofline check --enable MY_RULE`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, res, err := a.checker(ctx, enable, disable)
			if err != nil {
				return err
			}
			defer res.Close()

			builder := report.New(proofline.Version)
			lang := c.Components().Language
			out := cmd.OutOrStdout()
			for _, name := range inputs(args) {
				text, err := readInput(cmd, name)
				if err != nil {
					return err
				}

				var matches []rules.RuleMatch
				if html {
					matches, _, err = c.CheckMarkup(ctx, strings.NewReader(text))
				} else {
					matches, err = c.Check(ctx, text)
				}
				if err != nil {
					return fmt.Errorf("check %s: %w", displayName(name), err)
				}

				if asJSON {
					rep := builder.Build(report.Language{Name: lang.Name, Code: lang.Code}, text, matches)
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					if err := enc.Encode(rep); err != nil {
						return err
					}
					continue
				}
				for _, m := range matches {
					line, col := position(text, m.Start)
					fmt.Fprintf(out, "%s:%d:%d: %s: %s\n", displayName(name), line, col, m.RuleID, m.Message)
					if len(m.Suggestions) > 0 {
						fmt.Fprintf(out, "  suggestion: %s\n", strings.Join(m.Suggestions, ", "))
					}
				}
				log.Info().Str("input", displayName(name)).Int("matches", len(matches)).Msg("Checked")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the JSON report")
	cmd.Flags().BoolVar(&html, "html", false, "Treat the input as HTML")
	cmd.Flags().StringSliceVar(&enable, "enable", nil, "Rule ids to enable")
	cmd.Flags().StringSliceVar(&disable, "disable", nil, "Rule ids to disable")
	return cmd
}

// position returns the 1-based line and rune column of a byte offset.
func position(text string, offset int) (int, int) {
	before := text[:min(offset, len(text))]
	line := strings.Count(before, "\n") + 1
	if i := strings.LastIndexByte(before, '\n'); i >= 0 {
		before = before[i+1:]
	}
	return line, len([]rune(before)) + 1
}

func (a *app) newSplitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "split [file]",
		Short: "Print one sentence per line",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, res, err := a.checker(cmd.Context(), nil, nil)
			if err != nil {
				return err
			}
			defer res.Close()

			text, err := readInput(cmd, firstArg(args))
			if err != nil {
				return err
			}
			for _, s := range c.Components().Sentences.Split(text) {
				if s = strings.TrimSpace(s); s != "" {
					fmt.Fprintln(cmd.OutOrStdout(), s)
				}
			}
			return nil
		},
	}
}

func (a *app) newTokenizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokenize [file]",
		Short: "Print the tokens of each sentence separated by |",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, res, err := a.checker(cmd.Context(), nil, nil)
			if err != nil {
				return err
			}
			defer res.Close()

			text, err := readInput(cmd, firstArg(args))
			if err != nil {
				return err
			}
			comp := c.Components()
			for _, s := range comp.Sentences.Split(text) {
				tokens := comp.Words.Tokenize(strings.TrimRight(s, " \t\r\n"))
				if len(tokens) > 0 {
					fmt.Fprintln(cmd.OutOrStdout(), strings.Join(tokens, "|"))
				}
			}
			return nil
		},
	}
}

func (a *app) newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [file]",
		Short: "Print every sentence with its disambiguated readings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, res, err := a.checker(ctx, nil, nil)
			if err != nil {
				return err
			}
			defer res.Close()

			text, err := readInput(cmd, firstArg(args))
			if err != nil {
				return err
			}
			sentences, err := c.Analyze(ctx, text)
			if err != nil {
				return err
			}
			for _, s := range sentences {
				fmt.Fprintln(cmd.OutOrStdout(), s.String())
			}
			return nil
		},
	}
}

func (a *app) newRulesCmd() *cobra.Command {
	var verify bool
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the active rules",
		Long: `Rules lists the active rules with their category and description,
followed by the rules skipped at load time and the reason.

With --verify every rule is run against its examples and the command
fails when one of them is not handled as documented.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, res, err := a.checker(ctx, nil, nil)
			if err != nil {
				return err
			}
			defer res.Close()

			out := cmd.OutOrStdout()
			if verify {
				failures, err := c.VerifyExamples(ctx)
				if err != nil {
					return err
				}
				for _, f := range failures {
					fmt.Fprintln(out, f.String())
				}
				if len(failures) > 0 {
					return fmt.Errorf("%d rule examples failed", len(failures))
				}
				fmt.Fprintln(out, "All rule examples passed.")
				return nil
			}

			for _, r := range c.Rules() {
				meta := rules.MetaOf(r)
				fmt.Fprintf(out, "%-32s %-12s %s\n", meta.ID, meta.Category, meta.Description)
			}
			skipped := c.Components().Catalog.Rules.Skipped()
			if len(skipped) > 0 {
				fmt.Fprintf(out, "\nSkipped %d rules:\n", len(skipped))
				for _, s := range skipped {
					fmt.Fprintf(out, "  %s (%s): %v\n", s.ID, s.Reason, s.Err)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "Run every rule against its examples")
	return cmd
}

func (a *app) newLexiconCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lexicon",
		Short: "Manage the lexicon database",
	}

	var db string
	importCmd := &cobra.Command{
		Use:   "import <file.tsv>",
		Short: "Import a form<TAB>lemma<TAB>tag dump into the lexicon database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if db == "" {
				db = a.settings.Resources.LexiconDB
			}
			if db == "" {
				return fmt.Errorf("no lexicon database: pass --db or set resources.lexicon_db")
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			entries, err := lexicon.ReadTSV(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			st, err := sqlite.OpenSQLite(ctx, db)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.UpsertEntries(ctx, entries); err != nil {
				return fmt.Errorf("import: %w", err)
			}
			total, err := st.Count(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d entries into %s (%d total).\n", len(entries), db, total)
			return nil
		},
	}
	importCmd.Flags().StringVar(&db, "db", "", "SQLite lexicon path; defaults to resources.lexicon_db")
	cmd.AddCommand(importCmd)
	return cmd
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
