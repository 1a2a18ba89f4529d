// Command tokenize runs tokenizers through the library boundary from the
// command line.
//
//	tokenize encode --file tokenizer.json "Hello world"
//	tokenize decode --pretrained bert-base-uncased 101 7592 102
//	tokenize fetch bert-base-uncased
//	tokenize ops
//	tokenize -i --file tokenizer.json
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/tokenizer-ffi/abi"
	"github.com/wippyai/tokenizer-ffi/config"
	"github.com/wippyai/tokenizer-ffi/engine"
	"github.com/wippyai/tokenizer-ffi/hub"
)

type options struct {
	src         source
	configPath  string
	logLevel    string
	interactive bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "tokenize",
		Short:         "Encode and decode text with HuggingFace tokenizers",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !opts.interactive {
				return cmd.Help()
			}
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return fmt.Errorf("interactive mode needs a terminal")
			}
			loader, err := opts.loader(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return runInteractive(cmd.Context(), loader, opts.src)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.src.File, "file", "", "tokenizer.json to load")
	pf.StringVar(&opts.src.Pretrained, "pretrained", "", "model name on the hub, e.g. bert-base-uncased")
	pf.StringVar(&opts.src.Revision, "revision", "", "hub revision (default main)")
	pf.StringVar(&opts.src.Token, "token", "", "hub auth token (default $HF_TOKEN)")
	pf.StringVar(&opts.configPath, "config", "", "config file (default $"+config.EnvFile+")")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error or off")
	root.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "interactive mode with TUI")

	root.AddCommand(
		newEncodeCmd(opts),
		newDecodeCmd(opts),
		newFetchCmd(opts),
		newOpsCmd(),
	)
	return root
}

// loadConfig reads --config (or the environment's config file) and applies
// flag overrides.
func (o *options) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		if cfg, err = config.LoadConfig(o.configPath); err != nil {
			return nil, err
		}
		if err := cfg.ApplyEnv(); err != nil {
			return nil, err
		}
	} else if cfg, err = config.FromEnv(); err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	return cfg, nil
}

// hubClient builds the hub client and installs loggers. Download progress
// goes to progress when it is a terminal.
func (o *options) hubClient(progress io.Writer) (*hub.Client, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	log, err := cfg.Log.Logger()
	if err != nil {
		return nil, err
	}
	abi.SetLogger(log)
	engine.SetLogger(log)
	hub.SetLogger(log)

	client := hub.New(cfg.Hub)
	if f, ok := progress.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		client.Progress = f
	}
	log.Debug("hub configured",
		zap.String("endpoint", client.Config().Endpoint),
		zap.String("cacheDir", client.Config().CacheDir))
	return client, nil
}

func (o *options) loader(progress io.Writer) (engine.Loader, error) {
	client, err := o.hubClient(progress)
	if err != nil {
		return nil, err
	}
	return engine.NewLoader(client), nil
}

func (o *options) open(cmd *cobra.Command) (*session, error) {
	loader, err := o.loader(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	return openSession(cmd.Context(), loader, o.src)
}

func newEncodeCmd(opts *options) *cobra.Command {
	var (
		noSpecial bool
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "encode [text...]",
		Short: "Tokenize text (reads stdin when no text is given)",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				text = strings.TrimRight(string(data), "\r\n")
			}

			sess, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := sess.Close(); cerr != nil && err == nil {
					err = cerr
				}
			}()

			enc, err := sess.encode(text, !noSpecial)
			if err != nil {
				return err
			}
			if asJSON {
				e := json.NewEncoder(cmd.OutOrStdout())
				e.SetIndent("", "  ")
				return e.Encode(enc)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderEncoding(enc))
			return nil
		},
	}
	cmd.Flags().BoolVar(&noSpecial, "no-special", false, "do not add special tokens")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the encoding as JSON")
	return cmd
}

func newDecodeCmd(opts *options) *cobra.Command {
	var keepSpecial bool
	cmd := &cobra.Command{
		Use:   "decode id...",
		Short: "Turn token ids back into text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ids, err := parseIDs(strings.Join(args, " "))
			if err != nil {
				return err
			}

			sess, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := sess.Close(); cerr != nil && err == nil {
					err = cerr
				}
			}()

			text, err := sess.decode(ids, !keepSpecial)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().BoolVar(&keepSpecial, "keep-special", false, "keep special tokens in the output")
	return cmd
}

func newFetchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch name",
		Short: "Download a pretrained tokenizer into the cache and print its path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.hubClient(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			path, err := client.Resolve(cmd.Context(), args[0], hub.Params{
				Revision: opts.src.Revision,
				Token:    opts.src.Token,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newOpsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "List the library's exported functions",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			for _, sig := range abi.Signatures() {
				fmt.Fprintf(w, "%s\n    %s\n", sig, sig.Doc)
			}
		},
	}
}

// parseIDs accepts ids separated by spaces or commas.
func parseIDs(s string) ([]uint32, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	ids := make([]uint32, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid token id %q", f)
		}
		ids = append(ids, uint32(v))
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no token ids given")
	}
	return ids, nil
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

func renderEncoding(enc *encoded) string {
	var b strings.Builder
	renderInto(&b, enc, "")
	return strings.TrimRight(b.String(), "\n")
}

func renderInto(b *strings.Builder, enc *encoded, title string) {
	if title != "" {
		b.WriteString(title)
		b.WriteString("\n")
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers("#", "id", "token", "type", "offsets", "special", "attention")
	for i := range enc.IDs {
		t.Row(
			strconv.Itoa(i),
			strconv.FormatUint(uint64(enc.IDs[i]), 10),
			strconv.Quote(enc.Tokens[i]),
			strconv.FormatUint(uint64(enc.TypeIDs[i]), 10),
			fmt.Sprintf("%d..%d", enc.Offsets[i][0], enc.Offsets[i][1]),
			strconv.FormatUint(uint64(enc.SpecialTokensMask[i]), 10),
			strconv.FormatUint(uint64(enc.AttentionMask[i]), 10),
		)
	}
	b.WriteString(t.String())
	b.WriteString("\n")

	for i, o := range enc.Overflowing {
		renderInto(b, o, fmt.Sprintf("%soverflow %d", prefix(title), i))
	}
}

func prefix(title string) string {
	if title == "" {
		return ""
	}
	return title + " / "
}
