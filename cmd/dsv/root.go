package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tliron/commonlog"

	"github.com/shapestone/shape-dsv/pkg/dsv"
	"github.com/shapestone/shape-dsv/pkg/dsv/tools"
)

// cli is one command tree. A tree built with a capture function only parses:
// the step a command would run is handed to capture instead.
type cli struct {
	app     *app
	global  globalFlags
	capture func(dsv.Step)
}

func newRootCmd(a *app, capture func(dsv.Step)) *cobra.Command {
	c := &cli{app: a, capture: capture}

	root := &cobra.Command{
		Use:   "dsv",
		Short: "Work with delimiter-separated text",
		Long: `dsv reads delimiter-separated text on standard input and writes it to
standard output. The field separator is guessed from the first line unless
given, and output to a terminal is coloured and aligned.

Without a command dsv behaves like "dsv cat". Commands print their help
when standard input is a terminal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if capture == nil {
				commonlog.Configure(c.global.verbose, nil)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStage(cmd, tools.NewCat(false), nil)
		},
	}
	c.global.register(root.PersistentFlags())

	root.AddCommand(
		c.newCatCmd(),
		c.newHeadCmd(),
		c.newTailCmd(),
		c.newTacCmd(),
		c.newFormatCmd("pretty", "Align the columns", func(o *dsv.Options) { o.Pretty = true }),
		c.newFormatCmd("tocsv", "Convert to comma separated output", func(o *dsv.Options) { o.OFS = "," }),
		c.newFormatCmd("totsv", "Convert to tab separated output", func(o *dsv.Options) { o.OFS = "\t" }),
		c.newSetHeaderCmd(),
	)
	if capture == nil {
		root.AddCommand(c.newPipelineCmd())
	}
	return root
}

// runStage runs, or captures, a single stage with the options from the
// command line. A command run with a terminal on standard input prints its
// help instead of waiting for typed rows.
func (c *cli) runStage(cmd *cobra.Command, stage dsv.Stage, modify func(*dsv.Options)) error {
	if c.capture == nil && c.app.stdinTTY {
		return cmd.Help()
	}
	opts, err := c.global.options(cmd.Flags(), c.app)
	if err != nil {
		return err
	}
	if modify != nil {
		modify(&opts)
	}
	step := dsv.Step{Stage: stage, Options: opts}
	if c.capture != nil {
		c.capture(step)
		return nil
	}
	return c.app.run(step)
}

func (c *cli) newCatCmd() *cobra.Command {
	var number bool
	cmd := &cobra.Command{
		Use:   "cat [FILE...]",
		Short: "Concatenate standard input and files by row",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStage(cmd, tools.NewCat(number, args...), nil)
		},
	}
	cmd.Flags().BoolVarP(&number, "number", "n", false, "number the rows")
	return cmd
}

func (c *cli) newHeadCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "head",
		Short: "Output the first rows",
		Long:  "Output the first rows. A negative count outputs all but the last rows.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStage(cmd, tools.NewHead(n), nil)
		},
	}
	cmd.Flags().IntVarP(&n, "lines", "n", 10, "number of rows")
	return cmd
}

func (c *cli) newTailCmd() *cobra.Command {
	var n string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Output the last rows",
		Long:  `Output the last rows. With "-n +N" output every row from the Nth on.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := tools.ParseTail(n)
			if err != nil {
				return err
			}
			return c.runStage(cmd, t, nil)
		},
	}
	cmd.Flags().StringVarP(&n, "lines", "n", "10", "number of rows, or +N to start at row N")
	return cmd
}

func (c *cli) newTacCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tac",
		Short: "Output the rows in reverse",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStage(cmd, tools.NewTac(), nil)
		},
	}
}

// newFormatCmd creates a command that passes rows through unchanged with
// different output options.
func (c *cli) newFormatCmd(name, short string, modify func(*dsv.Options)) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStage(cmd, &dsv.Passthrough{}, modify)
		},
	}
}

func (c *cli) newSetHeaderCmd() *cobra.Command {
	var (
		only    bool
		renames []string
		auto    string
	)
	cmd := &cobra.Command{
		Use:   "set-header [NAME...]",
		Short: "Set the header labels",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := &tools.SetHeader{Fields: args, Only: only, Auto: auto}
			for _, r := range renames {
				rn, err := tools.ParseRename(r)
				if err != nil {
					return err
				}
				s.Renames = append(s.Renames, rn)
			}
			return c.runStage(cmd, s, nil)
		},
	}
	fs := cmd.Flags()
	fs.BoolVar(&only, "only", false, "drop the header labels not given")
	fs.StringArrayVarP(&renames, "rename", "r", nil, "rename column OLD (a label or 1-based number) to NEW, as OLD=NEW")
	fs.StringVar(&auto, "auto", "", "name the columns of headerless input with a format such as col%d")
	fs.Lookup("auto").NoOptDefVal = "col%d"
	return cmd
}

func (c *cli) newPipelineCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "pipeline COMMAND [ARGS...] ! COMMAND [ARGS...] ...",
		Aliases: []string{"!"},
		Short:   "Chain commands, each reading the rows of the one before",
		Long: `Chain commands separated by "!". Global flags given before "pipeline"
apply to every command; the input options of the first command and the output
options of the last one are used.`,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix, rest, verbose := leadingFlags(args)
			commonlog.Configure(verbose, nil)
			if c.app.stdinTTY || len(rest) > 0 && (rest[0] == "-h" || rest[0] == "--help") {
				return cmd.Help()
			}
			segments, err := splitPipeline(rest)
			if err != nil {
				return err
			}

			steps := make([]dsv.Step, 0, len(segments))
			for _, seg := range segments {
				var step *dsv.Step
				sub := newRootCmd(c.app, func(s dsv.Step) { step = &s })
				sub.SetArgs(append(append([]string(nil), prefix...), seg...))
				if err := sub.Execute(); err != nil {
					return err
				}
				if step == nil {
					return nil
				}
				steps = append(steps, *step)
			}
			logger.Debugf("pipeline of %d stages", len(steps))
			return c.app.run(steps...)
		},
	}
}

// leadingFlags separates the global flags that precede the first command
// name from the rest of the arguments.
func leadingFlags(args []string) (prefix, rest []string, verbose int) {
	var g globalFlags
	fs := pflag.NewFlagSet("pipeline", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.Usage = func() {}
	g.register(fs)
	if err := fs.Parse(args); err != nil {
		return nil, args, 0
	}
	rest = fs.Args()
	n := len(args) - len(rest)
	if n > 0 && args[n-1] == "--" {
		n--
	}
	return args[:n], rest, g.verbose
}
