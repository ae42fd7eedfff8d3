package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vk/kernelgen/emit"
	"github.com/vk/kernelgen/internal/app"
	"github.com/vk/kernelgen/registry"
)

const appName = "kernelgen"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) error {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// Execute runs the command line args. Results go to outW, logs to logW.
func Execute(args []string, outW, logW io.Writer, modules ...registry.Module) error {
	cmd := NewRootCmd(outW, logW, modules...)
	cmd.SetArgs(args)
	return cmd.Execute()
}

// NewRootCmd builds the command tree. Without modules the driver uses the
// core generator modules.
func NewRootCmd(outW, logW io.Writer, modules ...registry.Module) *cobra.Command {
	var (
		logFormat string
		logLevel  string
		workers   int
		driver    *app.App
	)

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Build registered kernel generators and emit their artifacts",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageError("unknown command %q for %q", args[0], appName)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.NewConfig(app.Config{
				LogFormat:   strings.ToLower(logFormat),
				LogLevel:    strings.ToLower(logLevel),
				WorkerCount: workers,
			})
			if err != nil {
				return usageError("%v", err)
			}
			driver = app.NewApp(logW, cfg, modules...)
			return nil
		},
	}
	cmd.SetOut(outW)
	cmd.SetErr(logW)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError("%v", err)
	})

	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log output format: 'text' or 'json'")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "logging level: 'debug', 'info', 'warn' or 'error'")
	cmd.PersistentFlags().IntVar(&workers, "workers", 4, "number of generators a build runs concurrently")

	getDriver := func() *app.App { return driver }
	cmd.AddCommand(newListCmd(getDriver), newGenerateCmd(getDriver), newBuildCmd(getDriver))
	return cmd
}

func newListCmd(driver func() *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the registered generators",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return driver().List(cmd.OutOrStdout())
		},
	}
}

func newGenerateCmd(driver func() *app.App) *cobra.Command {
	var req app.Request
	cmd := &cobra.Command{
		Use:   "generate -g NAME -o DIR [key=value ...]",
		Short: "Build one generator and write its artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Generator == "" {
				return usageError("generate: --generator is required")
			}
			if req.OutputDir == "" {
				return usageError("generate: --output-dir is required")
			}
			params, err := parseParams(args)
			if err != nil {
				return err
			}
			req.Params = params

			paths, err := driver().Generate(cmd.Context(), req)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&req.Generator, "generator", "g", "", "registered generator to build")
	cmd.Flags().StringVarP(&req.FunctionName, "function-name", "f", "", "name of the emitted function (default: the generator name)")
	cmd.Flags().StringVarP(&req.OutputDir, "output-dir", "o", "", "directory the artifacts are written to")
	cmd.Flags().StringVarP(&req.Target, "target", "t", "host", "target to build for")
	cmd.Flags().StringSliceVarP(&req.Emit, "emit", "e", nil, "artifacts to write: "+strings.Join(emit.Kinds, ", "))
	cmd.Flags().StringVarP(&req.WrapperName, "wrapper-name", "w", "", "qualified pkg.Type of the wrapper (default: the registered name)")
	return cmd
}

func newBuildCmd(driver func() *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "build BUILD_FILE...",
		Short: "Run every generator block of the given HCL build files or directories",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usageError("build: at least one build file or directory is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := driver().RunBuildFile(cmd.Context(), args...)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usageError("%s: unexpected arguments %v", cmd.Name(), args)
	}
	return nil
}

// parseParams turns key=value arguments into overrides. A repeated key is
// an error.
func parseParams(args []string) (map[string]string, error) {
	params := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, usageError("generate: expected key=value, got %q", arg)
		}
		if _, dup := params[key]; dup {
			return nil, usageError("generate: parameter %q given twice", key)
		}
		params[key] = value
	}
	return params, nil
}
