package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/kvirt/internal/fetch"
	"github.com/ZebulonRouseFrantzich/kvirt/internal/git"
	"github.com/ZebulonRouseFrantzich/kvirt/internal/logging"
	"github.com/ZebulonRouseFrantzich/kvirt/internal/platform"
	"github.com/ZebulonRouseFrantzich/kvirt/internal/service"
	"github.com/ZebulonRouseFrantzich/kvirt/internal/store"
)

// errOperationFailed is returned once a failed Result has been printed.
var errOperationFailed = errors.New("operation failed")

// app carries the global flags and the lazily loaded configuration.
type app struct {
	fs       afero.Fs
	detector platform.Detector

	client   string
	home     string
	logLevel string
	keyring  string
	debug    bool
	quiet    bool

	base *service.Base
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(&app{fs: afero.NewOsFs(), detector: platform.NewDetector()})
}

func newRootCmdWith(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "kvirt",
		Short: "kvirt - configuration and plan resolution for virtual infrastructure",
		Long: `kvirt reads the kcli configuration home (~/.kcli or $KCLI_HOME), resolves
client settings, profiles and flavors, manages plan repositories and renders
plan templates.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.initLogging(cmd)
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.client, "client", "C", "", "Client to use (a name, a comma-separated list or \"all\")")
	flags.StringVar(&a.home, "home", "", "Configuration home (defaults to $KCLI_HOME or ~/.kcli)")
	flags.StringVar(&a.logLevel, "log-level", "WARN", "Log level (DEBUG|INFO|WARN|ERROR|OFF)")
	flags.StringVar(&a.keyring, "keyring", "", "OpenPGP keyring required to verify fetched baseplans")
	flags.BoolVarP(&a.debug, "debug", "d", false, "Debug logging")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "Only log errors")

	root.SetVersionTemplate(fmt.Sprintf("kvirt %s\n", Version))

	root.AddCommand(
		newClientCmd(a),
		newProfileCmd(a),
		newFlavorCmd(a),
		newRepoCmd(a),
		newProductCmd(a),
		newPlanCmd(a),
		newKeywordCmd(a),
	)
	return root
}

func (a *app) initLogging(cmd *cobra.Command) {
	level := logging.ParseLevel(a.logLevel)
	switch {
	case a.debug:
		level = logging.DebugLevel
	case a.quiet:
		level = logging.ErrorLevel
	}
	logging.Init(logging.Config{
		Level:  level,
		Output: cmd.ErrOrStderr(),
		Pretty: true,
	})
}

func (a *app) paths() (store.Paths, error) {
	if a.home != "" {
		return store.Paths{Home: store.Expand(a.home)}, nil
	}
	return store.DefaultPaths()
}

// load reads the configuration once per invocation.
func (a *app) load(ctx context.Context) (*service.Base, error) {
	if a.base != nil {
		return a.base, nil
	}

	paths, err := a.paths()
	if err != nil {
		return nil, fmt.Errorf("locate configuration home: %w", err)
	}

	fetcher, err := a.fetcher()
	if err != nil {
		return nil, err
	}

	base, err := service.New(ctx, service.Options{
		Fs:        a.fs,
		Paths:     paths,
		Client:    a.client,
		Detector:  a.detector,
		Git:       git.Open,
		Fetcher:   fetcher,
		Lock:      true,
		Logger:    logging.NewAdapter(nil),
	})
	if err != nil {
		return nil, err
	}
	a.base = base
	return base, nil
}

func (a *app) fetcher() (*fetch.Downloader, error) {
	var opts []fetch.Option
	if a.keyring != "" {
		f, err := a.fs.Open(store.Expand(a.keyring))
		if err != nil {
			return nil, fmt.Errorf("open keyring: %w", err)
		}
		defer f.Close()
		verifier, err := fetch.NewVerifier(f)
		if err != nil {
			return nil, err
		}
		opts = append(opts, fetch.WithVerifier(verifier))
	}
	return fetch.NewDownloader(a.fs, opts...), nil
}

// report prints a Result and turns a failure into errOperationFailed.
func report(cmd *cobra.Command, res service.Result, success string) error {
	if !res.Success {
		fmt.Fprintln(cmd.ErrOrStderr(), failure(res.Reason))
		return errOperationFailed
	}
	msg := res.Reason
	if msg == "" {
		msg = success
	}
	fmt.Fprintln(cmd.OutOrStdout(), ok(msg))
	return nil
}
