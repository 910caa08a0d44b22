package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/mikecbrant/event-streams/internal/eventstream"
	"github.com/mikecbrant/event-streams/internal/lifecycle"
)

type rootOptions struct {
	configPath  string
	requestedBy string
}

type buildFunc func(ctx context.Context, opts *rootOptions) (*lifecycle.Services, error)

func newRootCommand(build buildFunc) *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "streamctl",
		Short:         "Manage event streams, sinks and subscribables",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("EVENT_STREAMS_CONFIG"), "path to the YAML configuration")
	cmd.PersistentFlags().StringVar(&opts.requestedBy, "as", os.Getenv("USER"), "principal recorded as requester")

	services := func(cmd *cobra.Command) (*lifecycle.Services, error) {
		return build(cmd.Context(), opts)
	}
	cmd.AddCommand(
		newCreateCommand(opts, services),
		newDeleteCommand(opts, services),
		newGetCommand(services),
		newSinksCommand(opts, services),
		newSubscribableCommand(opts, services),
		newReconcileCommand(services),
	)
	return cmd
}

type servicesFunc func(cmd *cobra.Command) (*lifecycle.Services, error)

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newCreateCommand(opts *rootOptions, services servicesFunc) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "create DATASET VERSION",
		Short: "Create an event stream",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := services(cmd)
			if err != nil {
				return err
			}
			es, err := svc.Streams.Create(cmd.Context(), args[0], args[1], opts.requestedBy, raw)
			if err != nil {
				return err
			}
			return printJSON(cmd, es.View())
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", true, "also create the raw stream")
	return cmd
}

func newDeleteCommand(opts *rootOptions, services servicesFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "delete DATASET VERSION",
		Short: "Delete an event stream",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := services(cmd)
			if err != nil {
				return err
			}
			return svc.Streams.Delete(cmd.Context(), args[0], args[1], opts.requestedBy)
		},
	}
}

func newGetCommand(services servicesFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "get DATASET VERSION",
		Short: "Show an event stream",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := services(cmd)
			if err != nil {
				return err
			}
			view, err := svc.Streams.Get(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd, view)
		},
	}
}

func newSinksCommand(opts *rootOptions, services servicesFunc) *cobra.Command {
	cmd := &cobra.Command{Use: "sinks", Short: "Manage the sinks of an event stream"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list DATASET VERSION",
			Short: "List live sinks",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, err := services(cmd)
				if err != nil {
					return err
				}
				sinks, err := svc.Sinks.ListSinks(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				return printJSON(cmd, sinks)
			},
		},
		&cobra.Command{
			Use:   "get DATASET VERSION TYPE",
			Short: "Show the live sink of a type",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, err := services(cmd)
				if err != nil {
					return err
				}
				sink, err := svc.Sinks.GetSink(cmd.Context(), args[0], args[1], args[2])
				if err != nil {
					return err
				}
				return printJSON(cmd, sink)
			},
		},
		&cobra.Command{
			Use:   "enable DATASET VERSION TYPE",
			Short: "Add a sink (S3 or ELASTICSEARCH)",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, err := services(cmd)
				if err != nil {
					return err
				}
				sink, err := svc.Sinks.EnableSink(cmd.Context(), args[0], args[1], args[2], opts.requestedBy)
				if err != nil {
					return err
				}
				return printJSON(cmd, sink.View())
			},
		},
		&cobra.Command{
			Use:   "disable DATASET VERSION TYPE",
			Short: "Remove the live sink of a type",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, err := services(cmd)
				if err != nil {
					return err
				}
				return svc.Sinks.DisableSink(cmd.Context(), args[0], args[1], args[2], opts.requestedBy)
			},
		},
	)
	return cmd
}

func newSubscribableCommand(opts *rootOptions, services servicesFunc) *cobra.Command {
	cmd := &cobra.Command{Use: "subscribable", Short: "Manage the subscription hook of an event stream"}
	run := func(op func(ctx context.Context, svc *lifecycle.SubscribableLifecycle, ds, version string) (eventstream.Subscribable, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			svc, err := services(cmd)
			if err != nil {
				return err
			}
			sub, err := op(cmd.Context(), svc.Subscribables, args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd, sub)
		}
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get DATASET VERSION",
			Short: "Show the subscribable",
			Args:  cobra.ExactArgs(2),
			RunE: run(func(ctx context.Context, s *lifecycle.SubscribableLifecycle, ds, v string) (eventstream.Subscribable, error) {
				return s.Get(ctx, ds, v)
			}),
		},
		&cobra.Command{
			Use:   "enable DATASET VERSION",
			Short: "Enable the subscribable",
			Args:  cobra.ExactArgs(2),
			RunE: run(func(ctx context.Context, s *lifecycle.SubscribableLifecycle, ds, v string) (eventstream.Subscribable, error) {
				return s.Enable(ctx, ds, v, opts.requestedBy)
			}),
		},
		&cobra.Command{
			Use:   "disable DATASET VERSION",
			Short: "Disable the subscribable",
			Args:  cobra.ExactArgs(2),
			RunE: run(func(ctx context.Context, s *lifecycle.SubscribableLifecycle, ds, v string) (eventstream.Subscribable, error) {
				return s.Disable(ctx, ds, v, opts.requestedBy)
			}),
		},
	)
	return cmd
}

func newReconcileCommand(services servicesFunc) *cobra.Command {
	var force string
	cmd := &cobra.Command{
		Use:   "reconcile STACK [OUTCOME]",
		Short: "Apply a stack outcome, or force a status with --force",
		Long: "Apply a CloudFormation outcome (CREATE_COMPLETE, DELETE_COMPLETE, ROLLBACK_COMPLETE) to the " +
			"resource behind STACK. With --force STATUS the status is set without transition checks.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if force == "" && len(args) != 2 {
				return &eventstream.ValidationError{Field: "outcome", Reason: "required unless --force is set"}
			}
			svc, err := services(cmd)
			if err != nil {
				return err
			}
			var res lifecycle.Result
			if force != "" {
				res, err = svc.Reconciler.Force(cmd.Context(), args[0], eventstream.Status(force))
			} else {
				res, err = svc.Reconciler.Apply(cmd.Context(), args[0], args[1])
			}
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{"stack": args[0], "result": string(res)})
		},
	}
	cmd.Flags().StringVar(&force, "force", "", "status to set regardless of the current one")
	return cmd
}
